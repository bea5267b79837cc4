package migrations

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upLiftLegacyReconciliation, downLiftLegacyReconciliation)
}

// upLiftLegacyReconciliation rewrites statements reconciled before
// multi-transaction support. Those carry only reconciledTransactionId and
// reconciledTransactionType; this adds the equivalent one-entry
// reconciledTransactions list, taking the amount from the linked transaction.
func upLiftLegacyReconciliation(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, data FROM documents WHERE collection = 'bankStatements'
	`)
	if err != nil {
		return err
	}

	type pending struct {
		id  string
		doc map[string]any
	}
	var lift []pending

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			_ = rows.Close()
			return err
		}

		var doc map[string]any
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			continue // Leave unreadable documents for the audit to report
		}

		legacyID, _ := doc["reconciledTransactionId"].(string)
		list, _ := doc["reconciledTransactions"].([]any)
		if legacyID == "" || len(list) > 0 {
			continue
		}
		lift = append(lift, pending{id: id, doc: doc})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, p := range lift {
		legacyID, _ := p.doc["reconciledTransactionId"].(string)
		txType, _ := p.doc["reconciledTransactionType"].(string)
		collection := "expenses"
		if txType == "income" {
			collection = "income"
		} else {
			txType = "expenses"
		}

		amount := 0.0
		var txData string
		err := tx.QueryRowContext(ctx, `
			SELECT data FROM documents WHERE collection = ? AND id = ?
		`, collection, legacyID).Scan(&txData)
		if err == nil {
			var txDoc map[string]any
			if json.Unmarshal([]byte(txData), &txDoc) == nil {
				amount, _ = txDoc["amount"].(float64)
			}
		} else if err != sql.ErrNoRows {
			return err
		}

		p.doc["reconciledTransactions"] = []any{map[string]any{
			"id":         legacyID,
			"type":       txType,
			"collection": collection,
			"amount":     amount,
		}}
		p.doc["reconciledTransactionIds"] = []any{legacyID}

		data, err := json.Marshal(p.doc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET data = ? WHERE collection = 'bankStatements' AND id = ?
		`, string(data), p.id); err != nil {
			return err
		}
	}

	return nil
}

// downLiftLegacyReconciliation is a no-op; the legacy fields are never removed.
func downLiftLegacyReconciliation(ctx context.Context, tx *sql.Tx) error {
	return nil
}
