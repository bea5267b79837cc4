package storage

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/matcher"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/normalize"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
)

// Document field names shared by statements and transactions.
const (
	FieldIsReconciled              = "isReconciled"
	FieldReconciledDate            = "reconciledDate"
	FieldReconciledTransactions    = "reconciledTransactions"
	FieldReconciledTransactionIDs  = "reconciledTransactionIds"
	FieldReconciledTransactionID   = "reconciledTransactionId"
	FieldReconciledTransactionType = "reconciledTransactionType"
	FieldReconciledStatementID     = "reconciledBankStatementId"
	FieldIsExcluded                = "isExcluded"
	FieldPostingDate               = "postingDate"
	FieldDate                      = "date"
	FieldAmount                    = "amount"
	FieldAccountType               = "accountType"
	FieldType                      = "type"
	FieldDescription               = "description"
	FieldComment                   = "comment"
	FieldCheckOrSlipNumber         = "checkOrSlipNumber"
	FieldCategory                  = "category"
	FieldSubCategory               = "subCategory"
	FieldCreatedAt                 = "createdAt"
)

// DecodeStatement converts a stored document into a BankStatement.
// Documents written before multi-transaction reconciliation carry only the
// single reconciledTransactionId/Type pair; those are lifted into a one-entry
// list so callers never see the legacy shape.
func DecodeStatement(doc docstore.Document) (*ledger.BankStatement, error) {
	if doc.ID() == "" {
		return nil, fmt.Errorf("statement document has no id")
	}

	stmt := &ledger.BankStatement{
		ID:                doc.ID(),
		Description:       doc.String(FieldDescription),
		CheckOrSlipNumber: doc.String(FieldCheckOrSlipNumber),
		Comment:           doc.String(FieldComment),
		Amount:            doc.Float(FieldAmount),
		Balance:           doc.Float("balance"),
		Type:              doc.String(FieldType),
		AccountType:       ledger.AccountType(doc.String(FieldAccountType)),
		IsExcluded:        doc.Bool(FieldIsExcluded),
		IsReconciled:      doc.Bool(FieldIsReconciled),
	}
	if d, ok := normalize.NormalizeDate(doc[FieldPostingDate]); ok {
		stmt.PostingDate = d
	}
	if t, ok := doc.Time(FieldReconciledDate); ok {
		stmt.ReconciledDate = &t
	}
	stmt.CreatedAt, _ = doc.Time(FieldCreatedAt)
	stmt.UpdatedAt, _ = doc.Time(docstore.UpdatedAtField)

	for _, m := range doc.Maps(FieldReconciledTransactions) {
		entry := docstore.Document(m)
		txType, ok := ledger.ParseTransactionType(entry.String("type"))
		if !ok {
			txType, _ = ledger.ParseTransactionType(entry.String("collection"))
		}
		stmt.ReconciledTransactions = append(stmt.ReconciledTransactions, ledger.ReconciledTransaction{
			ID:         entry.String("id"),
			Type:       txType,
			Collection: txType.Collection(),
			Amount:     entry.Float("amount"),
		})
	}

	if len(stmt.ReconciledTransactions) == 0 {
		if legacyID := doc.String(FieldReconciledTransactionID); legacyID != "" {
			txType, ok := ledger.ParseTransactionType(doc.String(FieldReconciledTransactionType))
			if !ok {
				txType = matcher.ExpectedType(stmt.Amount)
			}
			stmt.ReconciledTransactions = []ledger.ReconciledTransaction{{
				ID:         legacyID,
				Type:       txType,
				Collection: txType.Collection(),
			}}
		}
	}

	return stmt, nil
}

// EncodeStatement converts a BankStatement into a full document. The legacy
// mirror fields are always written from the first list entry.
func EncodeStatement(stmt *ledger.BankStatement) docstore.Document {
	doc := docstore.Document{
		FieldPostingDate:       formatDate(stmt.PostingDate),
		FieldDescription:       stmt.Description,
		FieldCheckOrSlipNumber: stmt.CheckOrSlipNumber,
		FieldComment:           stmt.Comment,
		FieldAmount:            stmt.Amount,
		"balance":              stmt.Balance,
		FieldType:              stmt.Type,
		FieldAccountType:       string(stmt.AccountType),
		FieldIsExcluded:        stmt.IsExcluded,
	}
	if !stmt.CreatedAt.IsZero() {
		doc[FieldCreatedAt] = stmt.CreatedAt
	}

	var reconciledAt time.Time
	if stmt.ReconciledDate != nil {
		reconciledAt = *stmt.ReconciledDate
	}
	for k, v := range StatementReconciledFields(stmt.ReconciledTransactions, reconciledAt) {
		doc[k] = v
	}
	return doc
}

// StatementReconciledFields is the update that links a statement to list.
// An empty list produces the cleared state.
func StatementReconciledFields(list []ledger.ReconciledTransaction, reconciledAt time.Time) map[string]any {
	if len(list) == 0 {
		return StatementClearedFields()
	}

	stmt := &ledger.BankStatement{ReconciledTransactions: list}

	entries := make([]any, 0, len(list))
	ids := make([]any, 0, len(list))
	for _, rt := range list {
		entries = append(entries, map[string]any{
			"id":         rt.ID,
			"type":       string(rt.Type),
			"collection": rt.Type.Collection(),
			"amount":     rt.Amount,
		})
		ids = append(ids, rt.ID)
	}

	fields := map[string]any{
		FieldIsReconciled:              true,
		FieldReconciledTransactions:    entries,
		FieldReconciledTransactionIDs:  ids,
		FieldReconciledTransactionID:   stmt.LegacyTransactionID(),
		FieldReconciledTransactionType: string(stmt.LegacyTransactionType()),
		FieldReconciledDate:            nil,
	}
	if !reconciledAt.IsZero() {
		fields[FieldReconciledDate] = reconciledAt
	}
	return fields
}

// StatementClearedFields is the update that fully unreconciles a statement.
func StatementClearedFields() map[string]any {
	return map[string]any{
		FieldIsReconciled:              false,
		FieldReconciledTransactions:    nil,
		FieldReconciledTransactionIDs:  nil,
		FieldReconciledTransactionID:   nil,
		FieldReconciledTransactionType: nil,
		FieldReconciledDate:            nil,
	}
}

// DecodeTransaction converts a stored document into a Transaction of txType.
func DecodeTransaction(doc docstore.Document, txType ledger.TransactionType) (*ledger.Transaction, error) {
	if doc.ID() == "" {
		return nil, fmt.Errorf("%s document has no id", txType)
	}

	tx := &ledger.Transaction{
		ID:                        doc.ID(),
		TransactionType:           txType,
		Amount:                    doc.Float(FieldAmount),
		Category:                  doc.String(FieldCategory),
		SubCategory:               doc.String(FieldSubCategory),
		Description:               doc.String(FieldDescription),
		AccountType:               ledger.AccountType(doc.String(FieldAccountType)),
		MemberID:                  doc.String("memberId"),
		MemberName:                doc.String("memberName"),
		PayeeID:                   doc.String("payeeId"),
		PayeeName:                 doc.String("payeeName"),
		IsReconciled:              doc.Bool(FieldIsReconciled),
		ReconciledBankStatementID: doc.String(FieldReconciledStatementID),
	}
	if d, ok := normalize.NormalizeDate(doc[FieldDate]); ok {
		tx.Date = d
	}
	if t, ok := doc.Time(FieldReconciledDate); ok {
		tx.ReconciledDate = &t
	}
	tx.CreatedAt, _ = doc.Time(FieldCreatedAt)
	tx.UpdatedAt, _ = doc.Time(docstore.UpdatedAtField)

	return tx, nil
}

// EncodeTransaction converts a Transaction into a full document. Member
// fields are only written for income, payee fields only for expenses.
func EncodeTransaction(tx *ledger.Transaction) docstore.Document {
	doc := docstore.Document{
		"transactionType": string(tx.TransactionType),
		FieldDate:         formatDate(tx.Date),
		FieldAmount:       tx.Amount,
		FieldCategory:     tx.Category,
		FieldSubCategory:  tx.SubCategory,
		FieldDescription:  tx.Description,
		FieldAccountType:  string(tx.AccountType),
	}

	switch tx.TransactionType {
	case ledger.TypeIncome:
		doc["memberId"] = tx.MemberID
		doc["memberName"] = tx.MemberName
	case ledger.TypeExpenses:
		doc["payeeId"] = tx.PayeeID
		doc["payeeName"] = tx.PayeeName
	}

	if !tx.CreatedAt.IsZero() {
		doc[FieldCreatedAt] = tx.CreatedAt
	}

	fields := TransactionClearedFields()
	if tx.IsReconciled {
		var reconciledAt time.Time
		if tx.ReconciledDate != nil {
			reconciledAt = *tx.ReconciledDate
		}
		fields = TransactionLinkedFields(tx.ReconciledBankStatementID, reconciledAt)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

// TransactionLinkedFields is the update that points a transaction at a statement.
func TransactionLinkedFields(statementID string, reconciledAt time.Time) map[string]any {
	fields := map[string]any{
		FieldIsReconciled:          true,
		FieldReconciledStatementID: statementID,
		FieldReconciledDate:        nil,
	}
	if !reconciledAt.IsZero() {
		fields[FieldReconciledDate] = reconciledAt
	}
	return fields
}

// TransactionClearedFields is the update that unlinks a transaction.
func TransactionClearedFields() map[string]any {
	return map[string]any{
		FieldIsReconciled:          false,
		FieldReconciledStatementID: nil,
		FieldReconciledDate:        nil,
	}
}

// DecodeMember converts a stored document into a Member.
func DecodeMember(doc docstore.Document) ledger.Member {
	return ledger.Member{
		ID:             doc.ID(),
		FirstName:      doc.String("firstName"),
		LastName:       doc.String("lastName"),
		EnvelopeNumber: doc.String("envelopeNumber"),
	}
}

// EncodeMember converts a Member into a document.
func EncodeMember(m ledger.Member) docstore.Document {
	return docstore.Document{
		"firstName":      m.FirstName,
		"lastName":       m.LastName,
		"envelopeNumber": m.EnvelopeNumber,
	}
}

// FormatDate renders a calendar date the way the store keeps it.
func FormatDate(d civil.Date) any {
	return formatDate(d)
}

func formatDate(d civil.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
