package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
)

func newSQLiteStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := docstore.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewStorage(store)
}

func reconciledStatement() *ledger.BankStatement {
	reconciledAt := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	return &ledger.BankStatement{
		ID:                "stmt-1",
		PostingDate:       civil.Date{Year: 2024, Month: 3, Day: 1},
		Description:       "DEPOSIT",
		CheckOrSlipNumber: "1042",
		Comment:           "Sunday collection",
		Amount:            150,
		Balance:           5230.12,
		Type:              ledger.StatementCredit,
		AccountType:       ledger.AccountOperating,
		IsReconciled:      true,
		ReconciledTransactions: []ledger.ReconciledTransaction{
			{ID: "inc-1", Type: ledger.TypeIncome, Collection: ledger.CollectionIncome, Amount: 100},
			{ID: "inc-2", Type: ledger.TypeIncome, Collection: ledger.CollectionIncome, Amount: 50},
		},
		ReconciledDate: &reconciledAt,
	}
}

func TestStorage_StatementRoundTrip_SQLite(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	want := reconciledStatement()
	require.NoError(t, s.SaveStatement(ctx, want))

	got, err := s.GetStatement(ctx, "stmt-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.PostingDate, got.PostingDate)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.CheckOrSlipNumber, got.CheckOrSlipNumber)
	assert.Equal(t, want.Comment, got.Comment)
	assert.InDelta(t, want.Amount, got.Amount, 0.001)
	assert.InDelta(t, want.Balance, got.Balance, 0.001)
	assert.Equal(t, want.AccountType, got.AccountType)
	assert.True(t, got.IsReconciled)
	assert.Equal(t, want.ReconciledTransactions, got.ReconciledTransactions)
	require.NotNil(t, got.ReconciledDate)
	assert.True(t, want.ReconciledDate.Equal(*got.ReconciledDate))
	assert.False(t, got.UpdatedAt.IsZero(), "store stamps updatedAt")
}

func TestStorage_SaveStatement_WritesLegacyMirror(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	s := NewStorage(mem)

	require.NoError(t, s.SaveStatement(ctx, reconciledStatement()))

	doc, err := mem.GetOne(ctx, ledger.CollectionStatements, "stmt-1")
	require.NoError(t, err)
	assert.Equal(t, "inc-1", doc[FieldReconciledTransactionID])
	assert.Equal(t, "income", doc[FieldReconciledTransactionType])
	assert.Equal(t, []any{"inc-1", "inc-2"}, doc[FieldReconciledTransactionIDs])
	assert.Equal(t, "2024-03-01", doc[FieldPostingDate])
}

func TestStorage_SaveStatement_Unreconciled(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	s := NewStorage(mem)

	stmt := &ledger.BankStatement{ID: "stmt-2", Amount: -20, AccountType: ledger.AccountBuilding}
	require.NoError(t, s.SaveStatement(ctx, stmt))

	doc, err := mem.GetOne(ctx, ledger.CollectionStatements, "stmt-2")
	require.NoError(t, err)
	assert.Equal(t, false, doc[FieldIsReconciled])
	assert.True(t, doc.IsNull(FieldReconciledTransactionID))
	assert.True(t, doc.IsNull(FieldReconciledTransactionType))
	assert.True(t, doc.IsNull(FieldReconciledTransactions))
	assert.True(t, doc.IsNull(FieldReconciledDate))
}

func TestDecodeStatement_LiftsLegacyReference(t *testing.T) {
	tests := []struct {
		name     string
		doc      docstore.Document
		wantType ledger.TransactionType
	}{
		{
			name: "typed legacy reference",
			doc: docstore.Document{
				"id": "s1", "amount": -40.0, "isReconciled": true,
				"reconciledTransactionId": "exp-9", "reconciledTransactionType": "expenses",
			},
			wantType: ledger.TypeExpenses,
		},
		{
			name: "singular alias",
			doc: docstore.Document{
				"id": "s1", "amount": -40.0, "isReconciled": true,
				"reconciledTransactionId": "exp-9", "reconciledTransactionType": "expense",
			},
			wantType: ledger.TypeExpenses,
		},
		{
			name: "untyped reference takes type from amount sign",
			doc: docstore.Document{
				"id": "s1", "amount": 40.0, "isReconciled": true,
				"reconciledTransactionId": "exp-9",
			},
			wantType: ledger.TypeIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := DecodeStatement(tt.doc)
			require.NoError(t, err)
			require.Len(t, stmt.ReconciledTransactions, 1)
			assert.Equal(t, "exp-9", stmt.ReconciledTransactions[0].ID)
			assert.Equal(t, tt.wantType, stmt.ReconciledTransactions[0].Type)
			assert.Equal(t, tt.wantType.Collection(), stmt.ReconciledTransactions[0].Collection)
			assert.Equal(t, "exp-9", stmt.LegacyTransactionID())
		})
	}
}

func TestDecodeStatement_ListWinsOverLegacy(t *testing.T) {
	stmt, err := DecodeStatement(docstore.Document{
		"id":                      "s1",
		"isReconciled":            true,
		"reconciledTransactionId": "stale",
		"reconciledTransactions": []any{
			map[string]any{"id": "a", "type": "income", "amount": 10.0},
		},
	})
	require.NoError(t, err)
	require.Len(t, stmt.ReconciledTransactions, 1)
	assert.Equal(t, "a", stmt.ReconciledTransactions[0].ID)
}

func TestDecodeStatement_DateRepresentations(t *testing.T) {
	local := time.Date(2024, 5, 6, 9, 0, 0, 0, time.Local)

	for name, value := range map[string]any{
		"date string":   "2024-05-06",
		"time value":    local,
		"rfc3339":       local.Format(time.RFC3339),
		"timestamp map": map[string]any{"seconds": float64(local.Unix()), "nanoseconds": 0.0},
	} {
		t.Run(name, func(t *testing.T) {
			stmt, err := DecodeStatement(docstore.Document{"id": "s", "postingDate": value})
			require.NoError(t, err)
			assert.Equal(t, civil.Date{Year: 2024, Month: 5, Day: 6}, stmt.PostingDate)
		})
	}
}

func TestDecodeStatement_RequiresID(t *testing.T) {
	_, err := DecodeStatement(docstore.Document{"amount": 1.0})
	assert.Error(t, err)
}

func TestStorage_TransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	income := &ledger.Transaction{
		ID:              "inc-1",
		TransactionType: ledger.TypeIncome,
		Date:            civil.Date{Year: 2024, Month: 3, Day: 1},
		Amount:          100,
		Category:        "Offering",
		AccountType:     ledger.AccountOperating,
		MemberID:        "m-1",
		MemberName:      "Ann Lee",
		PayeeName:       "ignored for income",
	}
	require.NoError(t, s.SaveTransaction(ctx, income))

	got, err := s.GetTransaction(ctx, ledger.TypeIncome, "inc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.TypeIncome, got.TransactionType)
	assert.Equal(t, income.Date, got.Date)
	assert.Equal(t, "Ann Lee", got.MemberName)
	assert.Empty(t, got.PayeeName)
	assert.False(t, got.IsReconciled)
	assert.Empty(t, got.ReconciledBankStatementID)

	missing, err := s.GetTransaction(ctx, ledger.TypeExpenses, "inc-1")
	require.NoError(t, err)
	assert.Nil(t, missing, "income and expenses are separate collections")
}

func TestStorage_ReconciledTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(docstore.NewMemoryStore())

	at := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveTransaction(ctx, &ledger.Transaction{
		ID:                        "exp-1",
		TransactionType:           ledger.TypeExpenses,
		Amount:                    42,
		PayeeName:                 "Power Co",
		IsReconciled:              true,
		ReconciledBankStatementID: "stmt-1",
		ReconciledDate:            &at,
	}))

	got, err := s.GetTransaction(ctx, ledger.TypeExpenses, "exp-1")
	require.NoError(t, err)
	assert.True(t, got.IsReconciled)
	assert.Equal(t, "stmt-1", got.ReconciledBankStatementID)
	assert.Equal(t, "Power Co", got.PayeeName)
	require.NotNil(t, got.ReconciledDate)
	assert.True(t, at.Equal(*got.ReconciledDate))
}

func TestStorage_ListStatements_Filters(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(docstore.NewMemoryStore())

	day := func(d int) civil.Date { return civil.Date{Year: 2024, Month: 1, Day: d} }
	require.NoError(t, s.SaveStatement(ctx, &ledger.BankStatement{ID: "c", PostingDate: day(3), AccountType: ledger.AccountOperating}))
	require.NoError(t, s.SaveStatement(ctx, &ledger.BankStatement{ID: "a", PostingDate: day(1), AccountType: ledger.AccountOperating,
		IsReconciled: true, ReconciledTransactions: []ledger.ReconciledTransaction{{ID: "x", Type: ledger.TypeIncome}}}))
	require.NoError(t, s.SaveStatement(ctx, &ledger.BankStatement{ID: "b", PostingDate: day(2), AccountType: ledger.AccountBuilding, IsExcluded: true}))

	ids := func(stmts []*ledger.BankStatement) []string {
		out := make([]string, 0, len(stmts))
		for _, st := range stmts {
			out = append(out, st.ID)
		}
		return out
	}

	all, err := s.ListStatements(ctx, StatementFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all), "ordered by posting date")

	tests := []struct {
		filters StatementFilters
		want    []string
	}{
		{StatementFilters{Status: StatusAll}, []string{"a", "b", "c"}},
		{StatementFilters{Status: StatusReconciled}, []string{"a"}},
		{StatementFilters{Status: StatusUnreconciled}, []string{"c"}},
		{StatementFilters{Status: StatusExcluded}, []string{"b"}},
		{StatementFilters{AccountType: ledger.AccountOperating}, []string{"a", "c"}},
		{StatementFilters{AccountType: ledger.AccountBuilding, Status: StatusUnreconciled}, []string{}},
	}
	for _, tt := range tests {
		got, err := s.ListStatements(ctx, tt.filters)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ids(got), "filters %+v", tt.filters)
	}
}

func TestStorage_ListTransactions_Filters(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(docstore.NewMemoryStore())

	require.NoError(t, s.SaveTransaction(ctx, &ledger.Transaction{ID: "1", TransactionType: ledger.TypeExpenses, AccountType: ledger.AccountOperating}))
	require.NoError(t, s.SaveTransaction(ctx, &ledger.Transaction{ID: "2", TransactionType: ledger.TypeExpenses, AccountType: ledger.AccountOperating,
		IsReconciled: true, ReconciledBankStatementID: "s"}))
	require.NoError(t, s.SaveTransaction(ctx, &ledger.Transaction{ID: "3", TransactionType: ledger.TypeExpenses, AccountType: ledger.AccountBuilding}))

	got, err := s.ListTransactions(ctx, ledger.TypeExpenses, TransactionFilters{AccountType: ledger.AccountOperating, UnreconciledOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	_, err = s.ListTransactions(ctx, ledger.TransactionType("gifts"), TransactionFilters{})
	assert.Error(t, err)
}

func TestStorage_Members(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(docstore.NewMemoryStore())

	require.NoError(t, s.SaveMember(ctx, ledger.Member{ID: "m2", FirstName: "Zed", LastName: "Young"}))
	require.NoError(t, s.SaveMember(ctx, ledger.Member{ID: "m1", FirstName: "Ann", LastName: "Lee", EnvelopeNumber: "17"}))

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Ann Lee", members[0].FullName())
	assert.Equal(t, "17", members[0].EnvelopeNumber)

	assert.Error(t, s.SaveMember(ctx, ledger.Member{}))
}

func TestStorage_GetStatement_Missing(t *testing.T) {
	s := NewStorage(docstore.NewMemoryStore())
	stmt, err := s.GetStatement(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, stmt)
}
