package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationDetectsDrift(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.db.TruncateAll(ctx)

	healthy := f.db.CreateTestAccount(ctx, "user-1")
	drifted := f.db.CreateTestAccount(ctx, "user-1")

	for _, id := range []string{healthy.ID, drifted.ID} {
		_, err := f.ledgerUC.Credit(ctx, id, decimal.NewFromInt(50), nil)
		require.NoError(t, err)
		_, err = f.ledgerUC.Debit(ctx, id, decimal.NewFromInt(20), nil)
		require.NoError(t, err)
	}

	f.db.SetBalance(ctx, drifted.ID, decimal.NewFromInt(35))

	result, err := f.reconUC.ReconcileAccount(ctx, healthy.ID)
	require.NoError(t, err)
	assert.True(t, result.IsReconciled)
	assert.True(t, result.CalculatedBalance.Equal(decimal.NewFromInt(30)))

	result, err = f.reconUC.ReconcileAccount(ctx, drifted.ID)
	require.NoError(t, err)
	assert.False(t, result.IsReconciled)
	assert.True(t, result.RecordedBalance.Equal(decimal.NewFromInt(35)))
	assert.True(t, result.CalculatedBalance.Equal(decimal.NewFromInt(30)))
	assert.True(t, result.Difference.Equal(decimal.NewFromInt(5)))

	report, err := f.reconUC.ReconcileUserAccounts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalAccounts)
	assert.Equal(t, 1, report.ReconciledAccounts)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, drifted.ID, report.Discrepancies[0].AccountID)
}
