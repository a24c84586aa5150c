package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-eshop-go/internal/order/tx"
)

func TestJournalFollowsStateMachine(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	require.NoError(t, j.Create(ctx, "a1", 1))
	assert.Error(t, j.Create(ctx, "a1", 1))

	require.NoError(t, j.SetStatus(ctx, "a1", tx.StatusBasketLoaded, 0, ""))
	require.NoError(t, j.SetStatus(ctx, "a1", tx.StatusValidated, 0, ""))
	require.NoError(t, j.SetStatus(ctx, "a1", tx.StatusCommitted, 9, ""))
	assert.Error(t, j.SetStatus(ctx, "a1", tx.StatusFailed, 0, "late"))
	require.NoError(t, j.SetStatus(ctx, "a1", tx.StatusNotified, 0, ""))

	a, err := j.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, tx.StatusNotified, a.Status)
	assert.EqualValues(t, 9, a.OrderID)
	assert.Empty(t, a.Reason)

	require.NoError(t, j.Create(ctx, "a2", 2))
	require.NoError(t, j.SetStatus(ctx, "a2", tx.StatusFailed, 0, "empty basket"))
	assert.Len(t, j.Attempts(), 2)

	_, err = j.Get(ctx, "missing")
	assert.Error(t, err)
}
