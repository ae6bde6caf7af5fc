package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type auditSpy struct {
	mu   sync.Mutex
	txns []*models.CreditTransaction
}

func (a *auditSpy) RecordDeduction(_ context.Context, txn *models.CreditTransaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.txns = append(a.txns, txn)
}

func TestReserveDeductsAndAudits(t *testing.T) {
	env := newTestEnv(t, 10)
	spy := &auditSpy{}
	env.ledger.WithAudit(spy)

	r, err := env.ledger.Reserve(context.Background(), env.org.ID, 4, "chat")
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, int64(6), r.NewBalance)
	assert.NotEmpty(t, r.TransactionID)
	assert.Equal(t, int64(6), env.balance(t))

	require.Len(t, spy.txns, 1)
	assert.Equal(t, int64(-4), spy.txns[0].Amount)
	assert.Equal(t, "chat", spy.txns[0].Reason)
}

func TestReserveZeroWritesNothing(t *testing.T) {
	env := newTestEnv(t, 3)
	spy := &auditSpy{}
	env.ledger.WithAudit(spy)

	r, err := env.ledger.Reserve(context.Background(), env.org.ID, 0, "chat")
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.NewBalance)
	assert.Empty(t, spy.txns)

	txs, err := env.ledger.Transactions(context.Background(), env.org.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReserveRejects(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()

	_, err := env.ledger.Reserve(ctx, env.org.ID, -1, "chat")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = env.ledger.Reserve(ctx, env.org.ID, 10, "chat")
	assert.ErrorIs(t, err, core.ErrInsufficientCredits)
	assert.Equal(t, int64(5), env.balance(t))

	_, err = env.ledger.Reserve(ctx, "missing", 1, "chat")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = env.ledger.Balance(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrOrganizationNotFound)
}

func TestReserveExactBalance(t *testing.T) {
	env := newTestEnv(t, 5)
	r, err := env.ledger.Reserve(context.Background(), env.org.ID, 5, "chat")
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.NewBalance)

	_, err = env.ledger.Reserve(context.Background(), env.org.ID, 1, "chat")
	assert.ErrorIs(t, err, core.ErrInsufficientCredits)
}

// The sqlite test store serializes these calls; see db.TestPostgresConcurrency
// for the same contention over a real pool.
func TestReserveConcurrentNeverOverdraws(t *testing.T) {
	const workers = 16
	env := newTestEnv(t, 10)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.ledger.Reserve(context.Background(), env.org.ID, 3, "chat"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, int64(1), env.balance(t))

	txs, err := env.ledger.Transactions(context.Background(), env.org.ID, 50)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}
