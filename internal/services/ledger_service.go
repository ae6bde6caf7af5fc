package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type Reservation struct {
	Success       bool
	NewBalance    int64
	TransactionID string
}

// AuditRecorder receives one event per successful deduction.
type AuditRecorder interface {
	RecordDeduction(ctx context.Context, txn *models.CreditTransaction)
}

type slogAudit struct{ log *slog.Logger }

func (a slogAudit) RecordDeduction(ctx context.Context, txn *models.CreditTransaction) {
	a.log.InfoContext(ctx, "credits_reserved",
		"organization_id", txn.OrganizationID,
		"amount", -txn.Amount,
		"balance_after", txn.BalanceAfter,
		"reason", txn.Reason,
		"transaction_id", txn.ID,
	)
}

type LedgerService struct {
	store core.LedgerStore
	audit AuditRecorder
}

func NewLedgerService(store core.LedgerStore, log *slog.Logger) *LedgerService {
	if log == nil {
		log = slog.Default()
	}
	return &LedgerService{store: store, audit: slogAudit{log: log}}
}

func (s *LedgerService) WithAudit(a AuditRecorder) *LedgerService {
	s.audit = a
	return s
}

// Reserve deducts amount from the organization's balance or fails with
// core.ErrInsufficientCredits leaving it untouched. A zero amount succeeds
// without writing anything.
func (s *LedgerService) Reserve(ctx context.Context, orgID string, amount int64, reason string) (*Reservation, error) {
	if amount < 0 {
		return nil, core.Invalid("amount", "must not be negative")
	}
	if amount == 0 {
		bal, err := s.Balance(ctx, orgID)
		if err != nil {
			return nil, err
		}
		return &Reservation{Success: true, NewBalance: bal}, nil
	}

	txn, err := s.store.DeductCredits(ctx, orgID, amount, reason)
	if err != nil {
		return nil, fmt.Errorf("reserve %d credits: %w", amount, err)
	}
	s.audit.RecordDeduction(ctx, txn)
	return &Reservation{Success: true, NewBalance: txn.BalanceAfter, TransactionID: txn.ID}, nil
}

func (s *LedgerService) Balance(ctx context.Context, orgID string) (int64, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if org == nil {
		return 0, core.ErrOrganizationNotFound
	}
	return org.CreditBalance, nil
}

func (s *LedgerService) Transactions(ctx context.Context, orgID string, limit int) ([]models.CreditTransaction, error) {
	return s.store.ListCreditTransactions(ctx, orgID, limit)
}
