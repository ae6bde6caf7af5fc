package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

func (c *DatabaseClient) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org == nil {
		return errors.New("nil organization")
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = now
	}
	if org.Plan == "" {
		org.Plan = "free"
	}
	const q = `
		INSERT INTO organizations (id, name, plan, credit_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, c.q(q),
		org.ID, org.Name, org.Plan, org.CreditBalance, org.CreatedAt, org.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	const q = `
		SELECT id, name, plan, credit_balance, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	var o models.Organization
	err := c.db.QueryRowContext(ctx, c.q(q), id).Scan(
		&o.ID, &o.Name, &o.Plan, &o.CreditBalance, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeductCredits subtracts amount only when the balance covers it. The check
// and the write are one UPDATE so concurrent callers cannot both pass the
// check. The audit row is written in the same transaction.
func (c *DatabaseClient) DeductCredits(ctx context.Context, orgID string, amount int64, reason string) (*models.CreditTransaction, error) {
	if amount < 0 {
		return nil, core.Invalid("amount", "must not be negative")
	}

	const deduct = `
		UPDATE organizations
		SET credit_balance = credit_balance - $1, updated_at = $2
		WHERE id = $3 AND credit_balance >= $1
		RETURNING credit_balance
	`
	const exists = `SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`
	const audit = `
		INSERT INTO credit_transactions (id, organization_id, amount, balance_after, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	txn := &models.CreditTransaction{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Amount:         -amount,
		Reason:         reason,
		CreatedAt:      now,
	}

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, c.q(deduct), amount, now, orgID).Scan(&txn.BalanceAfter)
		if err == sql.ErrNoRows {
			var found bool
			if err := tx.QueryRowContext(ctx, c.q(exists), orgID).Scan(&found); err != nil {
				return fmt.Errorf("organization lookup: %w", err)
			}
			if !found {
				return core.ErrOrganizationNotFound
			}
			return core.ErrInsufficientCredits
		}
		if err != nil {
			return fmt.Errorf("deduct credits: %w", err)
		}
		if _, err := tx.ExecContext(ctx, c.q(audit),
			txn.ID, txn.OrganizationID, txn.Amount, txn.BalanceAfter, txn.Reason, txn.CreatedAt); err != nil {
			return fmt.Errorf("write credit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (c *DatabaseClient) ListCreditTransactions(ctx context.Context, orgID string, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, organization_id, amount, balance_after, reason, created_at
		FROM credit_transactions
		WHERE organization_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, c.q(q), orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Amount, &t.BalanceAfter, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
