package store

import (
	"context"
	"fmt"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// AppendTransaction records one balance-affecting action. The row is
// immutable once written; only the external fulfillment process updates
// status afterwards. CreatedAt is assigned by the database.
func (s *Store) AppendTransaction(ctx context.Context, t *domain.Transaction) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO transactions (id, email, type, title, amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.UserEmail, t.Type, t.Title, t.Amount, t.Status, t.Description).
		Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the user's history, newest first.
func (s *Store) ListTransactions(ctx context.Context, email string) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, email, type, title, amount, status, description, created_at
		FROM transactions WHERE email = $1 ORDER BY created_at DESC`,
		email)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var list []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserEmail, &t.Type, &t.Title, &t.Amount,
			&t.Status, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return list, nil
}

// CreateRedemptionRequest files a pending redemption for external
// fulfillment. The collection is append-only and the timestamp is
// server-assigned.
func (s *Store) CreateRedemptionRequest(ctx context.Context, r *domain.RedemptionRequest) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO redeem_requests (id, user_name, user_email, reward_title, coins_spent, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING requested_at`,
		r.ID, r.UserName, r.UserEmail, r.RewardTitle, r.CoinsSpent, r.Status).
		Scan(&r.RequestedAt)
	if err != nil {
		return fmt.Errorf("creating redemption request: %w", err)
	}
	return nil
}
