package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// GetBalance returns the user's coin balance, initializing it to 0 on first
// access. A missing row is never surfaced to callers.
func (s *Store) GetBalance(ctx context.Context, email string) (int64, error) {
	var coins int64
	err := s.db.QueryRow(ctx, "SELECT coins FROM users WHERE email = $1", email).Scan(&coins)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.initUser(ctx, email); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying balance: %w", err)
	}
	return coins, nil
}

// ApplyDelta adjusts the balance by a relative amount through a single
// guarded UPDATE and returns the new balance as reported by the store.
// A delta that would drive the balance negative fails with
// ErrInsufficientBalance and leaves the row untouched.
func (s *Store) ApplyDelta(ctx context.Context, email string, delta int64) (int64, error) {
	for attempt := 0; attempt < 2; attempt++ {
		var coins int64
		err := s.db.QueryRow(ctx,
			"UPDATE users SET coins = coins + $2 WHERE email = $1 AND coins + $2 >= 0 RETURNING coins",
			email, delta).Scan(&coins)
		if err == nil {
			return coins, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("applying balance delta: %w", err)
		}

		// No row matched: either the user is unknown or the delta would
		// go negative. Disambiguate, auto-initialize once, and retry.
		var exists bool
		if err := s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
			return 0, fmt.Errorf("checking account: %w", err)
		}
		if exists {
			return 0, domain.ErrInsufficientBalance
		}
		if err := s.initUser(ctx, email); err != nil {
			return 0, err
		}
	}
	return 0, domain.ErrInsufficientBalance
}

// UpsertProfile creates the user on first sign-in and refreshes the display
// fields afterwards. The balance is never overwritten here.
func (s *Store) UpsertProfile(ctx context.Context, email, name, picture string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (email, name, picture, coins) VALUES ($1, $2, $3, 0)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, picture = EXCLUDED.picture`,
		email, name, picture)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// GetUser returns the full profile with the live balance.
func (s *Store) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx,
		"SELECT email, name, picture, coins FROM users WHERE email = $1", email).
		Scan(&u.Email, &u.Name, &u.Picture, &u.Coins)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.initUser(ctx, email); err != nil {
			return nil, err
		}
		return &domain.User{Email: email}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (s *Store) initUser(ctx context.Context, email string) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO users (email, coins) VALUES ($1, 0) ON CONFLICT (email) DO NOTHING", email)
	if err != nil {
		return fmt.Errorf("initializing user: %w", err)
	}
	return nil
}
