package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// GetCounters returns the user's daily counters. A user with no row yet gets
// the zero value; the limiter treats an empty ResetOn as stale and resets.
func (s *Store) GetCounters(ctx context.Context, email string) (domain.DailyCounters, error) {
	var c domain.DailyCounters
	err := s.db.QueryRow(ctx,
		"SELECT checked_in, spins_used, reset_on::text FROM daily_counters WHERE email = $1", email).
		Scan(&c.CheckedIn, &c.SpinsUsed, &c.ResetOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyCounters{}, nil
	}
	if err != nil {
		return domain.DailyCounters{}, fmt.Errorf("querying daily counters: %w", err)
	}
	return c, nil
}

// ResetCounters rolls the counters forward to today. The conditional upsert
// makes the reset idempotent: if another session already reset for the same
// date, the current row is returned unchanged.
func (s *Store) ResetCounters(ctx context.Context, email, today string) (domain.DailyCounters, error) {
	var c domain.DailyCounters
	err := s.db.QueryRow(ctx, `
		INSERT INTO daily_counters (email, checked_in, spins_used, reset_on)
		VALUES ($1, false, 0, $2)
		ON CONFLICT (email) DO UPDATE SET checked_in = false, spins_used = 0, reset_on = EXCLUDED.reset_on
		WHERE daily_counters.reset_on <> EXCLUDED.reset_on
		RETURNING checked_in, spins_used, reset_on::text`,
		email, today).Scan(&c.CheckedIn, &c.SpinsUsed, &c.ResetOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.GetCounters(ctx, email)
	}
	if err != nil {
		return domain.DailyCounters{}, fmt.Errorf("resetting daily counters: %w", err)
	}
	return c, nil
}

// SetCheckedIn marks today's check-in. The date guard keeps a slow request
// from marking a day it did not check against.
func (s *Store) SetCheckedIn(ctx context.Context, email, today string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE daily_counters SET checked_in = true WHERE email = $1 AND reset_on = $2",
		email, today)
	if err != nil {
		return fmt.Errorf("marking check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking check-in: counters not current for %s", today)
	}
	return nil
}

// ConsumeSpin increments today's spin count, guarded against the cap at
// consume time so a racing double-consume can never exceed it. Returns the
// number of spins used after the increment.
func (s *Store) ConsumeSpin(ctx context.Context, email, today string, maxSpins int) (int, error) {
	var used int
	err := s.db.QueryRow(ctx, `
		UPDATE daily_counters SET spins_used = spins_used + 1
		WHERE email = $1 AND reset_on = $2 AND spins_used < $3
		RETURNING spins_used`,
		email, today, maxSpins).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrLimitExceeded
	}
	if err != nil {
		return 0, fmt.Errorf("consuming spin: %w", err)
	}
	return used, nil
}
