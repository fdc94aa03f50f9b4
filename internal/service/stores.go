// Package service holds the economy logic: the ledger contract, the daily
// limiter, the reward dispatcher and the redemption coordinator. Each service
// takes its store as a narrow interface so tests run against in-memory fakes.
package service

import (
	"context"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// Ledger is the single source of truth for coin balances. Implementations
// must auto-initialize to 0 on first access and route all mutations through
// an atomic relative increment that never lets the balance go negative.
type Ledger interface {
	GetBalance(ctx context.Context, email string) (int64, error)
	ApplyDelta(ctx context.Context, email string, delta int64) (int64, error)
}

// CounterStore persists per-user daily counters. ConsumeSpin must enforce
// the cap at consume time; ResetCounters must be idempotent per date.
type CounterStore interface {
	GetCounters(ctx context.Context, email string) (domain.DailyCounters, error)
	ResetCounters(ctx context.Context, email, today string) (domain.DailyCounters, error)
	SetCheckedIn(ctx context.Context, email, today string) error
	ConsumeSpin(ctx context.Context, email, today string, maxSpins int) (int, error)
}

// TransactionLog records balance-affecting actions.
type TransactionLog interface {
	AppendTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactions(ctx context.Context, email string) ([]domain.Transaction, error)
}

// RedemptionStore files pending redemption requests for external fulfillment.
type RedemptionStore interface {
	CreateRedemptionRequest(ctx context.Context, r *domain.RedemptionRequest) error
}
