package service

import (
	"context"
	"sync"
	"time"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// In-memory store fakes mirroring the Postgres semantics: auto-init on first
// access, relative deltas guarded against going negative, cap enforced at
// consume time.

type memLedger struct {
	mu       sync.Mutex
	coins    map[string]int64
	deltaErr error
}

func newMemLedger() *memLedger {
	return &memLedger{coins: make(map[string]int64)}
}

func (m *memLedger) GetBalance(ctx context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coins[email], nil
}

func (m *memLedger) ApplyDelta(ctx context.Context, email string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deltaErr != nil {
		return 0, m.deltaErr
	}
	next := m.coins[email] + delta
	if next < 0 {
		return 0, domain.ErrInsufficientBalance
	}
	m.coins[email] = next
	return next, nil
}

type memCounters struct {
	mu   sync.Mutex
	rows map[string]domain.DailyCounters
}

func newMemCounters() *memCounters {
	return &memCounters{rows: make(map[string]domain.DailyCounters)}
}

func (m *memCounters) GetCounters(ctx context.Context, email string) (domain.DailyCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[email], nil
}

func (m *memCounters) ResetCounters(ctx context.Context, email, today string) (domain.DailyCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	if ok && c.ResetOn == today {
		return c, nil
	}
	c = domain.DailyCounters{ResetOn: today}
	m.rows[email] = c
	return c, nil
}

func (m *memCounters) SetCheckedIn(ctx context.Context, email, today string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[email]
	if c.ResetOn != today {
		return domain.ErrStoreUnavailable
	}
	c.CheckedIn = true
	m.rows[email] = c
	return nil
}

func (m *memCounters) ConsumeSpin(ctx context.Context, email, today string, maxSpins int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[email]
	if c.ResetOn != today || c.SpinsUsed >= maxSpins {
		return 0, domain.ErrLimitExceeded
	}
	c.SpinsUsed++
	m.rows[email] = c
	return c.SpinsUsed, nil
}

type memTxLog struct {
	mu   sync.Mutex
	txns []domain.Transaction
}

func (m *memTxLog) AppendTransaction(ctx context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	m.txns = append(m.txns, *t)
	return nil
}

func (m *memTxLog) ListTransactions(ctx context.Context, email string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []domain.Transaction
	for i := len(m.txns) - 1; i >= 0; i-- {
		if m.txns[i].UserEmail == email {
			list = append(list, m.txns[i])
		}
	}
	return list, nil
}

type memRequests struct {
	mu       sync.Mutex
	requests []domain.RedemptionRequest
}

func (m *memRequests) CreateRedemptionRequest(ctx context.Context, r *domain.RedemptionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.RequestedAt = time.Now()
	m.requests = append(m.requests, *r)
	return nil
}

type stubBridge struct {
	calls int
	err   error
}

func (b *stubBridge) Available() bool { return true }

func (b *stubBridge) Show(ctx context.Context, placementID string) error {
	b.calls++
	return b.err
}

// fakeClock lets tests advance the limiter's calendar day.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(counters CounterStore, maxSpins int, clock *fakeClock) *Limiter {
	l := NewLimiter(counters, maxSpins, time.UTC)
	l.now = clock.Now
	return l
}
