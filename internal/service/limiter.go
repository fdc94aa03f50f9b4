package service

import (
	"context"
	"time"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// Limiter enforces the per-calendar-day action caps. Resets are lazy: the
// first query after the local date has advanced rolls the counters forward;
// there is no background timer.
type Limiter struct {
	counters CounterStore
	maxSpins int
	loc      *time.Location
	now      func() time.Time
}

func NewLimiter(counters CounterStore, maxSpins int, loc *time.Location) *Limiter {
	if loc == nil {
		loc = time.Local
	}
	return &Limiter{
		counters: counters,
		maxSpins: maxSpins,
		loc:      loc,
		now:      time.Now,
	}
}

// MaxSpins returns the configured daily spin cap.
func (l *Limiter) MaxSpins() int { return l.maxSpins }

func (l *Limiter) today() string {
	return l.now().In(l.loc).Format("2006-01-02")
}

// Current returns today's counters, resetting stale ones first.
func (l *Limiter) Current(ctx context.Context, email string) (domain.DailyCounters, error) {
	today := l.today()
	c, err := l.counters.GetCounters(ctx, email)
	if err != nil {
		return domain.DailyCounters{}, err
	}
	if c.ResetOn == today {
		return c, nil
	}
	return l.counters.ResetCounters(ctx, email, today)
}

func (l *Limiter) HasCheckedInToday(ctx context.Context, email string) (bool, error) {
	c, err := l.Current(ctx, email)
	if err != nil {
		return false, err
	}
	return c.CheckedIn, nil
}

func (l *Limiter) MarkCheckedIn(ctx context.Context, email string) error {
	if _, err := l.Current(ctx, email); err != nil {
		return err
	}
	return l.counters.SetCheckedIn(ctx, email, l.today())
}

func (l *Limiter) SpinsRemaining(ctx context.Context, email string) (int, error) {
	c, err := l.Current(ctx, email)
	if err != nil {
		return 0, err
	}
	remaining := l.maxSpins - c.SpinsUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ConsumeSpin uses one spin and returns how many remain. The store re-checks
// the cap at consume time, so callers that raced past a SpinsRemaining check
// still fail with ErrLimitExceeded instead of over-consuming.
func (l *Limiter) ConsumeSpin(ctx context.Context, email string) (int, error) {
	if _, err := l.Current(ctx, email); err != nil {
		return 0, err
	}
	used, err := l.counters.ConsumeSpin(ctx, email, l.today(), l.maxSpins)
	if err != nil {
		return 0, err
	}
	return l.maxSpins - used, nil
}
