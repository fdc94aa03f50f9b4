package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardcoins/coinledger/internal/domain"
)

const testUser = "sarah@example.com"

func TestLimiterFirstQueryInitializesCounters(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	l := newTestLimiter(newMemCounters(), 20, clock)

	c, err := l.Current(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, c.CheckedIn)
	assert.Equal(t, 0, c.SpinsUsed)
	assert.Equal(t, "2026-03-14", c.ResetOn)
}

func TestLimiterQueriesAreIdempotentWithinADay(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	l := newTestLimiter(newMemCounters(), 20, clock)
	ctx := context.Background()

	require.NoError(t, l.MarkCheckedIn(ctx, testUser))
	_, err := l.ConsumeSpin(ctx, testUser)
	require.NoError(t, err)

	first, err := l.Current(ctx, testUser)
	require.NoError(t, err)
	clock.Advance(6 * time.Hour) // still the same calendar day
	second, err := l.Current(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLimiterResetsLazilyOnDateChange(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC))
	l := newTestLimiter(newMemCounters(), 20, clock)
	ctx := context.Background()

	require.NoError(t, l.MarkCheckedIn(ctx, testUser))
	_, err := l.ConsumeSpin(ctx, testUser)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour) // past midnight

	checkedIn, err := l.HasCheckedInToday(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, checkedIn)

	remaining, err := l.SpinsRemaining(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 20, remaining)
}

func TestLimiterConsumeSpinEnforcesCap(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	l := newTestLimiter(newMemCounters(), 20, clock)
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		remaining, err := l.ConsumeSpin(ctx, testUser)
		require.NoError(t, err, "consume %d", i)
		assert.Equal(t, 20-i, remaining)
	}

	_, err := l.ConsumeSpin(ctx, testUser)
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)

	remaining, err := l.SpinsRemaining(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestLimiterSpinsResetAfterRollover(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	l := newTestLimiter(newMemCounters(), 2, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.ConsumeSpin(ctx, testUser)
		require.NoError(t, err)
	}
	_, err := l.ConsumeSpin(ctx, testUser)
	require.ErrorIs(t, err, domain.ErrLimitExceeded)

	clock.Advance(24 * time.Hour)

	remaining, err := l.ConsumeSpin(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}
