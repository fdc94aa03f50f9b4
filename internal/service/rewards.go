package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/rewardcoins/coinledger/internal/adbridge"
	"github.com/rewardcoins/coinledger/internal/auth"
	"github.com/rewardcoins/coinledger/internal/domain"
)

// Recognized earn actions.
const (
	ActionDailyCheckin = "daily-checkin"
	ActionWatchAd      = "watch-ad"
	ActionSpinWheel    = "spin-wheel"
)

const spinLabel = "Spin & Win"

// Dispatcher maps completed earn actions to coin payouts. The completed-task
// sets are held per session in process memory and die with the process, so a
// new session may repeat watch-ad; that matches the shipped app.
type Dispatcher struct {
	ledger    Ledger
	limiter   *Limiter
	txlog     TransactionLog
	bridge    adbridge.Bridge
	placement string
	logger    *slog.Logger

	checkinReward int64
	adReward      int64
	segments      []int64

	mu        sync.Mutex
	rng       *rand.Rand
	completed map[string]map[string]struct{}
}

// NewDispatcher wires the dispatcher. The random source is injected so tests
// can seed it and assert deterministic wheel outcomes.
func NewDispatcher(ledger Ledger, limiter *Limiter, txlog TransactionLog,
	bridge adbridge.Bridge, placement string,
	checkinReward, adReward int64, segments []int64,
	rng *rand.Rand, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ledger:        ledger,
		limiter:       limiter,
		txlog:         txlog,
		bridge:        bridge,
		placement:     placement,
		logger:        logger,
		checkinReward: checkinReward,
		adReward:      adReward,
		segments:      segments,
		rng:           rng,
		completed:     make(map[string]map[string]struct{}),
	}
}

// CompleteAction runs one earn action for the session's user and returns the
// payout with the post-credit balance.
func (d *Dispatcher) CompleteAction(ctx context.Context, sess auth.Session, actionID string) (domain.Payout, error) {
	switch actionID {
	case ActionDailyCheckin:
		return d.dailyCheckin(ctx, sess)
	case ActionWatchAd:
		return d.watchAd(ctx, sess)
	case ActionSpinWheel:
		return d.spinWheel(ctx, sess)
	default:
		return domain.Payout{}, fmt.Errorf("%w: %s", domain.ErrUnknownAction, actionID)
	}
}

// Completed reports whether the session already finished a session-scoped
// action (currently only watch-ad).
func (d *Dispatcher) Completed(sessionID, actionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.completed[sessionID][actionID]
	return ok
}

func (d *Dispatcher) dailyCheckin(ctx context.Context, sess auth.Session) (domain.Payout, error) {
	checkedIn, err := d.limiter.HasCheckedInToday(ctx, sess.Email)
	if err != nil {
		return domain.Payout{}, err
	}
	if checkedIn {
		return domain.Payout{}, fmt.Errorf("%w: daily check-in", domain.ErrAlreadyClaimed)
	}
	if err := d.bridge.Show(ctx, d.placement); err != nil {
		return domain.Payout{}, fmt.Errorf("ad step failed: %w", err)
	}
	payout, err := d.credit(ctx, sess.Email, ActionDailyCheckin, "Daily Check-in", d.checkinReward, "")
	if err != nil {
		return domain.Payout{}, err
	}
	if err := d.limiter.MarkCheckedIn(ctx, sess.Email); err != nil {
		return domain.Payout{}, err
	}
	return payout, nil
}

func (d *Dispatcher) watchAd(ctx context.Context, sess auth.Session) (domain.Payout, error) {
	d.mu.Lock()
	_, done := d.completed[sess.ID][ActionWatchAd]
	d.mu.Unlock()
	if done {
		return domain.Payout{}, fmt.Errorf("%w: watch-ad", domain.ErrAlreadyClaimed)
	}
	if err := d.bridge.Show(ctx, d.placement); err != nil {
		return domain.Payout{}, fmt.Errorf("ad step failed: %w", err)
	}
	payout, err := d.credit(ctx, sess.Email, ActionWatchAd, "Watch Ad", d.adReward, "")
	if err != nil {
		return domain.Payout{}, err
	}
	d.markCompleted(sess.ID, ActionWatchAd)
	return payout, nil
}

func (d *Dispatcher) spinWheel(ctx context.Context, sess auth.Session) (domain.Payout, error) {
	remaining, err := d.limiter.SpinsRemaining(ctx, sess.Email)
	if err != nil {
		return domain.Payout{}, err
	}
	if remaining == 0 {
		return domain.Payout{}, fmt.Errorf("%w: no spins left today", domain.ErrLimitExceeded)
	}

	amount := d.draw()

	// ConsumeSpin re-checks the cap, so two sessions racing past the
	// remaining check above cannot both get the last spin.
	if _, err := d.limiter.ConsumeSpin(ctx, sess.Email); err != nil {
		return domain.Payout{}, err
	}

	desc := fmt.Sprintf("Won %d coins from wheel spin", amount)
	return d.credit(ctx, sess.Email, ActionSpinWheel, spinLabel, amount, desc)
}

// draw picks one wheel segment, each equally weighted.
func (d *Dispatcher) draw() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.segments[d.rng.Intn(len(d.segments))]
}

func (d *Dispatcher) credit(ctx context.Context, email, actionID, label string, amount int64, desc string) (domain.Payout, error) {
	balance, err := d.ledger.ApplyDelta(ctx, email, amount)
	if err != nil {
		return domain.Payout{}, err
	}
	txn := &domain.Transaction{
		ID:          uuid.NewString(),
		UserEmail:   email,
		Type:        domain.TypeEarn,
		Title:       label,
		Amount:      amount,
		Status:      domain.StatusCompleted,
		Description: desc,
	}
	if err := d.txlog.AppendTransaction(ctx, txn); err != nil {
		// The coins are credited; only the history row is missing.
		d.logger.Error("earn recorded on ledger but transaction append failed",
			"user", email, "action", actionID, "amount", amount, "err", err)
	}
	return domain.Payout{ActionID: actionID, Label: label, Amount: amount, Balance: balance}, nil
}

func (d *Dispatcher) markCompleted(sessionID, actionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.completed[sessionID]
	if !ok {
		set = make(map[string]struct{})
		d.completed[sessionID] = set
	}
	set[actionID] = struct{}{}
}
