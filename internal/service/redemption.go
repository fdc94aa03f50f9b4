package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rewardcoins/coinledger/internal/auth"
	"github.com/rewardcoins/coinledger/internal/domain"
)

// Coordinator validates and files redemption requests against the ledger.
// The requested-option set is session-scoped process memory: a new session
// may re-request the same option, matching the shipped app.
type Coordinator struct {
	ledger   Ledger
	txlog    TransactionLog
	requests RedemptionStore
	catalog  []domain.RedeemOption
	logger   *slog.Logger

	mu        sync.Mutex
	requested map[string]map[string]struct{}
}

func NewCoordinator(ledger Ledger, txlog TransactionLog, requests RedemptionStore,
	catalog []domain.RedeemOption, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		ledger:    ledger,
		txlog:     txlog,
		requests:  requests,
		catalog:   catalog,
		logger:    logger,
		requested: make(map[string]map[string]struct{}),
	}
}

// Options returns the static redemption catalog.
func (c *Coordinator) Options() []domain.RedeemOption {
	return c.catalog
}

// Requested reports whether the session already filed this option.
func (c *Coordinator) Requested(sessionID, optionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.requested[sessionID][optionID]
	return ok
}

// RequestRedemption checks balance, files a pending request and deducts the
// cost. The request write and the balance decrement are two separate store
// calls with no transaction across them: if the decrement fails after the
// request was filed, the user keeps the coins while a pending request exists.
// That window is an accepted design gap and is logged for reconciliation.
func (c *Coordinator) RequestRedemption(ctx context.Context, sess auth.Session, optionID string) (domain.RedemptionRequest, error) {
	option, ok := c.findOption(optionID)
	if !ok {
		return domain.RedemptionRequest{}, fmt.Errorf("%w: %s", domain.ErrUnknownOption, optionID)
	}

	if c.Requested(sess.ID, optionID) {
		return domain.RedemptionRequest{}, fmt.Errorf("%w: %s", domain.ErrAlreadyRequested, optionID)
	}

	balance, err := c.ledger.GetBalance(ctx, sess.Email)
	if err != nil {
		return domain.RedemptionRequest{}, err
	}
	if balance < option.Coins {
		return domain.RedemptionRequest{}, fmt.Errorf("%w: need %d coins, have %d",
			domain.ErrInsufficientBalance, option.Coins, balance)
	}

	req := domain.RedemptionRequest{
		ID:          uuid.NewString(),
		UserName:    sess.Name,
		UserEmail:   sess.Email,
		RewardTitle: option.Title,
		CoinsSpent:  option.Coins,
		Status:      domain.StatusPending,
	}
	if err := c.requests.CreateRedemptionRequest(ctx, &req); err != nil {
		return domain.RedemptionRequest{}, err
	}

	if _, err := c.ledger.ApplyDelta(ctx, sess.Email, -option.Coins); err != nil {
		c.logger.Error("redemption request filed but balance decrement failed, needs reconciliation",
			"request_id", req.ID, "user", sess.Email, "option", optionID,
			"coins", option.Coins, "err", err)
		return domain.RedemptionRequest{}, fmt.Errorf("deducting coins for request %s: %w", req.ID, err)
	}

	txn := &domain.Transaction{
		ID:        uuid.NewString(),
		UserEmail: sess.Email,
		Type:      domain.TypeRedeem,
		Title:     option.Title,
		Amount:    -option.Coins,
		Status:    domain.StatusPending,
	}
	if err := c.txlog.AppendTransaction(ctx, txn); err != nil {
		c.logger.Error("redemption accepted but transaction append failed",
			"request_id", req.ID, "user", sess.Email, "err", err)
	}

	c.markRequested(sess.ID, optionID)
	return req, nil
}

func (c *Coordinator) findOption(optionID string) (domain.RedeemOption, bool) {
	for _, opt := range c.catalog {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return domain.RedeemOption{}, false
}

func (c *Coordinator) markRequested(sessionID, optionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.requested[sessionID]
	if !ok {
		set = make(map[string]struct{})
		c.requested[sessionID] = set
	}
	set[optionID] = struct{}{}
}
