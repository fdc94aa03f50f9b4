package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewardcoins/coinledger/internal/auth"
	"github.com/rewardcoins/coinledger/internal/config"
	"github.com/rewardcoins/coinledger/internal/domain"
	"github.com/rewardcoins/coinledger/internal/service"
)

// ProfileStore is the slice of the store the handlers need for sign-in and
// profile reads.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, email, name, picture string) error
	GetUser(ctx context.Context, email string) (*domain.User, error)
}

type Handler struct {
	ledger      service.Ledger
	limiter     *service.Limiter
	dispatcher  *service.Dispatcher
	coordinator *service.Coordinator
	txlog       service.TransactionLog
	profiles    ProfileStore
	provider    *auth.Provider
	sessions    *auth.Sessions
	economy     config.Economy
	logger      *slog.Logger
}

func NewHandler(ledger service.Ledger, limiter *service.Limiter,
	dispatcher *service.Dispatcher, coordinator *service.Coordinator,
	txlog service.TransactionLog, profiles ProfileStore,
	provider *auth.Provider, sessions *auth.Sessions,
	economy config.Economy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ledger:      ledger,
		limiter:     limiter,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		txlog:       txlog,
		profiles:    profiles,
		provider:    provider,
		sessions:    sessions,
		economy:     economy,
		logger:      logger,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// SignInHandler exchanges a provider ID token for a session token plus the
// user's profile and live balance. A disabled provider yields the demo
// identity instead of blocking sign-in.
func (h *Handler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/auth/signin"))
	defer timer.ObserveDuration()

	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/auth/signin")
		return
	}

	identity, err := h.provider.SignIn(req.IDToken)
	if err != nil {
		h.logger.Warn("sign-in rejected", "err", err)
		respondWithError(w, http.StatusUnauthorized, err.Error(), "POST", "/auth/signin")
		return
	}

	if err := h.profiles.UpsertProfile(r.Context(), identity.Email, identity.Name, identity.Picture); err != nil {
		h.respondServiceError(w, "POST", "/auth/signin", err)
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), identity.Email)
	if err != nil {
		h.respondServiceError(w, "POST", "/auth/signin", err)
		return
	}

	token, _, err := h.sessions.Issue(identity)
	if err != nil {
		h.respondServiceError(w, "POST", "/auth/signin", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": domain.User{
			Email:   identity.Email,
			Name:    identity.Name,
			Picture: identity.Picture,
			Coins:   balance,
		},
	}, "POST", "/auth/signin")
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "GET", "/me")
		return
	}
	user, err := h.profiles.GetUser(r.Context(), sess.Email)
	if err != nil {
		h.respondServiceError(w, "GET", "/me", err)
		return
	}
	respondWithJSON(w, http.StatusOK, user, "GET", "/me")
}

type actionView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	RewardLabel string `json:"reward_label"`
	Completed   bool   `json:"completed"`
	Enabled     bool   `json:"enabled"`
}

// ActionsHandler lists the earn catalog with the caller's daily state.
func (h *Handler) ActionsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "GET", "/actions")
		return
	}

	counters, err := h.limiter.Current(r.Context(), sess.Email)
	if err != nil {
		h.respondServiceError(w, "GET", "/actions", err)
		return
	}
	remaining := h.limiter.MaxSpins() - counters.SpinsUsed
	if remaining < 0 {
		remaining = 0
	}

	adDone := h.dispatcher.Completed(sess.ID, service.ActionWatchAd)
	actions := []actionView{
		{
			ID:          service.ActionDailyCheckin,
			Title:       "Daily Check-in",
			RewardLabel: coinsLabel(h.economy.CheckinReward),
			Completed:   counters.CheckedIn,
			Enabled:     !counters.CheckedIn,
		},
		{
			ID:          service.ActionWatchAd,
			Title:       "Watch Ad",
			RewardLabel: coinsLabel(h.economy.AdReward),
			Completed:   adDone,
			Enabled:     !adDone,
		},
		{
			ID:          service.ActionSpinWheel,
			Title:       "Spin & Win",
			RewardLabel: wheelLabel(h.economy.WheelSegments),
			Enabled:     remaining > 0,
		},
		{
			// Advertised in the earn catalog but not dispatchable yet,
			// same as the shipped app.
			ID:          "referral",
			Title:       "Invite Friends",
			RewardLabel: coinsLabel(referralRewardDisplay),
			Enabled:     false,
		},
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"actions":           actions,
		"checked_in_today":  counters.CheckedIn,
		"spins_used_today":  counters.SpinsUsed,
		"spins_remaining":   remaining,
		"max_spins_per_day": h.limiter.MaxSpins(),
	}, "GET", "/actions")
}

// CompleteActionHandler runs one earn action.
func (h *Handler) CompleteActionHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/actions/{id}/complete"))
	defer timer.ObserveDuration()

	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "POST", "/actions/{id}/complete")
		return
	}
	actionID := mux.Vars(r)["id"]

	payout, err := h.dispatcher.CompleteAction(r.Context(), sess, actionID)
	if err != nil {
		h.respondServiceError(w, "POST", "/actions/{id}/complete", err)
		return
	}
	respondWithJSON(w, http.StatusOK, payout, "POST", "/actions/{id}/complete")
}

// TransactionsHandler returns the history with earn/redeem totals.
func (h *Handler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "GET", "/transactions")
		return
	}
	list, err := h.txlog.ListTransactions(r.Context(), sess.Email)
	if err != nil {
		h.respondServiceError(w, "GET", "/transactions", err)
		return
	}

	var earned, redeemed int64
	for _, t := range list {
		switch t.Type {
		case domain.TypeEarn:
			earned += t.Amount
		case domain.TypeRedeem:
			redeemed += -t.Amount
		}
	}
	if list == nil {
		list = []domain.Transaction{}
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"transactions":   list,
		"total_earned":   earned,
		"total_redeemed": redeemed,
	}, "GET", "/transactions")
}

type redeemOptionView struct {
	domain.RedeemOption
	Affordable bool `json:"affordable"`
	Requested  bool `json:"requested"`
}

// RedeemOptionsHandler lists the catalog with affordability for the caller.
func (h *Handler) RedeemOptionsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "GET", "/redeem/options")
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), sess.Email)
	if err != nil {
		h.respondServiceError(w, "GET", "/redeem/options", err)
		return
	}

	options := h.coordinator.Options()
	views := make([]redeemOptionView, 0, len(options))
	for _, opt := range options {
		views = append(views, redeemOptionView{
			RedeemOption: opt,
			Affordable:   balance >= opt.Coins,
			Requested:    h.coordinator.Requested(sess.ID, opt.ID),
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"options": views,
	}, "GET", "/redeem/options")
}

// RedeemHandler files a redemption request for one catalog option.
func (h *Handler) RedeemHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/redeem/{id}"))
	defer timer.ObserveDuration()

	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not signed in", "POST", "/redeem/{id}")
		return
	}
	optionID := mux.Vars(r)["id"]

	req, err := h.coordinator.RequestRedemption(r.Context(), sess, optionID)
	if err != nil {
		h.respondServiceError(w, "POST", "/redeem/{id}", err)
		return
	}

	// Re-read so the response reflects the stored balance, not arithmetic.
	balance, err := h.ledger.GetBalance(r.Context(), sess.Email)
	if err != nil {
		h.respondServiceError(w, "POST", "/redeem/{id}", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"request": req,
		"balance": balance,
	}, "POST", "/redeem/{id}")
}

// respondServiceError maps domain errors onto the HTTP taxonomy. Anything
// unrecognized is treated as a retryable backend failure.
func (h *Handler) respondServiceError(w http.ResponseWriter, method, endpoint string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrUnknownOption):
		respondWithError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrAlreadyClaimed), errors.Is(err, domain.ErrAlreadyRequested):
		respondWithError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrLimitExceeded):
		respondWithError(w, http.StatusTooManyRequests, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrIdentityProvider):
		respondWithError(w, http.StatusUnauthorized, err.Error(), method, endpoint)
	default:
		h.logger.Error("request failed", "method", method, "endpoint", endpoint, "err", err)
		respondWithError(w, http.StatusServiceUnavailable,
			"Service temporarily unavailable, please retry", method, endpoint)
	}
}
