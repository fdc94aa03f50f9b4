package domain

import "time"

// Transaction types.
const (
	TypeEarn   = "earn"
	TypeRedeem = "redeem"
)

// Transaction statuses. Delivered is set by the external fulfillment
// process, never by this service.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusDelivered = "delivered"
)

// User is an account profile keyed by email. Created on first sign-in.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Coins   int64  `json:"coins"`
}

// Transaction is an immutable record of one balance-affecting action.
// Amount is positive for earns and negative for redeems.
type Transaction struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"-"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"date"`
}

// DailyCounters tracks per-calendar-day action usage for one user.
// ResetOn is the local date (YYYY-MM-DD) the counters were last reset for;
// a row whose ResetOn is behind today is stale and must be reset before use.
type DailyCounters struct {
	CheckedIn bool   `json:"checked_in"`
	SpinsUsed int    `json:"spins_used"`
	ResetOn   string `json:"reset_on"`
}

// RedemptionRequest is a user's ask to exchange coins for a reward code.
// Fulfillment happens outside this system; the request is append-only here.
type RedemptionRequest struct {
	ID          string    `json:"id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	RewardTitle string    `json:"reward_title"`
	CoinsSpent  int64     `json:"coins_spent"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// RedeemOption is one entry of the static redemption catalog.
type RedeemOption struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Value   string `json:"value" yaml:"value"`
	Coins   int64  `json:"coins" yaml:"coins"`
	Popular bool   `json:"popular,omitempty" yaml:"popular"`
}

// Payout is the result of a completed earn action. Balance is the post-credit
// balance as returned by the store, not a locally computed figure.
type Payout struct {
	ActionID string `json:"action_id"`
	Label    string `json:"label"`
	Amount   int64  `json:"amount"`
	Balance  int64  `json:"balance"`
}
