package domain

import "errors"

var (
	// ErrAlreadyClaimed is returned when an action was already completed
	// today (daily check-in) or within this session (watch-ad).
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrAlreadyRequested is returned when the same redeem option was
	// already requested within this session.
	ErrAlreadyRequested = errors.New("already requested")

	// ErrLimitExceeded is returned when the daily spin cap is exhausted.
	ErrLimitExceeded = errors.New("daily limit exceeded")

	// ErrInsufficientBalance is returned when the user cannot afford a
	// redemption or when a delta would drive the balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownAction is returned for an action id outside the payout table.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownOption is returned for a redeem option id outside the catalog.
	ErrUnknownOption = errors.New("unknown redeem option")

	// ErrStoreUnavailable wraps backend failures that the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIdentityProvider wraps sign-in token verification failures.
	ErrIdentityProvider = errors.New("identity provider error")
)
