package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// Ledger errors.
var (
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrSameAccount indicates a transfer where initiator and target are the same account.
	ErrSameAccount = errors.New("transfer source and target are the same account")
	// ErrInsufficientFunds indicates the debited account would go below its floor.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountFrozen indicates the account does not accept mutations.
	ErrAccountFrozen = errors.New("account is frozen")
)

// Rate limiter errors.
var (
	// ErrCooldownActive indicates the per-account cooldown has not elapsed.
	ErrCooldownActive = errors.New("transfer cooldown active")
	// ErrDailyLimitExceeded indicates the rolling daily cap would be exceeded.
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")
)

// Pending transfer workflow errors.
var (
	// ErrAlreadyDecided indicates the pending transfer has left the pending state.
	ErrAlreadyDecided = errors.New("transfer already decided")
	// ErrAlreadySettled indicates the pending transfer was settled previously.
	ErrAlreadySettled = errors.New("transfer already settled")
	// ErrNotApproved indicates settlement was requested for a non-approved transfer.
	ErrNotApproved = errors.New("transfer is not approved")
	// ErrExpired indicates the record passed its deadline before a decision.
	ErrExpired = errors.New("transfer has expired")
)

// Governance errors.
var (
	// ErrAlreadyVoted indicates the voter has already cast a vote on the proposal.
	ErrAlreadyVoted = errors.New("vote already cast on this proposal")
	// ErrProposalClosed indicates the proposal is no longer open for voting.
	ErrProposalClosed = errors.New("proposal is closed")
	// ErrNotEligible indicates the actor is not a member of the governing body.
	ErrNotEligible = errors.New("not eligible for this governing body")
	// ErrInvalidPayload indicates the proposal payload could not be interpreted.
	ErrInvalidPayload = errors.New("invalid proposal payload")
)

// Store error classes. Transient errors may be retried by the transfer event
// pool; permanent errors never are.
var (
	ErrTransientStore = errors.New("transient store error")
	ErrPermanentStore = errors.New("permanent store error")
)
