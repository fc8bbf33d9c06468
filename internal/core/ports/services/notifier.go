package services

import (
	"context"
	"time"
)

// EventKind names a notification event emitted by the engine.
type EventKind string

const (
	EventTransferSettled  EventKind = "TRANSFER_SETTLED"
	EventTransferFailed   EventKind = "TRANSFER_FAILED"
	EventProposalResolved EventKind = "PROPOSAL_RESOLVED"
	EventProposalExecuted EventKind = "PROPOSAL_EXECUTED"
)

// InteractionToken is a single-use, time-boxed capability handed in by the
// command layer for replying to the originating interaction. It travels with
// the queued work item rather than the call stack because settlement is
// decoupled from the originating request.
type InteractionToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Usable reports whether the token can still be spent at the given time.
func (t *InteractionToken) Usable(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// Notification is the payload handed to the notification collaborator.
type Notification struct {
	CommunityID string            `json:"communityID"`
	RecipientID string            `json:"recipientID"`
	Event       EventKind         `json:"event"`
	Fields      map[string]string `json:"fields,omitempty"`
	Token       *InteractionToken `json:"token,omitempty"`
}

// Notifier delivers notifications. Fire-and-forget from the engine's
// perspective: delivery failure is logged by the caller and never surfaced
// as an engine error, and never rolls back a settled transfer.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
