// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification kinds published by the core. Consumers use them to route
// and to label persisted notifications.
const (
	KindTicketBooked    = "ticket_booked"
	KindTicketCancelled = "ticket_cancelled"
	KindTicketTransfer  = "ticket_transfer"
	KindCheckIn         = "check_in"
	KindNewEvent        = "new_event"
)

// NotificationEvent is published whenever a ticket or event state
// transition commits. It carries everything a downstream consumer needs
// to persist an in-app notification and hand the push tokens to a
// delivery service without querying the primary database. Publishing is
// fire-and-forget: the transition that produced the event has already
// committed and is never rolled back on delivery failure.
type NotificationEvent struct {
	Kind            string            `json:"kind"`
	RecipientID     uint64            `json:"recipient_id"`
	RecipientTokens []string          `json:"recipient_tokens"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Data            map[string]string `json:"data,omitempty"`
	EmittedAt       string            `json:"emitted_at"`
}
