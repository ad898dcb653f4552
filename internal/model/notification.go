package model

import "time"

// Notification is a row in the `notifications` table.  Rows are written
// by the queue consumer after the triggering state transition has already
// committed; a lost notification never implies a lost transition.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – recipient of the notification.
//	Kind      – machine-readable category (ticket_booked, ticket_transfer, ...).
//	Title     – short human-readable title.
//	Body      – message body.
//	Data      – JSON-encoded metadata map.
//	IsRead    – whether the recipient has seen it.
//	CreatedAt – creation timestamp.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	Kind      string    // notifications.kind
	Title     string    // notifications.title
	Body      string    // notifications.body
	Data      string    // notifications.data (JSON)
	IsRead    bool      // notifications.is_read
	CreatedAt time.Time // notifications.created_at
}
