package model

import "time"

// EventStatus is the closed set of states of an event.
type EventStatus string

const (
	EventActive   EventStatus = "ACTIVE"   // open for booking and check-in
	EventCanceled EventStatus = "CANCELED" // cancelled by its organizer
)

// ParseEventStatus validates a raw string against the closed event set.
func ParseEventStatus(raw string) (EventStatus, bool) {
	switch EventStatus(raw) {
	case EventActive, EventCanceled:
		return EventStatus(raw), true
	}
	return "", false
}

// Event represents a row in the `events` table.  MaxAttendees of zero
// means unlimited capacity.  TicketsSold is the capacity ledger counter:
// it is only ever mutated through EventRepo.ReserveSlotTx and
// ReleaseSlotTx, both single conditional updates, so tickets_sold can
// never exceed max_attendees when a limit is set.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name of the event.
//	Description  – free-form description.
//	Location     – venue name or address.
//	StartsAt     – scheduled start time (UTC).
//	PriceCents   – ticket price in cents; zero means free.
//	MaxAttendees – capacity ceiling; zero means unlimited.
//	TicketsSold  – capacity ledger counter.
//	CreatedBy    – organizer who created the event.
//	Status       – current state, see EventStatus.
//	IsDeleted    – soft-delete flag.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Event struct {
	ID           uint64      // events.id
	Name         string      // events.name
	Description  string      // events.description
	Location     string      // events.location
	StartsAt     time.Time   // events.starts_at
	PriceCents   uint32      // events.price_cents
	MaxAttendees uint32      // events.max_attendees
	TicketsSold  uint32      // events.tickets_sold
	CreatedBy    uint64      // events.created_by
	Status       EventStatus // events.status
	IsDeleted    bool        // events.is_deleted
	CreatedAt    time.Time   // events.created_at
	UpdatedAt    time.Time   // events.updated_at
}

// Free reports whether tickets for the event cost nothing.  Free tickets
// skip the payment gateway entirely and are persisted as PAID.
func (e *Event) Free() bool { return e.PriceCents == 0 }
