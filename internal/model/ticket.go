package model

import "time"

// TicketStatus is the closed set of lifecycle states of a ticket.  All
// status writes in the repository layer are conditional updates, so a row
// can never hold a value outside this set, and handlers consult the
// transition table below before attempting a write.
type TicketStatus string

const (
	TicketBooked       TicketStatus = "BOOKED"       // purchased and valid for entry
	TicketTransferring TicketStatus = "TRANSFERRING" // a pending transfer exists; frozen
	TicketCheckedIn    TicketStatus = "CHECKED_IN"   // scanned at the venue; terminal
	TicketCancelled    TicketStatus = "CANCELLED"    // cancelled by the buyer; terminal
	TicketTransferred  TicketStatus = "TRANSFERRED"  // ownership moved; booked-equivalent under the new buyer
)

// ticketTransitions enumerates every legal status transition.  TRANSFERRED
// behaves like BOOKED under the new owner: it may be checked in or put into
// another transfer.  CHECKED_IN and CANCELLED are terminal.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketBooked:       {TicketTransferring, TicketCheckedIn, TicketCancelled},
	TicketTransferring: {TicketBooked, TicketTransferred},
	TicketTransferred:  {TicketTransferring, TicketCheckedIn, TicketCancelled},
	TicketCheckedIn:    {},
	TicketCancelled:    {},
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition according to the lifecycle table.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, t := range ticketTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is permitted from s.
func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

// CheckInable reports whether a ticket in this status may be checked in.
func (s TicketStatus) CheckInable() bool {
	return s == TicketBooked || s == TicketTransferred
}

// ParseTicketStatus validates a raw string against the closed status set.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(raw) {
	case TicketBooked, TicketTransferring, TicketCheckedIn, TicketCancelled, TicketTransferred:
		return TicketStatus(raw), true
	}
	return "", false
}

// PaymentStatus is the closed set of payment states of a ticket.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "PENDING"     // awaiting gateway confirmation
	PaymentPaid        PaymentStatus = "PAID"        // settled; required for code/student check-in
	PaymentFailed      PaymentStatus = "FAILED"      // gateway reported failure
	PaymentTransferred PaymentStatus = "TRANSFERRED" // obligation moved with the ticket
)

// ParsePaymentStatus validates a raw string against the closed payment set.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch PaymentStatus(raw) {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentTransferred:
		return PaymentStatus(raw), true
	}
	return "", false
}

// Ticket represents a row in the `tickets` table.  A ticket belongs to an
// event and is owned by its current buyer; the same ownership is mirrored
// in the user_tickets table and both sides are only ever written inside
// the same transaction.
//
// Fields:
//
//	ID            – primary key identifier.
//	EventID       – event the ticket admits to.
//	BuyerID       – current owner of the ticket.
//	BookingCode   – unique human-presentable code (TKT-XXXXXXXXX).
//	QRCode        – opaque payload encoding the booking code, HMAC-signed.
//	Status        – lifecycle status, see TicketStatus.
//	PaymentStatus – payment status, see PaymentStatus.
//	PaymentRef    – external gateway reference (nullable).
//	CancelReason  – reason supplied on cancellation (nullable).
//	CheckInTime   – when the ticket was scanned (nullable).
//	CheckedInBy   – organizer or collaborator who performed the scan (nullable).
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type Ticket struct {
	ID            uint64        // tickets.id
	EventID       uint64        // tickets.event_id
	BuyerID       uint64        // tickets.buyer_id
	BookingCode   string        // tickets.booking_code
	QRCode        string        // tickets.qr_code
	Status        TicketStatus  // tickets.status
	PaymentStatus PaymentStatus // tickets.payment_status
	PaymentRef    *string       // tickets.payment_ref (nullable)
	CancelReason  *string       // tickets.cancel_reason (nullable)
	CheckInTime   *time.Time    // tickets.check_in_time (nullable)
	CheckedInBy   *uint64       // tickets.checked_in_by (nullable)
	CreatedAt     time.Time     // tickets.created_at
	UpdatedAt     time.Time     // tickets.updated_at
}
