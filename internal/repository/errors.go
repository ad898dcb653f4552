// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrConflict signals that an operation
// cannot proceed because of the entity's current state (e.g.
// cancelling a ticket that has already been checked in).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own or administer. Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as initiating a transfer for
// a ticket that is already transferring. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound indicates that an event does not exist or has
// been soft-deleted.
var ErrEventNotFound = errors.New("event not found")

// ErrEventFull indicates that the capacity ledger rejected a
// booking because tickets_sold has reached max_attendees.
var ErrEventFull = errors.New("event is fully booked")

// ErrTicketNotFound indicates that a ticket does not exist under
// the given identifier, booking code or QR payload.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrTicketCancelled indicates that the ticket exists but has been
// cancelled and can no longer be used.
var ErrTicketCancelled = errors.New("ticket is cancelled")

// ErrAlreadyCheckedIn indicates that the ticket has already reached
// its terminal checked-in state; the transition happened exactly once.
var ErrAlreadyCheckedIn = errors.New("ticket already checked in")

// ErrTransferNotFound indicates that no pending transfer matches the
// given ticket and recipient. Terminal transfers report the same
// error: once decided, a request behaves as if it no longer exists.
var ErrTransferNotFound = errors.New("transfer request not found")

// ErrUserNotFound indicates that a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")
