// Package repository contains data access logic for tickets. A ticket's
// owner is recorded twice: as tickets.buyer_id and as a row in the
// user_tickets owned-list. Every method that changes ownership writes
// both inside the caller's transaction, which is the invariant the
// transfer protocol depends on. Status changes are conditional UPDATEs
// so racing requests cannot apply the same transition twice.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrDuplicateBookingCode is returned by CreateTx when the generated
// booking code collides with an existing one. Callers should generate a
// fresh code and retry the insert.
var ErrDuplicateBookingCode = errors.New("booking code already exists")

// TicketRepo manages persistence for tickets and the user_tickets
// owned-list.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying sql.DB for cross-repository transactions.
func (r *TicketRepo) DB() *sql.DB { return r.db }

const ticketColumns = `id, event_id, buyer_id, booking_code, qr_code, status, payment_status,
    payment_ref, cancel_reason, check_in_time, checked_in_by, created_at, updated_at`

func scanTicket(row interface{ Scan(...interface{}) error }) (*model.Ticket, error) {
	var t model.Ticket
	var status, payStatus string
	var payRef, reason sql.NullString
	var checkInTime sql.NullTime
	var checkedInBy sql.NullInt64
	err := row.Scan(
		&t.ID, &t.EventID, &t.BuyerID, &t.BookingCode, &t.QRCode, &status, &payStatus,
		&payRef, &reason, &checkInTime, &checkedInBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = model.TicketStatus(status)
	t.PaymentStatus = model.PaymentStatus(payStatus)
	if payRef.Valid {
		v := payRef.String
		t.PaymentRef = &v
	}
	if reason.Valid {
		v := reason.String
		t.CancelReason = &v
	}
	if checkInTime.Valid {
		v := checkInTime.Time.UTC()
		t.CheckInTime = &v
	}
	if checkedInBy.Valid {
		v := uint64(checkedInBy.Int64)
		t.CheckedInBy = &v
	}
	return &t, nil
}

// CreateTx inserts a new ticket and its owned-list row within the scope
// of an existing transaction. It populates the generated ID and
// DB-default fields on the provided struct. A booking code collision is
// reported as ErrDuplicateBookingCode so the caller can retry with a
// fresh code.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets (event_id, buyer_id, booking_code, qr_code, status, payment_status)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		t.EventID, t.BuyerID, t.BookingCode, t.QRCode, string(t.Status), string(t.PaymentStatus))
	if err != nil {
		// MySQL 1062 = duplicate entry; the only unique key hit by this
		// insert is booking_code.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateBookingCode
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_tickets (owner_id, ticket_id) VALUES (?, ?)`, t.BuyerID, t.ID); err != nil {
		return err
	}
	const sel = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	created, err := scanTicket(tx.QueryRowContext(ctx, sel, t.ID))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetByID returns a ticket by its primary key.
func (r *TicketRepo) GetByID(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, ticketID))
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// GetByBookingCode returns a ticket by its unique booking code.
func (r *TicketRepo) GetByBookingCode(ctx context.Context, code string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_code = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, code))
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// TicketDetail is a ticket enriched with its event's denormalized
// summary, as returned by the history endpoint.
type TicketDetail struct {
	ID            uint64     `json:"id"`
	EventID       uint64     `json:"event_id"`
	EventName     string     `json:"event_name"`
	EventLocation string     `json:"event_location"`
	EventStartsAt string     `json:"event_starts_at"`
	PriceCents    uint32     `json:"price_cents"`
	BookingCode   string     `json:"booking_code"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	CheckInTime   *time.Time `json:"check_in_time,omitempty"`
}

// ListByUser returns all tickets currently owned by the given user along
// with event details, newest booking first. When no tickets exist, an
// empty slice is returned.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]TicketDetail, error) {
	const q = `SELECT t.id, t.event_id, e.name, e.location, e.starts_at, e.price_cents,
                      t.booking_code, t.status, t.payment_status, t.check_in_time
               FROM tickets t
               JOIN user_tickets ut ON ut.ticket_id = t.id AND ut.owner_id = ?
               JOIN events e ON e.id = t.event_id
               WHERE t.buyer_id = ?
               ORDER BY t.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]TicketDetail, 0)
	for rows.Next() {
		var d TicketDetail
		var startsAt time.Time
		var checkIn sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.EventName, &d.EventLocation, &startsAt, &d.PriceCents,
			&d.BookingCode, &d.Status, &d.PaymentStatus, &checkIn,
		); err != nil {
			return nil, err
		}
		d.EventStartsAt = startsAt.UTC().Format(time.RFC3339)
		if checkIn.Valid {
			v := checkIn.Time.UTC()
			d.CheckInTime = &v
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// MarkTransferringTx freezes a ticket for a pending transfer. The update
// only applies while the ticket is owned by ownerID and in a
// booked-equivalent status, so a second initiate or a concurrent check-in
// loses the race. Zero affected rows is resolved to the precise error by
// re-reading the row.
func (r *TicketRepo) MarkTransferringTx(ctx context.Context, tx *sql.Tx, ticketID, ownerID uint64) error {
	const q = `UPDATE tickets SET status = 'TRANSFERRING'
               WHERE id = ? AND buyer_id = ? AND status IN ('BOOKED', 'TRANSFERRED')`
	res, err := tx.ExecContext(ctx, q, ticketID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	t, err := r.getTx(ctx, tx, ticketID)
	if err != nil {
		return err
	}
	if t.BuyerID != ownerID {
		return ErrForbidden
	}
	return statusError(t.Status)
}

// RevertToBookedTx returns a transferring ticket to its owner's control
// after the recipient rejects. Ownership is unchanged.
func (r *TicketRepo) RevertToBookedTx(ctx context.Context, tx *sql.Tx, ticketID uint64) error {
	const q = `UPDATE tickets SET status = 'BOOKED' WHERE id = ? AND status = 'TRANSFERRING'`
	res, err := tx.ExecContext(ctx, q, ticketID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ReassignOwnerTx moves ownership of a transferring ticket to toUser:
// buyer_id is rewritten, the status becomes TRANSFERRED (booked-equivalent
// under the new owner) and the owned-list rows of both parties are
// updated. All writes share the caller's transaction; if any fails the
// whole unit rolls back and no intermediate state is observable.
func (r *TicketRepo) ReassignOwnerTx(ctx context.Context, tx *sql.Tx, ticketID, fromUser, toUser uint64) error {
	const q = `UPDATE tickets SET buyer_id = ?, status = 'TRANSFERRED'
               WHERE id = ? AND buyer_id = ? AND status = 'TRANSFERRING'`
	res, err := tx.ExecContext(ctx, q, toUser, ticketID, fromUser)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_tickets WHERE owner_id = ? AND ticket_id = ?`, fromUser, ticketID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_tickets (owner_id, ticket_id) VALUES (?, ?)`, toUser, ticketID)
	return err
}

// CheckInTx applies the terminal check-in transition exactly once. The
// conditional UPDATE is the guard against double check-in: when two gate
// scanners race on the same ticket, only one statement affects a row and
// the loser re-reads the ticket to report ErrAlreadyCheckedIn.
func (r *TicketRepo) CheckInTx(ctx context.Context, tx *sql.Tx, ticketID, organizerID uint64) error {
	const q = `UPDATE tickets
               SET status = 'CHECKED_IN', check_in_time = UTC_TIMESTAMP(), checked_in_by = ?
               WHERE id = ? AND status IN ('BOOKED', 'TRANSFERRED')`
	res, err := tx.ExecContext(ctx, q, organizerID, ticketID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	t, err := r.getTx(ctx, tx, ticketID)
	if err != nil {
		return err
	}
	return statusError(t.Status)
}

// CancelTx cancels a ticket on behalf of its owner and records the
// reason. Checked-in tickets cannot be cancelled; the caller is expected
// to release the event's capacity slot in the same transaction.
func (r *TicketRepo) CancelTx(ctx context.Context, tx *sql.Tx, ticketID, ownerID uint64, reason string) error {
	const q = `UPDATE tickets SET status = 'CANCELLED', cancel_reason = ?
               WHERE id = ? AND buyer_id = ? AND status IN ('BOOKED', 'TRANSFERRED')`
	res, err := tx.ExecContext(ctx, q, reason, ticketID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	t, err := r.getTx(ctx, tx, ticketID)
	if err != nil {
		return err
	}
	if t.BuyerID != ownerID {
		return ErrForbidden
	}
	return statusError(t.Status)
}

// SetPaymentRef attaches an external payment reference to a ticket.
// Called after the booking transaction commits; a gateway failure leaves
// the ticket PENDING and never undoes the booking.
func (r *TicketRepo) SetPaymentRef(ctx context.Context, ticketID uint64, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET payment_ref = ? WHERE id = ?`, ref, ticketID)
	return err
}

// SetPaymentStatus records a payment state change reported by the
// gateway callback.
func (r *TicketRepo) SetPaymentStatus(ctx context.Context, ticketID uint64, status model.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET payment_status = ? WHERE id = ?`, string(status), ticketID)
	return err
}

// CandidateTicket is a check-in candidate owned by a student, paired
// with its event's start time for window evaluation.
type CandidateTicket struct {
	TicketID uint64
	EventID  uint64
	StartsAt time.Time
}

// CheckInCandidatesByOwner returns the owner's paid, check-in-able
// tickets joined with event start times, for the student-ID check-in
// path. Ordering is by event start so the engine can pick the nearest.
func (r *TicketRepo) CheckInCandidatesByOwner(ctx context.Context, ownerID uint64) ([]CandidateTicket, error) {
	const q = `SELECT t.id, t.event_id, e.starts_at
               FROM tickets t
               JOIN events e ON e.id = t.event_id
               WHERE t.buyer_id = ? AND t.status IN ('BOOKED', 'TRANSFERRED')
                 AND t.payment_status = 'PAID'
                 AND e.status = 'ACTIVE' AND e.is_deleted = 0
               ORDER BY e.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CandidateTicket
	for rows.Next() {
		var c CandidateTicket
		if err := rows.Scan(&c.TicketID, &c.EventID, &c.StartsAt); err != nil {
			return nil, err
		}
		c.StartsAt = c.StartsAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// getTx re-reads a ticket inside a transaction, used to turn a failed
// conditional update into a precise sentinel error.
func (r *TicketRepo) getTx(ctx context.Context, tx *sql.Tx, ticketID uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(tx.QueryRowContext(ctx, q, ticketID))
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// statusError maps a ticket status that blocked a transition to the
// sentinel the handlers surface.
func statusError(s model.TicketStatus) error {
	switch s {
	case model.TicketCancelled:
		return ErrTicketCancelled
	case model.TicketCheckedIn:
		return ErrAlreadyCheckedIn
	default:
		return ErrConflict
	}
}
