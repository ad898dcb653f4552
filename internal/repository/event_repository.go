// Package repository contains data access logic for event persistence and
// the capacity ledger. The tickets_sold counter on an event is only ever
// mutated here, through single conditional UPDATE statements, so two
// bookings racing for the last slot can never both succeed.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo manages persistence for events and their capacity ledger.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.  Use this method to
// obtain a *sql.DB when you need fine-grained transaction control.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, name, description, location, starts_at, price_cents,
    max_attendees, tickets_sold, created_by, status, is_deleted, created_at, updated_at`

// scanEvent scans one event row from any row scanner.
func scanEvent(row interface{ Scan(...interface{}) error }) (*model.Event, error) {
	var e model.Event
	var status string
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Location, &e.StartsAt, &e.PriceCents,
		&e.MaxAttendees, &e.TicketsSold, &e.CreatedBy, &status, &e.IsDeleted,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = model.EventStatus(status)
	return &e, nil
}

// Create inserts a new event and populates the generated ID and DB-default
// fields (status, counters, timestamps) on the provided struct.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (name, description, location, starts_at, price_cents, max_attendees, created_by)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.Name, e.Description, e.Location, e.StartsAt.UTC(), e.PriceCents, e.MaxAttendees, e.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	// Query back the full row to populate defaults.
	created, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// GetByID returns an event by ID.  Soft-deleted events are treated as
// absent and reported as ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, eventID uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND is_deleted = 0`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, eventID))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return e, err
}

// List returns non-deleted events ordered by start time; when upcomingOnly
// is set, events that already started are skipped.  Used by the public
// browse endpoints, which sit behind the response cache.
func (r *EventRepo) List(ctx context.Context, upcomingOnly bool) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE is_deleted = 0`
	if upcomingOnly {
		q += ` AND starts_at > UTC_TIMESTAMP()`
	}
	q += ` ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListByOrganizer returns the events created by an organizer, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
               WHERE created_by = ? AND is_deleted = 0 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ReserveSlotTx atomically claims one capacity slot for the event inside
// the caller's transaction. The check-and-increment is a single
// conditional UPDATE: a plain read-then-write would overbook under
// concurrent bookings for the last slot. Zero affected rows means either
// the event is missing/inactive (ErrEventNotFound) or sold out
// (ErrEventFull); a follow-up SELECT distinguishes the two.
func (r *EventRepo) ReserveSlotTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	const q = `UPDATE events
               SET tickets_sold = tickets_sold + 1
               WHERE id = ? AND status = 'ACTIVE' AND is_deleted = 0
                 AND (max_attendees = 0 OR tickets_sold < max_attendees)`
	res, err := tx.ExecContext(ctx, q, eventID)
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
	const check = `SELECT status FROM events WHERE id = ? AND is_deleted = 0`
	var status string
	switch err := tx.QueryRowContext(ctx, check, eventID).Scan(&status); {
	case err == sql.ErrNoRows:
		return ErrEventNotFound
	case err != nil:
		return err
	case status != string(model.EventActive):
		return ErrEventNotFound
	default:
		return ErrEventFull
	}
}

// ReleaseSlotTx returns one capacity slot to the event, floored at zero.
// Called when a ticket is cancelled so the slot becomes bookable again.
func (r *EventRepo) ReleaseSlotTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	const q = `UPDATE events SET tickets_sold = tickets_sold - 1
               WHERE id = ? AND tickets_sold > 0`
	_, err := tx.ExecContext(ctx, q, eventID)
	return err
}

// IsOrganizer reports whether userID created the event or is listed as a
// collaborator.  Used by the check-in engine for gate authorization.
func (r *EventRepo) IsOrganizer(ctx context.Context, eventID, userID uint64) (bool, error) {
	const q = `SELECT created_by FROM events WHERE id = ? AND is_deleted = 0`
	var createdBy uint64
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return false, ErrEventNotFound
	}
	if err != nil {
		return false, err
	}
	if createdBy == userID {
		return true, nil
	}
	const collabQ = `SELECT 1 FROM event_collaborators WHERE event_id = ? AND user_id = ? LIMIT 1`
	var one int
	err = r.db.QueryRowContext(ctx, collabQ, eventID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddCollaborators inserts collaborator links for an event.  Passing an
// empty slice has no effect and returns nil.
func (r *EventRepo) AddCollaborators(ctx context.Context, eventID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO event_collaborators (event_id, user_id) VALUES `
	args := make([]interface{}, 0, len(userIDs)*2)
	for i, uid := range userIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, eventID, uid)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Cancel marks an event as CANCELED.  Only its creator may cancel; a
// mismatch is reported as ErrForbidden and a missing event as
// ErrEventNotFound.
func (r *EventRepo) Cancel(ctx context.Context, eventID, organizerID uint64) error {
	owner, err := r.ownerOf(ctx, eventID)
	if err != nil {
		return err
	}
	if owner != organizerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET status = 'CANCELED' WHERE id = ?`, eventID)
	return err
}

// SoftDelete flags an event as deleted without removing the row, so
// existing tickets keep a valid reference for history views.
func (r *EventRepo) SoftDelete(ctx context.Context, eventID, organizerID uint64) error {
	owner, err := r.ownerOf(ctx, eventID)
	if err != nil {
		return err
	}
	if owner != organizerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET is_deleted = 1 WHERE id = ?`, eventID)
	return err
}

func (r *EventRepo) ownerOf(ctx context.Context, eventID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT created_by FROM events WHERE id = ? AND is_deleted = 0`, eventID).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, ErrEventNotFound
	}
	return owner, err
}

// StartsAt returns just the scheduled start time of an event.  The
// check-in engine uses it to evaluate the check-in window without
// loading the whole row.
func (r *EventRepo) StartsAt(ctx context.Context, eventID uint64) (time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT starts_at FROM events WHERE id = ? AND is_deleted = 0`, eventID).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrEventNotFound
	}
	return t.UTC(), err
}
