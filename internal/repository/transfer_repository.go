// Package repository contains data access logic for ticket transfers.
// A transfer row is a transient coordination record: created PENDING when
// the owner initiates, flipped to ACCEPTED or REJECTED exactly once, and
// retained afterwards for audit. The single-pending-per-ticket rule is
// not enforced here directly; it follows from the ticket being moved to
// TRANSFERRING in the same transaction that inserts the row.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// TransferRepo manages persistence for ticket transfer requests.
type TransferRepo struct {
	db *sql.DB
}

// NewTransferRepo returns a new TransferRepo bound to the given database.
func NewTransferRepo(db *sql.DB) *TransferRepo { return &TransferRepo{db: db} }

// CreateTx inserts a PENDING transfer within the caller's transaction
// and populates the generated ID and timestamps.
func (r *TransferRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transfer) error {
	const q = `INSERT INTO ticket_transfers (ticket_id, from_user, to_user, status)
               VALUES (?, ?, ?, 'PENDING')`
	res, err := tx.ExecContext(ctx, q, t.TicketID, t.FromUser, t.ToUser)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TransferPending
	const sel = `SELECT created_at, updated_at FROM ticket_transfers WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetPendingTx returns the pending transfer for (ticket, recipient)
// inside a transaction. Terminal transfers are invisible here: once a
// request is decided it can never be confirmed or rejected again, so a
// second attempt reports ErrTransferNotFound.
func (r *TransferRepo) GetPendingTx(ctx context.Context, tx *sql.Tx, ticketID, toUser uint64) (*model.Transfer, error) {
	const q = `SELECT id, ticket_id, from_user, to_user, status, created_at, updated_at
               FROM ticket_transfers
               WHERE ticket_id = ? AND to_user = ? AND status = 'PENDING'
               LIMIT 1`
	t, err := scanTransfer(tx.QueryRowContext(ctx, q, ticketID, toUser))
	if err == sql.ErrNoRows {
		return nil, ErrTransferNotFound
	}
	return t, err
}

// ResolveTx moves a pending transfer to a terminal status. The status
// guard makes resolution idempotent-exclusive: of two racing confirm and
// reject requests, exactly one statement affects the row and the other
// sees ErrTransferNotFound.
func (r *TransferRepo) ResolveTx(ctx context.Context, tx *sql.Tx, transferID uint64, status model.TransferStatus) error {
	const q = `UPDATE ticket_transfers SET status = ? WHERE id = ? AND status = 'PENDING'`
	res, err := tx.ExecContext(ctx, q, string(status), transferID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransferNotFound
	}
	return nil
}

// IncomingTransfer is a pending transfer enriched with ticket and sender
// details, as shown to the recipient.
type IncomingTransfer struct {
	ID          uint64    `json:"id"`
	TicketID    uint64    `json:"ticket_id"`
	BookingCode string    `json:"booking_code"`
	EventID     uint64    `json:"event_id"`
	EventName   string    `json:"event_name"`
	FromUserID  uint64    `json:"from_user_id"`
	FromName    string    `json:"from_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListIncoming returns the pending transfers addressed to a user, newest
// first, with enough ticket and sender context to decide on them.
func (r *TransferRepo) ListIncoming(ctx context.Context, userID uint64) ([]IncomingTransfer, error) {
	const q = `SELECT tr.id, tr.ticket_id, t.booking_code, t.event_id, e.name,
                      tr.from_user, u.full_name, tr.created_at
               FROM ticket_transfers tr
               JOIN tickets t ON t.id = tr.ticket_id
               JOIN events e ON e.id = t.event_id
               JOIN users u ON u.id = tr.from_user
               WHERE tr.to_user = ? AND tr.status = 'PENDING'
               ORDER BY tr.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]IncomingTransfer, 0)
	for rows.Next() {
		var it IncomingTransfer
		if err := rows.Scan(
			&it.ID, &it.TicketID, &it.BookingCode, &it.EventID, &it.EventName,
			&it.FromUserID, &it.FromName, &it.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanTransfer(row interface{ Scan(...interface{}) error }) (*model.Transfer, error) {
	var t model.Transfer
	var status string
	err := row.Scan(&t.ID, &t.TicketID, &t.FromUser, &t.ToUser, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = model.TransferStatus(status)
	return &t, nil
}
