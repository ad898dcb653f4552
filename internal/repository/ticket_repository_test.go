package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ticketRow builds a full tickets row for the re-read performed after a
// conditional update affects no rows.
func ticketRow(id, buyerID uint64, status model.TicketStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "event_id", "buyer_id", "booking_code", "qr_code", "status", "payment_status",
		"payment_ref", "cancel_reason", "check_in_time", "checked_in_by", "created_at", "updated_at",
	}).AddRow(id, 1, buyerID, "TKT-A1B2C3D4E", "payload", string(status), "PAID",
		nil, nil, nil, nil, now, now)
}

func TestCheckInTx_AppliesExactlyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets\s+SET status = 'CHECKED_IN'`).
		WithArgs(uint64(42), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.CheckInTx(context.Background(), tx, 5, 42)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInTx_SecondScanReportsAlreadyCheckedIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets\s+SET status = 'CHECKED_IN'`).
		WithArgs(uint64(42), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(ticketRow(5, 9, model.TicketCheckedIn))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.CheckInTx(context.Background(), tx, 5, 42)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInTx_CancelledTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets\s+SET status = 'CHECKED_IN'`).
		WithArgs(uint64(42), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(ticketRow(5, 9, model.TicketCancelled))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.CheckInTx(context.Background(), tx, 5, 42)
	assert.ErrorIs(t, err, ErrTicketCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTx_NotOwnerIsForbidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET status = 'CANCELLED'`).
		WithArgs("ride fell through", uint64(5), uint64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(ticketRow(5, 9, model.TicketBooked)) // owned by 9, not 12

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.CancelTx(context.Background(), tx, 5, 12, "ride fell through")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTx_AlreadyCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET status = 'CANCELLED'`).
		WithArgs("changed my mind", uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(ticketRow(5, 9, model.TicketCancelled))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.CancelTx(context.Background(), tx, 5, 9, "changed my mind")
	assert.ErrorIs(t, err, ErrTicketCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTx_DuplicateBookingCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tickets`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'TKT-A1B2C3D4E' for key 'tickets.booking_code'"))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	ticket := &model.Ticket{
		EventID:       1,
		BuyerID:       9,
		BookingCode:   "TKT-A1B2C3D4E",
		QRCode:        "payload",
		Status:        model.TicketBooked,
		PaymentStatus: model.PaymentPending,
	}
	err = repo.CreateTx(context.Background(), tx, ticket)
	assert.ErrorIs(t, err, ErrDuplicateBookingCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassignOwnerTx_RewritesBothSides(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET buyer_id = \?, status = 'TRANSFERRED'`).
		WithArgs(uint64(12), uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM user_tickets WHERE owner_id = \? AND ticket_id = \?`).
		WithArgs(uint64(9), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_tickets \(owner_id, ticket_id\)`).
		WithArgs(uint64(12), uint64(5)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.ReassignOwnerTx(context.Background(), tx, 5, 9, 12)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassignOwnerTx_NotTransferringIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET buyer_id = \?, status = 'TRANSFERRED'`).
		WithArgs(uint64(12), uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTicketRepo(db)
	err = repo.ReassignOwnerTx(context.Background(), tx, 5, 9, 12)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
