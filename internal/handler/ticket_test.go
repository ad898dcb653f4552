package handler

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service/payment"
)

func newTicketHandler(db *sql.DB) *TicketHandler {
	return NewTicketHandler(
		config.Config{QRSecret: "test-secret"},
		repository.NewEventRepo(db),
		repository.NewTicketRepo(db),
		payment.NoOp{},
		nil,
	)
}

// Booking the last-slot loser: the conditional increment affects zero
// rows, the follow-up status read says the event is still active, so
// the only explanation is a full house.
func TestBook_SoldOut(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	starts := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \? AND is_deleted = 0`).
		WithArgs(uint64(1)).
		WillReturnRows(eventMockRow(1, 0, 100, 100, "ACTIVE", starts))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events\s+SET tickets_sold = tickets_sold \+ 1`).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM events WHERE id = \? AND is_deleted = 0`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/events/1/tickets", "", 9)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, newTicketHandler(db).Book(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "sold out")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_CancelledEvent(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	starts := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \? AND is_deleted = 0`).
		WithArgs(uint64(1)).
		WillReturnRows(eventMockRow(1, 0, 100, 10, "CANCELED", starts))

	c, rec := newTestContext(t, http.MethodPost, "/v1/events/1/tickets", "", 9)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, newTicketHandler(db).Book(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A free event skips the gateway entirely: the ticket comes back PAID
// straight out of the booking transaction.
func TestBook_FreeEventPaidImmediately(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	starts := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \? AND is_deleted = 0`).
		WithArgs(uint64(1)).
		WillReturnRows(eventMockRow(1, 0, 100, 10, "ACTIVE", starts))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events\s+SET tickets_sold = tickets_sold \+ 1`).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tickets`).
		WithArgs(uint64(1), uint64(9), sqlmock.AnyArg(), sqlmock.AnyArg(), "BOOKED", "PAID").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(`INSERT INTO user_tickets`).
		WithArgs(uint64(9), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(42)).
		WillReturnRows(ticketMockRow(42, 1, 9, model.TicketBooked, model.PaymentPaid))
	mock.ExpectCommit()

	c, rec := newTestContext(t, http.MethodPost, "/v1/events/1/tickets", "", 9)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, newTicketHandler(db).Book(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_status":"PAID"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Cancelling somebody else's ticket: the guarded UPDATE misses, the
// re-read shows a different owner, 403.
func TestCancel_NotOwner(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(42)).
		WillReturnRows(ticketMockRow(42, 1, 9, model.TicketBooked, model.PaymentPaid))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET status = 'CANCELLED'`).
		WithArgs(sqlmock.AnyArg(), uint64(42), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM tickets WHERE id = \?`).
		WithArgs(uint64(42)).
		WillReturnRows(ticketMockRow(42, 1, 9, model.TicketBooked, model.PaymentPaid))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/42/cancel", "", 5)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, newTicketHandler(db).Cancel(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
