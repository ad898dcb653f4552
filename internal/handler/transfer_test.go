package handler

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

func newTransferHandler(db *sql.DB) *TransferHandler {
	return NewTransferHandler(
		repository.NewTicketRepo(db),
		repository.NewTransferRepo(db),
		repository.NewEventRepo(db),
		repository.NewUserRepo(db),
		nil,
	)
}

func transferMockRow(id, ticketID, fromUser, toUser uint64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "ticket_id", "from_user", "to_user", "status", "created_at", "updated_at",
	}).AddRow(id, ticketID, fromUser, toUser, "PENDING", now, now)
}

func TestInitiate_SelfTransfer(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/42/transfer",
		`{"to_user_id":9}`, 9)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, newTransferHandler(db).Initiate(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "yourself")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Only the designated recipient can see the pending request; any other
// caller gets the same 404 a resolved transfer would.
func TestConfirm_WrongRecipient(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+\s+FROM ticket_transfers\s+WHERE ticket_id = \? AND to_user = \? AND status = 'PENDING'`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ticket_id", "from_user", "to_user", "status", "created_at", "updated_at",
		}))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/42/transfer/confirm", "", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, newTransferHandler(db).Confirm(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no pending transfer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Accepting moves the transfer to ACCEPTED and rewrites ownership in
// the same transaction.
func TestConfirm_AcceptReassignsOwnership(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+\s+FROM ticket_transfers\s+WHERE ticket_id = \? AND to_user = \? AND status = 'PENDING'`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(transferMockRow(3, 42, 9, 7))
	mock.ExpectExec(`UPDATE ticket_transfers SET status = \? WHERE id = \? AND status = 'PENDING'`).
		WithArgs("ACCEPTED", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET buyer_id = \?, status = 'TRANSFERRED'`).
		WithArgs(uint64(7), uint64(42), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM user_tickets WHERE owner_id = \? AND ticket_id = \?`).
		WithArgs(uint64(9), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_tickets`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/42/transfer/confirm", "", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, newTransferHandler(db).Confirm(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"accepted"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Rejecting thaws the ticket back to BOOKED under the original owner.
func TestReject_RevertsTicket(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+\s+FROM ticket_transfers\s+WHERE ticket_id = \? AND to_user = \? AND status = 'PENDING'`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(transferMockRow(3, 42, 9, 7))
	mock.ExpectExec(`UPDATE ticket_transfers SET status = \? WHERE id = \? AND status = 'PENDING'`).
		WithArgs("REJECTED", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET status = 'BOOKED' WHERE id = \? AND status = 'TRANSFERRING'`).
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/42/transfer/reject", "", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, newTransferHandler(db).Reject(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"rejected"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
