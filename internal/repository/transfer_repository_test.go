package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func TestGetPendingTx_ReturnsPendingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ticket_transfers\s+WHERE ticket_id = \? AND to_user = \? AND status = 'PENDING'`).
		WithArgs(uint64(5), uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ticket_id", "from_user", "to_user", "status", "created_at", "updated_at",
		}).AddRow(3, 5, 9, 12, "PENDING", now, now))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTransferRepo(db)
	tr, err := repo.GetPendingTx(context.Background(), tx, 5, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tr.ID)
	assert.Equal(t, uint64(9), tr.FromUser)
	assert.Equal(t, model.TransferPending, tr.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingTx_TerminalTransferIsInvisible(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ticket_transfers`).
		WithArgs(uint64(5), uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ticket_id", "from_user", "to_user", "status", "created_at", "updated_at",
		}))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTransferRepo(db)
	_, err = repo.GetPendingTx(context.Background(), tx, 5, 12)
	assert.ErrorIs(t, err, ErrTransferNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveTx_OnlyPendingCanBeResolved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ticket_transfers SET status = \? WHERE id = \? AND status = 'PENDING'`).
		WithArgs("ACCEPTED", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ticket_transfers SET status = \? WHERE id = \? AND status = 'PENDING'`).
		WithArgs("REJECTED", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewTransferRepo(db)
	require.NoError(t, repo.ResolveTx(context.Background(), tx, 3, model.TransferAccepted))

	// The same request cannot be decided twice.
	err = repo.ResolveTx(context.Background(), tx, 3, model.TransferRejected)
	assert.ErrorIs(t, err, ErrTransferNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
