package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveSlotTx_ClaimsSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events\s+SET tickets_sold = tickets_sold \+ 1`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewEventRepo(db)
	err = repo.ReserveSlotTx(context.Background(), tx, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSlotTx_FullEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM events`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ACTIVE"))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewEventRepo(db)
	err = repo.ReserveSlotTx(context.Background(), tx, 7)
	assert.ErrorIs(t, err, ErrEventFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSlotTx_MissingEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events`).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM events`).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewEventRepo(db)
	err = repo.ReserveSlotTx(context.Background(), tx, 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSlotTx_CanceledEventBehavesAsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE events`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM events`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELED"))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewEventRepo(db)
	err = repo.ReserveSlotTx(context.Background(), tx, 7)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSlotTx_FlooredAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	// The floor lives in the WHERE clause; a zero counter simply affects
	// no rows and is not an error.
	mock.ExpectExec(`UPDATE events SET tickets_sold = tickets_sold - 1\s+WHERE id = \? AND tickets_sold > 0`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewEventRepo(db)
	err = repo.ReleaseSlotTx(context.Background(), tx, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
