package handler

import (
	"database/sql"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// newTestContext builds an echo context carrying an authenticated user,
// the way the JWT middleware would after validating a token.
func newTestContext(t *testing.T, method, target, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

// eventMockRow builds a full events row.
func eventMockRow(id uint64, priceCents, maxAtt, sold uint32, status string, startsAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "location", "starts_at", "price_cents",
		"max_attendees", "tickets_sold", "created_by", "status", "is_deleted",
		"created_at", "updated_at",
	}).AddRow(id, "Go Conference", "talks", "Main Hall", startsAt, priceCents,
		maxAtt, sold, 1, status, false, now, now)
}

// ticketMockRow builds a full tickets row.
func ticketMockRow(id, eventID, buyerID uint64, status model.TicketStatus, pay model.PaymentStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "event_id", "buyer_id", "booking_code", "qr_code", "status", "payment_status",
		"payment_ref", "cancel_reason", "check_in_time", "checked_in_by", "created_at", "updated_at",
	}).AddRow(id, eventID, buyerID, "TKT-A1B2C3D4E", "payload", string(status), string(pay),
		nil, nil, nil, nil, now, now)
}
