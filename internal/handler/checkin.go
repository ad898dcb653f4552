package handler

import (
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // window evaluation

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/config"           // check-in policy
	"github.com/iliyamo/event-ticketing/internal/model"            // statuses
	"github.com/iliyamo/event-ticketing/internal/monitoring"       // prometheus counters
	"github.com/iliyamo/event-ticketing/internal/repository"       // repository layer
	"github.com/iliyamo/event-ticketing/internal/service/notifier" // fire-and-forget notifications
	"github.com/iliyamo/event-ticketing/internal/utils"            // QR payload decoding
)

// CheckInHandler marks tickets as attended at the gate.  Three entry
// modes resolve the ticket: a signed QR payload, the raw booking code,
// and the attendee's student ID.  Whatever the mode, the transition
// itself is a single conditional UPDATE, so racing scanners cannot
// check the same ticket in twice.
type CheckInHandler struct {
	Cfg     config.Config
	Policy  config.CheckInPolicy
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
	Users   *repository.UserRepo
	Notify  *notifier.Notifier
}

// NewCheckInHandler constructs a CheckInHandler.  Notify may be nil in
// tests; every other dependency must be non-nil.
func NewCheckInHandler(cfg config.Config, policy config.CheckInPolicy, events *repository.EventRepo, tickets *repository.TicketRepo, users *repository.UserRepo, notify *notifier.Notifier) *CheckInHandler {
	if events == nil || tickets == nil || users == nil {
		panic("nil repository passed to NewCheckInHandler")
	}
	return &CheckInHandler{Cfg: cfg, Policy: policy, Events: events, Tickets: tickets, Users: users, Notify: notify}
}

// ByQR handles POST /v1/checkin/qr.  The payload is the opaque signed
// string embedded in the ticket's QR code; a bad signature is rejected
// before any database work.  The signature already proves the scan is
// of a real issued ticket, so this mode skips the per-event organizer
// and paid gates that manual code entry needs.
func (h *CheckInHandler) ByQR(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload is required"})
	}
	code, err := utils.DecodeQRPayload(req.Payload, h.Cfg.QRSecret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid QR payload"})
	}

	ctx := c.Request().Context()
	t, err := h.Tickets.GetByBookingCode(ctx, code)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if h.Policy.AllModes {
		startsAt, err := h.Events.StartsAt(ctx, t.EventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !h.Policy.InWindow(startsAt, time.Now().UTC()) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "outside check-in window"})
		}
	}

	return h.commitCheckIn(c, t.ID, t.BuyerID, t.EventID, operatorID, "qr")
}

// ByCode handles POST /v1/checkin/code, manual entry of the booking
// code for attendees whose QR will not scan.
func (h *CheckInHandler) ByCode(c echo.Context) error {
	var req struct {
		BookingCode string `json:"booking_code"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.BookingCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_code is required"})
	}
	return h.checkInByCode(c, strings.ToUpper(strings.TrimSpace(req.BookingCode)), "code")
}

func (h *CheckInHandler) checkInByCode(c echo.Context, code, method string) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	t, err := h.Tickets.GetByBookingCode(ctx, code)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	isOrg, err := h.Events.IsOrganizer(ctx, t.EventID, operatorID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !isOrg {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not an organizer of this event"})
	}

	if t.PaymentStatus != model.PaymentPaid {
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "ticket is not paid"})
	}

	// Code mode only honors the window when configured to.
	if h.Policy.AllModes {
		startsAt, err := h.Events.StartsAt(ctx, t.EventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !h.Policy.InWindow(startsAt, time.Now().UTC()) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "outside check-in window"})
		}
	}

	return h.commitCheckIn(c, t.ID, t.BuyerID, t.EventID, operatorID, method)
}

// ByStudentID handles POST /v1/checkin/student.  The student ID resolves
// the attendee's account and then their check-in-able tickets; event_id
// narrows the choice, otherwise the in-window ticket whose event start
// is nearest to now is picked.  The window always applies in this mode
// because it is what makes the pick unambiguous.
func (h *CheckInHandler) ByStudentID(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		StudentID string `json:"student_id"`
		EventID   uint64 `json:"event_id"` // optional
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.StudentID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id is required"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByStudentID(ctx, strings.TrimSpace(req.StudentID))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no account with this student id"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	candidates, err := h.Tickets.CheckInCandidatesByOwner(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Among the in-window candidates, the event whose start is closest
	// to this instant is the one the attendee is standing in front of.
	now := time.Now().UTC()
	var picked *repository.CandidateTicket
	var bestDist time.Duration
	for i := range candidates {
		cand := &candidates[i]
		if req.EventID != 0 && cand.EventID != req.EventID {
			continue
		}
		if !h.Policy.InWindow(cand.StartsAt, now) {
			continue
		}
		dist := now.Sub(cand.StartsAt)
		if dist < 0 {
			dist = -dist
		}
		if picked == nil || dist < bestDist {
			picked = cand
			bestDist = dist
		}
	}
	if picked == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no ticket eligible for check-in"})
	}

	isOrg, err := h.Events.IsOrganizer(ctx, picked.EventID, operatorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !isOrg {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not an organizer of this event"})
	}

	return h.commitCheckIn(c, picked.TicketID, u.ID, picked.EventID, operatorID, "student_id")
}

// commitCheckIn applies the terminal transition inside a transaction and
// maps the conditional-update outcome to the response.  Check-in is
// idempotent in effect but not in status code: the first scan wins, a
// repeat reports 409 so gate staff notice a reused ticket.
func (h *CheckInHandler) commitCheckIn(c echo.Context, ticketID, buyerID, eventID, operatorID uint64, method string) error {
	ctx := c.Request().Context()
	tx, err := h.Tickets.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Tickets.CheckInTx(ctx, tx, ticketID, operatorID); err != nil {
		switch err {
		case repository.ErrAlreadyCheckedIn:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already checked in"})
		case repository.ErrTicketCancelled:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is cancelled"})
		case repository.ErrTicketNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is mid-transfer"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check in"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	monitoring.TrackCheckIn(method)

	if h.Notify != nil {
		go func(buyerID, eventID, ticketID uint64) {
			ctx, cancel := notifyContext()
			defer cancel()
			name := ""
			if e, err := h.Events.GetByID(ctx, eventID); err == nil {
				name = e.Name
			}
			_ = h.Notify.CheckedIn(ctx, buyerID, name, ticketID)
		}(buyerID, eventID, ticketID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ticket_id":     ticketID,
		"status":        string(model.TicketCheckedIn),
		"check_in_time": time.Now().UTC().Format(time.RFC3339),
		"method":        method,
	})
}
