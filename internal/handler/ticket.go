package handler

import (
	"log"      // post-commit failures are logged, never surfaced
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // timestamps in responses

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/config"           // QR secret
	"github.com/iliyamo/event-ticketing/internal/model"            // ticket model and statuses
	"github.com/iliyamo/event-ticketing/internal/monitoring"       // prometheus counters
	"github.com/iliyamo/event-ticketing/internal/repository"       // repository layer
	"github.com/iliyamo/event-ticketing/internal/service/notifier" // fire-and-forget notifications
	"github.com/iliyamo/event-ticketing/internal/service/payment"  // payment gateway client
	"github.com/iliyamo/event-ticketing/internal/utils"            // booking codes and QR payloads
)

// bookingCodeAttempts bounds retries on a booking code collision.  The
// code space is 36^9 so a second collision in a row is effectively a
// broken random source.
const bookingCodeAttempts = 3

// TicketHandler implements booking, cancellation and history.  Booking
// claims a capacity slot and inserts the ticket in one transaction;
// payment happens after commit so a slow or failing gateway can never
// hold row locks or undo a booking.
type TicketHandler struct {
	Cfg      config.Config
	Events   *repository.EventRepo
	Tickets  *repository.TicketRepo
	Payments payment.Client
	Notify   *notifier.Notifier
}

// NewTicketHandler constructs a TicketHandler.  Notify may be nil in
// tests; every other dependency must be non-nil.
func NewTicketHandler(cfg config.Config, events *repository.EventRepo, tickets *repository.TicketRepo, payments payment.Client, notify *notifier.Notifier) *TicketHandler {
	if events == nil || tickets == nil || payments == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Cfg: cfg, Events: events, Tickets: tickets, Payments: payments, Notify: notify}
}

type ticketResp struct {
	ID            uint64     `json:"id"`
	EventID       uint64     `json:"event_id"`
	BookingCode   string     `json:"booking_code"`
	QRCode        string     `json:"qr_code"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	CheckInTime   *time.Time `json:"check_in_time,omitempty"`
}

func toTicketResp(t *model.Ticket) ticketResp {
	return ticketResp{
		ID:            t.ID,
		EventID:       t.EventID,
		BookingCode:   t.BookingCode,
		QRCode:        t.QRCode,
		Status:        string(t.Status),
		PaymentStatus: string(t.PaymentStatus),
		CheckInTime:   t.CheckInTime,
	}
}

// Book handles POST /v1/events/:id/tickets.  The capacity check and the
// ticket insert run in a single transaction: ReserveSlotTx is a
// conditional increment, so when many buyers race for the last slot
// exactly one commit succeeds and the rest see 409.
func (h *TicketHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if e.Status != model.EventActive {
		monitoring.TrackBookingRejection("event_cancelled")
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is cancelled"})
	}
	if !e.StartsAt.After(time.Now().UTC()) {
		monitoring.TrackBookingRejection("event_started")
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
	}

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Events.ReserveSlotTx(ctx, tx, eventID); err != nil {
		switch err {
		case repository.ErrEventFull:
			monitoring.TrackBookingRejection("sold_out")
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is sold out"})
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve slot"})
		}
	}

	payStatus := model.PaymentPending
	if e.Free() {
		payStatus = model.PaymentPaid
	}

	var ticket *model.Ticket
	for attempt := 0; attempt < bookingCodeAttempts; attempt++ {
		code, err := utils.GenerateBookingCode()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate booking code"})
		}
		t := &model.Ticket{
			EventID:       eventID,
			BuyerID:       userID,
			BookingCode:   code,
			QRCode:        utils.EncodeQRPayload(code, h.Cfg.QRSecret),
			Status:        model.TicketBooked,
			PaymentStatus: payStatus,
		}
		err = h.Tickets.CreateTx(ctx, tx, t)
		if err == repository.ErrDuplicateBookingCode {
			continue
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create ticket"})
		}
		ticket = t
		break
	}
	if ticket == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate booking code"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	monitoring.TrackBooking()

	status := http.StatusCreated
	if !e.Free() {
		// Charge after commit.  A gateway outage leaves the ticket
		// PENDING; a decline marks it FAILED and the client may retry
		// payment, but the booked slot is never rolled back here.
		ref := payment.NewReference()
		if err := h.Tickets.SetPaymentRef(ctx, ticket.ID, ref); err != nil {
			log.Printf("ticket %d: save payment ref: %v", ticket.ID, err)
		}
		amount := decimal.New(int64(e.PriceCents), -2)
		_, payErr := h.Payments.CollectPayment(ctx, payment.Charge{
			Reference: ref,
			BuyerID:   userID,
			Amount:    amount,
			Currency:  "USD",
			Memo:      "Ticket for " + e.Name,
		})
		switch payErr {
		case nil:
			if err := h.Tickets.SetPaymentStatus(ctx, ticket.ID, model.PaymentPaid); err != nil {
				log.Printf("ticket %d: mark paid: %v", ticket.ID, err)
			} else {
				ticket.PaymentStatus = model.PaymentPaid
			}
		case payment.ErrDeclined:
			if err := h.Tickets.SetPaymentStatus(ctx, ticket.ID, model.PaymentFailed); err != nil {
				log.Printf("ticket %d: mark failed: %v", ticket.ID, err)
			} else {
				ticket.PaymentStatus = model.PaymentFailed
			}
			status = http.StatusPaymentRequired
		default:
			log.Printf("ticket %d: payment gateway: %v", ticket.ID, payErr)
		}
		r := ref
		ticket.PaymentRef = &r
	}

	if h.Notify != nil {
		go func(buyerID uint64, name, code string, tid uint64) {
			ctx, cancel := notifyContext()
			defer cancel()
			_ = h.Notify.TicketBooked(ctx, buyerID, name, code, tid)
		}(userID, e.Name, ticket.BookingCode, ticket.ID)
	}

	return c.JSON(status, echo.Map{"ticket": toTicketResp(ticket)})
}

// Cancel handles POST /v1/tickets/:id/cancel.  Only the current owner
// may cancel; the freed slot is returned to the event in the same
// transaction so it becomes bookable again.
func (h *TicketHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)

	ctx := c.Request().Context()
	t, err := h.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

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

	if err := h.Tickets.CancelTx(ctx, tx, ticketID, userID, strings.TrimSpace(req.Reason)); err != nil {
		switch err {
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case repository.ErrTicketCancelled:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already cancelled"})
		case repository.ErrAlreadyCheckedIn:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already checked in"})
		case repository.ErrTicketNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket cannot be cancelled right now"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel ticket"})
		}
	}
	if err := h.Events.ReleaseSlotTx(ctx, tx, t.EventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release slot"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	monitoring.TrackCancellation()

	if h.Notify != nil {
		go func(buyerID, eventID, tid uint64, reason string) {
			ctx, cancel := notifyContext()
			defer cancel()
			e, err := h.Events.GetByID(ctx, eventID)
			name := ""
			if err == nil {
				name = e.Name
			}
			_ = h.Notify.TicketCancelled(ctx, buyerID, name, tid, reason)
		}(userID, t.EventID, ticketID, strings.TrimSpace(req.Reason))
	}

	return c.NoContent(http.StatusNoContent)
}

// History handles GET /v1/my-tickets: every ticket currently owned by
// the caller with event context, newest first.
func (h *TicketHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Tickets.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Get handles GET /v1/tickets/:id.  Visible to the ticket's owner and
// to the event's organizers; everyone else gets 403.
func (h *TicketHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	ctx := c.Request().Context()
	t, err := h.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if t.BuyerID != userID {
		isOrg, err := h.Events.IsOrganizer(ctx, t.EventID, userID)
		if err != nil || !isOrg {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": toTicketResp(t)})
}
