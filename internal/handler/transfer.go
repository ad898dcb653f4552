package handler

import (
	"context"  // for notification name lookups
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/model"            // transfer model
	"github.com/iliyamo/event-ticketing/internal/monitoring"       // prometheus counters
	"github.com/iliyamo/event-ticketing/internal/repository"       // repository layer
	"github.com/iliyamo/event-ticketing/internal/service/notifier" // fire-and-forget notifications
)

// TransferHandler implements the two-party ownership handshake: the
// owner initiates, the designated recipient confirms or rejects.  While
// a request is pending the ticket sits in TRANSFERRING and cannot be
// checked in, cancelled or offered again.  A confirm touches four
// records in one transaction: the transfer row, the ticket row and the
// owned-list rows of both parties.
type TransferHandler struct {
	Tickets   *repository.TicketRepo
	Transfers *repository.TransferRepo
	Events    *repository.EventRepo
	Users     *repository.UserRepo
	Notify    *notifier.Notifier
}

// NewTransferHandler constructs a TransferHandler.  Notify may be nil in
// tests; every other dependency must be non-nil.
func NewTransferHandler(tickets *repository.TicketRepo, transfers *repository.TransferRepo, events *repository.EventRepo, users *repository.UserRepo, notify *notifier.Notifier) *TransferHandler {
	if tickets == nil || transfers == nil || events == nil || users == nil {
		panic("nil repository passed to NewTransferHandler")
	}
	return &TransferHandler{Tickets: tickets, Transfers: transfers, Events: events, Users: users, Notify: notify}
}

// Initiate handles POST /v1/tickets/:id/transfer.  The recipient must be
// an existing account other than the caller.  Freezing the ticket and
// inserting the PENDING row happen in the same transaction, which is
// what guarantees at most one pending transfer per ticket.
func (h *TransferHandler) Initiate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req struct {
		ToUserID uint64 `json:"to_user_id"`
	}
	if err := c.Bind(&req); err != nil || req.ToUserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to_user_id is required"})
	}
	if req.ToUserID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot transfer a ticket to yourself"})
	}

	ctx := c.Request().Context()
	exists, err := h.Users.Exists(ctx, req.ToUserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipient not found"})
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

	if err := h.Tickets.MarkTransferringTx(ctx, tx, ticketID, userID); err != nil {
		switch err {
		case repository.ErrTicketNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case repository.ErrTicketCancelled:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is cancelled"})
		case repository.ErrAlreadyCheckedIn:
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already checked in"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "a transfer is already pending for this ticket"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to freeze ticket"})
		}
	}
	transfer := &model.Transfer{TicketID: ticketID, FromUser: userID, ToUser: req.ToUserID}
	if err := h.Transfers.CreateTx(ctx, tx, transfer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create transfer"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if h.Notify != nil {
		go func(toUser, fromUser, ticketID, transferID uint64) {
			ctx, cancel := notifyContext()
			defer cancel()
			fromName, eventName := h.transferContext(ctx, fromUser, ticketID)
			_ = h.Notify.TransferRequested(ctx, toUser, fromName, eventName, transferID)
		}(req.ToUserID, userID, ticketID, transfer.ID)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"transfer_id": transfer.ID,
		"ticket_id":   ticketID,
		"to_user_id":  req.ToUserID,
		"status":      string(transfer.Status),
	})
}

// Confirm handles POST /v1/tickets/:id/transfer/confirm.  Only the
// designated recipient sees the pending request; anyone else, including
// a recipient retrying after resolution, gets 404.
func (h *TransferHandler) Confirm(c echo.Context) error {
	return h.resolve(c, true)
}

// Reject handles POST /v1/tickets/:id/transfer/reject.  The ticket
// returns to the original owner's control; the transfer row is kept as
// an audit record.
func (h *TransferHandler) Reject(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *TransferHandler) resolve(c echo.Context, accept bool) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

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

	transfer, err := h.Transfers.GetPendingTx(ctx, tx, ticketID, userID)
	if err != nil {
		if err == repository.ErrTransferNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending transfer for this ticket"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if accept {
		if err := h.Transfers.ResolveTx(ctx, tx, transfer.ID, model.TransferAccepted); err != nil {
			return h.resolveErr(c, err)
		}
		if err := h.Tickets.ReassignOwnerTx(ctx, tx, ticketID, transfer.FromUser, userID); err != nil {
			return h.resolveErr(c, err)
		}
	} else {
		if err := h.Transfers.ResolveTx(ctx, tx, transfer.ID, model.TransferRejected); err != nil {
			return h.resolveErr(c, err)
		}
		if err := h.Tickets.RevertToBookedTx(ctx, tx, ticketID); err != nil {
			return h.resolveErr(c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	outcome := "rejected"
	if accept {
		outcome = "accepted"
	}
	monitoring.TrackTransfer(outcome)

	if h.Notify != nil {
		go func(fromUser, toUser, ticketID uint64, accepted bool) {
			ctx, cancel := notifyContext()
			defer cancel()
			toName, eventName := h.transferContext(ctx, toUser, ticketID)
			_ = h.Notify.TransferResolved(ctx, fromUser, toName, eventName, accepted)
		}(transfer.FromUser, userID, ticketID, accept)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transfer_id": transfer.ID,
		"ticket_id":   ticketID,
		"status":      outcome,
	})
}

func (h *TransferHandler) resolveErr(c echo.Context, err error) error {
	switch err {
	case repository.ErrTransferNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending transfer for this ticket"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "transfer already resolved"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve transfer"})
	}
}

// ListIncoming handles GET /v1/transfers/incoming: pending transfers
// addressed to the caller, with enough context to decide on them.
func (h *TransferHandler) ListIncoming(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Transfers.ListIncoming(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transfers"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// transferContext loads display names for transfer notifications.  Any
// lookup failure degrades to an empty string; a notification with a
// missing name still beats no notification.
func (h *TransferHandler) transferContext(ctx context.Context, userID, ticketID uint64) (userName, eventName string) {
	if u, err := h.Users.GetByID(ctx, userID); err == nil {
		userName = u.FullName
	}
	if t, err := h.Tickets.GetByID(ctx, ticketID); err == nil {
		if e, err := h.Events.GetByID(ctx, t.EventID); err == nil {
			eventName = e.Name
		}
	}
	return userName, eventName
}
