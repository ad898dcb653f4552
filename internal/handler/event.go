package handler

import (
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // start time parsing

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/model"            // event model and statuses
	"github.com/iliyamo/event-ticketing/internal/repository"       // repository layer
	"github.com/iliyamo/event-ticketing/internal/service/notifier" // fire-and-forget notifications
)

// EventHandler exposes organizer CRUD and public browsing for events.
// All mutating methods assume JWT authentication and role validation
// have already been performed by middleware.
type EventHandler struct {
	Events *repository.EventRepo
	Users  *repository.UserRepo
	Notify *notifier.Notifier
}

// NewEventHandler constructs an EventHandler.  Notify may be nil in
// tests; both repositories must be non-nil.
func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo, notify *notifier.Notifier) *EventHandler {
	if events == nil || users == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Users: users, Notify: notify}
}

type createEventReq struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	StartsAt        string   `json:"starts_at"` // RFC3339
	PriceCents      uint32   `json:"price_cents"`
	MaxAttendees    uint32   `json:"max_attendees"` // 0 = unlimited
	CollaboratorIDs []uint64 `json:"collaborator_ids"`
}

type eventResp struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	StartsAt     string `json:"starts_at"`
	PriceCents   uint32 `json:"price_cents"`
	MaxAttendees uint32 `json:"max_attendees"`
	TicketsSold  uint32 `json:"tickets_sold"`
	Status       string `json:"status"`
	CreatedBy    uint64 `json:"created_by"`
}

func toEventResp(e *model.Event) eventResp {
	return eventResp{
		ID:           e.ID,
		Name:         e.Name,
		Description:  e.Description,
		Location:     e.Location,
		StartsAt:     e.StartsAt.UTC().Format(time.RFC3339),
		PriceCents:   e.PriceCents,
		MaxAttendees: e.MaxAttendees,
		TicketsSold:  e.TicketsSold,
		Status:       string(e.Status),
		CreatedBy:    e.CreatedBy,
	}
}

// Create handles POST /v1/events.  Organizers only.  starts_at must be a
// future RFC3339 timestamp; max_attendees of zero means unlimited.
func (h *EventHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.Name == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and location are required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	if !startsAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be in the future"})
	}

	ctx := c.Request().Context()
	e := &model.Event{
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		StartsAt:     startsAt.UTC(),
		PriceCents:   req.PriceCents,
		MaxAttendees: req.MaxAttendees,
		CreatedBy:    userID,
	}
	if err := h.Events.Create(ctx, e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	if len(req.CollaboratorIDs) > 0 {
		if err := h.Events.AddCollaborators(ctx, e.ID, req.CollaboratorIDs); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add collaborators"})
		}
	}

	if h.Notify != nil {
		go func(id uint64, name string, startsAt time.Time) {
			ctx, cancel := notifyContext()
			defer cancel()
			_ = h.Notify.EventPublished(ctx, id, name, startsAt)
		}(e.ID, e.Name, e.StartsAt)
	}

	return c.JSON(http.StatusCreated, echo.Map{"event": toEventResp(e)})
}

// List handles GET /v1/events.  Public; sits behind the response cache.
// Use ?upcoming=true to hide events that already started.
func (h *EventHandler) List(c echo.Context) error {
	upcoming := strings.EqualFold(c.QueryParam("upcoming"), "true")
	events, err := h.Events.List(c.Request().Context(), upcoming)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	items := make([]eventResp, 0, len(events))
	for i := range events {
		items = append(items, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/events/:id.  Public.
func (h *EventHandler) Get(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	e, err := h.Events.GetByID(c.Request().Context(), eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": toEventResp(e)})
}

// ListMine handles GET /v1/my-events, the organizer's own events.
func (h *EventHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.Events.ListByOrganizer(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	items := make([]eventResp, 0, len(events))
	for i := range events {
		items = append(items, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles POST /v1/events/:id/cancel.  Only the event's creator
// may cancel.  Cancelling stops new bookings and check-ins; existing
// tickets are left for their owners to cancel and reclaim.
func (h *EventHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	switch err := h.Events.Cancel(c.Request().Context(), eventID, userID); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel event"})
	}
}

// Delete handles DELETE /v1/events/:id.  Soft delete so ticket history
// keeps a valid event reference.
func (h *EventHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	switch err := h.Events.SoftDelete(c.Request().Context(), eventID, userID); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete event"})
	}
}

// AddCollaborators handles POST /v1/events/:id/collaborators.
// Collaborators may run check-in for the event but cannot modify it.
func (h *EventHandler) AddCollaborators(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req struct {
		UserIDs []uint64 `json:"user_ids"`
	}
	if err := c.Bind(&req); err != nil || len(req.UserIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_ids is required"})
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if e.CreatedBy != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	// Only existing, active accounts may be added.
	valid := make([]uint64, 0, len(req.UserIDs))
	for _, uid := range req.UserIDs {
		if uid == 0 || uid == userID {
			continue
		}
		ok, err := h.Users.Exists(ctx, uid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if ok {
			valid = append(valid, uid)
		}
	}
	if len(valid) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid user IDs provided"})
	}
	if err := h.Events.AddCollaborators(ctx, eventID, valid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add collaborators"})
	}
	return c.JSON(http.StatusOK, echo.Map{"added": valid})
}
