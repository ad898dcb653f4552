package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // Echo web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Prometheus metrics endpoint

	"github.com/iliyamo/event-ticketing/internal/handler"    // handlers implementing business logic
	"github.com/iliyamo/event-ticketing/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/event-ticketing/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus metrics endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers authentication routes and the protected /v1/me
// endpoint.  Unauthenticated operations live under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotating refresh: the old refresh token is revoked.
	g.POST("/refresh", a.Refresh)
	// Non-rotating: issue a fresh access token only.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a Bearer token (revoke all sessions) or a
	// refresh_token body (revoke one), so no JWT middleware here.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleBuyer, model.RoleOrganizer, model.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.POST("/device-tokens", a.RegisterDevice)
}

// RegisterPublic registers the unauthenticated browse endpoints.  These
// are the routes the Redis response cache is pointed at.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/events", ev.List)
	g.GET("/events/:id", ev.Get)
}

// RegisterTicketing registers every authenticated ticketing route:
// organizer event management, booking and cancellation, the transfer
// handshake, gate check-in and in-app notifications.
func RegisterTicketing(e *echo.Echo, jwtSecret string,
	ev *handler.EventHandler, tk *handler.TicketHandler,
	tr *handler.TransferHandler, ci *handler.CheckInHandler,
	nt *handler.NotificationHandler) {

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	// Organizer-only event management.
	org := e.Group("/v1")
	org.Use(middleware.JWTAuth(jwtSecret))
	org.Use(middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	org.POST("/events", ev.Create)
	org.GET("/my-events", ev.ListMine)
	org.POST("/events/:id/cancel", ev.Cancel)
	org.DELETE("/events/:id", ev.Delete)
	org.POST("/events/:id/collaborators", ev.AddCollaborators)

	// Booking, history and cancellation for any authenticated user.
	auth.POST("/events/:id/tickets", tk.Book)
	auth.GET("/my-tickets", tk.History)
	auth.GET("/tickets/:id", tk.Get)
	auth.POST("/tickets/:id/cancel", tk.Cancel)

	// Ownership transfer handshake.
	auth.POST("/tickets/:id/transfer", tr.Initiate)
	auth.POST("/tickets/:id/transfer/confirm", tr.Confirm)
	auth.POST("/tickets/:id/transfer/reject", tr.Reject)
	auth.GET("/transfers/incoming", tr.ListIncoming)

	// Gate check-in.  Handlers verify per-event organizer or
	// collaborator rights; the role gate only keeps buyers out.
	gate := e.Group("/v1/checkin")
	gate.Use(middleware.JWTAuth(jwtSecret))
	gate.Use(middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	gate.POST("/qr", ci.ByQR)
	gate.POST("/code", ci.ByCode)
	gate.POST("/student", ci.ByStudentID)

	// In-app notifications.
	auth.GET("/notifications", nt.List)
	auth.POST("/notifications/:id/read", nt.MarkRead)
}
