package main // Entry point package

import (
	"log" // startup logging
	"os"  // payment gateway environment

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service/notifier"
	"github.com/iliyamo/event-ticketing/internal/service/payment"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	policy := config.LoadCheckInPolicy()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and the public browse cache.  A nil
	// client disables both rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	transfers := repository.NewTransferRepo(db)
	notifications := repository.NewNotificationRepo(db)

	pay := payment.FromEnv(os.Getenv("PAYMENT_GATEWAY_URL"), os.Getenv("PAYMENT_API_KEY"))
	notify := notifier.New(users)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(events, users, notify)
	ticketH := handler.NewTicketHandler(cfg, events, tickets, pay, notify)
	transferH := handler.NewTransferHandler(tickets, transfers, events, users, notify)
	checkinH := handler.NewCheckInHandler(cfg, policy, events, tickets, users, notify)
	notifH := handler.NewNotificationHandler(notifications)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, eventH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterTicketing(e, cfg.JWTSecret, eventH, ticketH, transferH, checkinH, notifH)

	// The notification consumer persists in-app notifications from the
	// queue; it reconnects on its own and never takes the server down.
	go func() {
		if err := queue.StartNotificationConsumer(db); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
