package main // Entry point package

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/admission"
	"github.com/onsale/ticketing/internal/clock"
	"github.com/onsale/ticketing/internal/config"
	"github.com/onsale/ticketing/internal/database"
	"github.com/onsale/ticketing/internal/handler"
	"github.com/onsale/ticketing/internal/lock"
	"github.com/onsale/ticketing/internal/order"
	"github.com/onsale/ticketing/internal/queue"
	"github.com/onsale/ticketing/internal/repository"
	"github.com/onsale/ticketing/internal/reservation"
	"github.com/onsale/ticketing/internal/router"
	"github.com/onsale/ticketing/internal/scheduler"
	"github.com/onsale/ticketing/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the admission queue and the scheduler locks; without
	// it only a single instance can run safely.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis unavailable; admission queue and job locks require it")
	}

	clk := clock.NewSystem()
	store := repository.NewStore(db)
	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)

	adm := admission.NewQueue(admission.NewRedisStore(rdb), events, clk, cfg.AdmissionCap, cfg.AdmissionTTL)
	engine := reservation.NewEngine(store, adm, clk, reservation.WithHoldTTL(cfg.HoldTTL))
	finalizer := order.NewFinalizer(store, engine, service.NewPublisher(), clk)

	// Cluster-exclusive maintenance: expired-hold sweep and queue
	// promotion, one running instance per job across the deployment.
	guard := scheduler.NewGuard(lock.NewRedisLocker(rdb), cfg.LockLease)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go guard.RunExclusive(ctx, "hold-sweep", cfg.SweepInterval, func(ctx context.Context) error {
		return forEachOpenEvent(ctx, events, func(eventID uint64) error {
			n, err := engine.SweepExpired(ctx, eventID)
			if n > 0 {
				log.Printf("sweeper: event %d: released %d expired holds", eventID, n)
			}
			return err
		})
	})
	go guard.RunExclusive(ctx, "queue-promote", cfg.PromoteInterval, func(ctx context.Context) error {
		return forEachOpenEvent(ctx, events, func(eventID uint64) error {
			n, err := adm.Promote(ctx, eventID)
			if n > 0 {
				log.Printf("promoter: event %d: admitted %d waiting holders", eventID, n)
			}
			return err
		})
	})

	// Audit consumer for order.issued events.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order-consumer: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Handlers{
		Admission:   handler.NewAdmissionHandler(adm),
		Reservation: handler.NewReservationHandler(engine),
		Order:       handler.NewOrderHandler(finalizer),
		Seats:       handler.NewSeatHandler(events, seats),
		AdminSeats:  handler.NewAdminSeatHandler(events, store),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// forEachOpenEvent runs fn for every OPEN event, collecting the first
// error but visiting all events so one bad event cannot starve the
// rest.
func forEachOpenEvent(ctx context.Context, events *repository.EventRepo, fn func(eventID uint64) error) error {
	open, err := events.ListOpen(ctx)
	if err != nil {
		return err
	}
	var first error
	for _, ev := range open {
		if err := fn(ev.ID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
