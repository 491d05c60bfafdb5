package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/config"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/database"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/handler"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/memstore"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/queue"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/repository"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/router"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/sweeper"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage backend: MySQL in production, in-memory for local development.
	var (
		ledger engine.StockLedger
		store  engine.ReservationStore
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Printf("storage: using in-memory backend (driver=memory)")
		ledger = memstore.NewLedger()
		store = memstore.NewStore()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: open failed: %v", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("database: schema bootstrap failed: %v", err)
		}
		ledger = repository.NewStockLedgerRepo(db)
		store = repository.NewReservationStoreRepo(db)
	}

	eng := engine.New(ledger, store, cfg.ReservationTTL, cfg.LockTimeout)

	// Background expiry sweep; stops with the signal context.
	sw := sweeper.New(eng, store, cfg.SweepInterval, cfg.SweepBatch)
	go sw.Run(ctx)

	// Lifecycle event consumer keeps its own reconnect loop.
	go func() {
		if err := queue.StartLifecycleConsumer(); err != nil {
			log.Printf("lifecycle-consumer: %v", err)
		}
	}()

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting and caching disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterCustomer(e, handler.NewCustomerHandler(eng), cfg.JWTSecret, rdb)
	router.RegisterMerchant(e, handler.NewMerchantHandler(eng), cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s ttl=%s sweep=%s)", addr, cfg.Env, cfg.ReservationTTL, cfg.SweepInterval)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Printf("server stopped")
}
