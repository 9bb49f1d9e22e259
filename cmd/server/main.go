package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ThinkalVB/entebus-server/internal/adapters/geo"
	"github.com/ThinkalVB/entebus-server/internal/adapters/lock"
	"github.com/ThinkalVB/entebus-server/internal/adapters/repositories"
	"github.com/ThinkalVB/entebus-server/internal/adapters/sandbox"
	"github.com/ThinkalVB/entebus-server/internal/api"
	"github.com/ThinkalVB/entebus-server/internal/config"
	"github.com/ThinkalVB/entebus-server/internal/platform/db"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, Lua sandbox) behind ports
// and starts the HTTP server plus the trigger-engine ticker.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := config.Load()
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("verify redis connection to %q: %v", cfg.RedisAddr, err)
	}
	defer rdb.Close()

	locker := lock.NewRedisLocker(rdb, cfg.Lock.RetryInterval)
	luaSandbox := sandbox.NewLuaSandbox(cfg.Sandbox)

	schedules := repositories.NewPostgresScheduleRepository(pg)
	svcRepo := repositories.NewPostgresServiceRepository(pg)
	duties := repositories.NewPostgresDutyRepository(pg)
	fares := repositories.NewPostgresFareRepository(pg)
	fleet := repositories.NewPostgresFleetRepository(pg)
	tickets := repositories.NewPostgresTicketRepository(pg)
	locator := geo.NewPostgresLocator(pg)

	resolver := services.NewFareResolver(fares, luaSandbox)
	engine := services.NewTriggerEngine(schedules, svcRepo, fleet, fares, locker, cfg.Lock, cfg.Scheduler)
	manager := services.NewLifecycleManager(svcRepo, duties, tickets, cfg.Scheduler)
	issuer := services.NewTicketIssuer(svcRepo, duties, tickets, resolver)

	router := api.NewRouter(engine, manager, issuer, resolver, locator)

	// The ticker drives automatic materialization; workers on other hosts
	// may tick concurrently, the lock manager and the uniqueness
	// constraint keep each occurrence single.
	go runTicker(engine, cfg.Scheduler.TickInterval)

	log.Printf("Server listening addr=%s", cfg.HTTPAddr)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func runTicker(engine *services.TriggerEngine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		report, err := engine.RunTick(context.Background())
		if err != nil {
			log.Printf("op=ticker err=%v", err)
			continue
		}
		if report.Candidates > 0 {
			log.Printf("op=ticker candidates=%d created=%d duplicates=%d skipped=%d failed=%d",
				report.Candidates, report.Created, report.Duplicates, report.Skipped, report.Failed)
		}
	}
}
