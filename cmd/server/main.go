package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/praesidio-sec/phishsim/internal/aggregate"
	"github.com/praesidio-sec/phishsim/internal/api"
	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/config"
	"github.com/praesidio-sec/phishsim/internal/delivery"
	"github.com/praesidio-sec/phishsim/internal/directory"
	"github.com/praesidio-sec/phishsim/internal/pkg/distlock"
	"github.com/praesidio-sec/phishsim/internal/ratelimit"
	"github.com/praesidio-sec/phishsim/internal/report"
	"github.com/praesidio-sec/phishsim/internal/retention"
	"github.com/praesidio-sec/phishsim/internal/scheduler"
	"github.com/praesidio-sec/phishsim/internal/store/postgres"
	"github.com/praesidio-sec/phishsim/internal/targeting"
	"github.com/praesidio-sec/phishsim/internal/template"
	"github.com/praesidio-sec/phishsim/internal/token"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("[Server] Connected to database")

	// Repositories
	campaignRepo := postgres.NewCampaignRepo(db)
	runRepo := postgres.NewRunRepo(db)
	recipientRepo := postgres.NewRecipientRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	resultRepo := postgres.NewResultRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	auditRepo := postgres.NewAuditRepo(db)

	auditLog := audit.NewLogger(auditRepo)

	// Delivery
	renderer := template.NewEngine()
	sendLimiter := ratelimit.NewFixedWindow()
	deliverer := delivery.NewService(settingsRepo, recipientRepo, eventRepo,
		renderer, sendLimiter, cfg.Tracking.BaseURL, cfg.Branding)

	// Campaign orchestration
	tokens := token.NewGenerator(recipientRepo.TokenExists)
	targetEngine := targeting.NewEngine(rand.NewSource(time.Now().UnixNano()))
	campaigns := campaign.NewService(campaignRepo, runRepo, recipientRepo,
		templateRepo, deliverer, targetEngine, tokens, auditLog)

	// Read models
	reports := report.NewService(postgres.NewReportStore(campaignRepo, resultRepo, recipientRepo, eventRepo))

	// Background workers
	var population scheduler.PopulationSource = directory.Empty{}
	if cfg.Directory.URL != "" {
		population = directory.NewClient(cfg.Directory.URL, cfg.Directory.APIKey)
		log.Printf("[Server] directory source: %s", cfg.Directory.URL)
	} else {
		log.Println("[Server] no directory configured; scheduled runs will target nobody")
	}

	sched := scheduler.New(campaignRepo, campaigns, population,
		cfg.Scheduler.FireProbabilityPct, rand.NewSource(time.Now().UnixNano()))
	aggregator := aggregate.NewEngine(postgres.NewAggregateStore(campaignRepo, recipientRepo, eventRepo), resultRepo)
	purger := retention.NewService(campaignRepo, postgres.NewRetentionStore(recipientRepo, eventRepo), auditLog)

	manager := scheduler.NewManager(sched, aggregator, purger, scheduler.ManagerConfig{
		TickInterval:    time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute,
		AggregationHour: cfg.Scheduler.AggregationHour,
		RetentionHour:   cfg.Scheduler.RetentionHour,
	})
	// Daily jobs must run once across all server instances; an advisory
	// lock on the shared database elects the runner.
	manager.SetJobLock(distlock.NewLock(nil, db, "phishsim:daily-jobs", 10*time.Minute))

	ctx := context.Background()
	manager.Start(ctx)
	defer manager.Stop()

	// Admin API
	handlers := api.NewHandlers(campaigns, reports, templateRepo, settingsRepo,
		deliverer, auditRepo, auditLog)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.SetupRoutes(handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[Server] admin API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Server] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
