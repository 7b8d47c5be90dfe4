package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praesidio-sec/phishsim/internal/config"
	"github.com/praesidio-sec/phishsim/internal/ratelimit"
	"github.com/praesidio-sec/phishsim/internal/store/postgres"
	"github.com/praesidio-sec/phishsim/internal/tracking"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("[Tracking] Connected to database")

	var limiter *ratelimit.TokenLimiter
	if cfg.Redis.URL != "" {
		limiter, err = ratelimit.NewTokenLimiterFromURL(cfg.Redis.URL, cfg.Tracking.TokenRatePerMinute)
		if err != nil {
			log.Printf("[Tracking] Redis unavailable, using in-process limiter: %v", err)
			limiter = ratelimit.NewTokenLimiter(nil, cfg.Tracking.TokenRatePerMinute)
		}
	} else {
		limiter = ratelimit.NewTokenLimiter(nil, cfg.Tracking.TokenRatePerMinute)
	}
	defer limiter.Close()

	recipients := postgres.NewRecipientRepo(db)
	campaigns := postgres.NewCampaignRepo(db)
	templates := postgres.NewTemplateRepo(db)
	events := postgres.NewEventRepo(db)

	svc := tracking.NewService(recipients, campaigns, templates, events, limiter)
	handler := tracking.NewHandler(svc)

	// The public surface lives under /t so the admin API and tracking
	// can share a reverse proxy host.
	root := chi.NewRouter()
	root.Mount("/t", handler.Routes())

	addr := fmt.Sprintf(":%d", cfg.Tracking.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[Tracking] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Tracking] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
