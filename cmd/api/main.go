package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewardcoins/coinledger/internal/adbridge"
	"github.com/rewardcoins/coinledger/internal/api"
	"github.com/rewardcoins/coinledger/internal/auth"
	"github.com/rewardcoins/coinledger/internal/config"
	"github.com/rewardcoins/coinledger/internal/logging"
	"github.com/rewardcoins/coinledger/internal/service"
	"github.com/rewardcoins/coinledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("coinledger", "").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("coinledger", cfg.Env)

	db, err := store.New(cfg.DBSource)
	if err != nil {
		logger.Error("unable to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	loc, err := cfg.Economy.Location()
	if err != nil {
		logger.Error("invalid economy timezone", "err", err)
		os.Exit(1)
	}

	// Layers
	limiter := service.NewLimiter(db, cfg.Economy.MaxSpinsPerDay, loc)
	bridge := adbridge.Detect(cfg.AdBridgeURL, logger)
	if !bridge.Available() {
		logger.Warn("no ad bridge configured, rewarded-ad steps will be granted without ads")
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dispatcher := service.NewDispatcher(db, limiter, db, bridge, cfg.AdPlacementID,
		cfg.Economy.CheckinReward, cfg.Economy.AdReward, cfg.Economy.WheelSegments,
		rng, logger)
	coordinator := service.NewCoordinator(db, db, db, cfg.Economy.RedeemOptions, logger)
	provider := auth.NewProvider(cfg.ProviderSecret, cfg.ProviderIssuer, cfg.ProviderAudience, logger)
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	handler := api.NewHandler(db, limiter, dispatcher, coordinator, db, db,
		provider, sessions, cfg.Economy, logger)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	rl := api.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)
	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(rl.Middleware)
	apiV1.HandleFunc("/auth/signin", handler.SignInHandler).Methods("POST")

	protected := apiV1.NewRoute().Subrouter()
	protected.Use(sessions.Middleware(logger))
	protected.HandleFunc("/me", handler.MeHandler).Methods("GET")
	protected.HandleFunc("/actions", handler.ActionsHandler).Methods("GET")
	protected.HandleFunc("/actions/{id}/complete", handler.CompleteActionHandler).Methods("POST")
	protected.HandleFunc("/transactions", handler.TransactionsHandler).Methods("GET")
	protected.HandleFunc("/redeem/options", handler.RedeemOptionsHandler).Methods("GET")
	protected.HandleFunc("/redeem/{id}", handler.RedeemHandler).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
