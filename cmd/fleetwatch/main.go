package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/console/handler"
	"github.com/xela07ax/fleetwatch/internal/console/server"
	"github.com/xela07ax/fleetwatch/internal/console/service"
	"github.com/xela07ax/fleetwatch/internal/costs"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/infra/auth"
	"github.com/xela07ax/fleetwatch/internal/ingest"
	"github.com/xela07ax/fleetwatch/internal/poller"
	"github.com/xela07ax/fleetwatch/internal/repository/postgres"
	"github.com/xela07ax/fleetwatch/internal/rules"
	"github.com/xela07ax/fleetwatch/internal/scheduler"
	"github.com/xela07ax/fleetwatch/internal/score"
	"github.com/xela07ax/fleetwatch/internal/signal"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// storage
	pool, err := postgres.NewPool(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pool.Close()
	st := postgres.NewStore(pool)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// metrics
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	// control plane
	stops := signal.NewStopController(rdb, metrics, logger)
	if err := stops.Init(appCtx); err != nil {
		logger.Fatal("stop controller init failed", zap.Error(err))
	}
	go stops.StartListener(appCtx)

	publisher := signal.NewAlertPublisher(rdb, logger)

	// engine
	ledger := budget.NewLedger(st.Budgets, logger)
	aggregator := costs.NewAggregator(st.Costs)
	scoreEngine := score.NewEngine(st.Snitches, st.Agents, logger)
	ingestSvc := ingest.NewService(st, ledger, stops, metrics, logger)
	evaluator := rules.NewEvaluator(st, aggregator, publisher, metrics, logger)

	go scheduler.New(evaluator, cfg.Monitor.EvaluateInterval, logger).Run(appCtx)

	gatewayClient := poller.NewGatewayClient(cfg.Monitor.GatewayTimeout, cfg.Monitor.PollRatePerSec)
	go poller.New(st.Agents, ingestSvc, gatewayClient, stops, metrics, cfg.Monitor.PollInterval, logger).Run(appCtx)

	// console API
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("loading private key failed", zap.Error(err))
	}
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("loading public key failed", zap.Error(err))
	}
	authService := service.NewAuthService(st.Operators, privateKey, publicKey, cfg.Auth.TokenTTL)

	console := server.NewConsoleServer(
		logger,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewAgentHandler(st.Agents, stops, logger),
		handler.NewBudgetHandler(st.Budgets, ledger),
		handler.NewRuleHandler(st.Rules, evaluator),
		handler.NewAlertHandler(st.Alerts),
		handler.NewCostHandler(aggregator),
		handler.NewSnitchHandler(scoreEngine),
		handler.NewActivityHandler(st.Activities),
		handler.NewChannelHandler(st.Channels),
		handler.NewIngestHandler(ingestSvc),
		handler.NewDashboardHandler(st, aggregator, stops),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("fleetwatch started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	ossignal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("fleetwatch stopping")

	cancel() // stop the scheduler, the poller and the Redis listener

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("fleetwatch exited")
}
