package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/config"
	"github.com/Skotchmaster/venues/internal/es"
	"github.com/Skotchmaster/venues/internal/events"
	"github.com/Skotchmaster/venues/internal/hash"
	"github.com/Skotchmaster/venues/internal/httpserver"
	"github.com/Skotchmaster/venues/internal/logging"
	"github.com/Skotchmaster/venues/internal/metrics"
	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/internal/repo"
	"github.com/Skotchmaster/venues/internal/service"
	"github.com/Skotchmaster/venues/internal/service/search"
	loggingmw "github.com/Skotchmaster/venues/pkg/middleware/logging"
	"github.com/Skotchmaster/venues/pkg/db"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, tokens.ErrMissingSigningKey) {
			log.Fatalf("refusing to start without a signing key: %v", err)
		}
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DB.URL, db.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err == nil && cfg.DB.AutoMigrate {
		err = db.Migrate(initCtx, gdb, logger, models.All()...)
	}
	cancel()
	if err != nil {
		logger.Fatal("db init error", zap.Error(err))
	}

	issuer, err := tokens.NewIssuer(cfg.AuthConfig(), time.Now)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	r := repo.New(gdb)
	svc := service.New(
		r,
		hash.New(cfg.Hash.Cost, cfg.Hash.Workers),
		service.NewLedger(r, issuer, time.Now),
		service.Config{LockoutThreshold: cfg.Lockout.Threshold, LockoutDuration: cfg.Lockout.Duration},
	)

	var producer *events.Producer
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		producer = events.NewProducer(brokers, cfg.Kafka.Topic, logger)
		svc.Events = producer
	} else {
		logger.Info("kafka brokers not configured, auth events are dropped")
	}

	var searchHTTP *httpserver.SearchHTTP
	if cfg.ES.URL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ES.URL, User: cfg.ES.User, Password: cfg.ES.Password}, logger)
		esCancel()
		if err != nil {
			logger.Warn("elasticsearch unavailable, company search disabled", zap.Error(err))
		} else {
			index := search.NewCompanyIndex(client, cfg.ES.Index)
			svc.Companies = index
			searchHTTP = &httpserver.SearchHTTP{Index: index}
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.BodyLimit),
		loggingmw.RequestLogger(logger),
		metrics.HTTP(),
	)

	if err := httpserver.Register(e, &httpserver.Deps{
		DB:            gdb,
		AuthHandler:   &httpserver.AuthHTTP{Svc: svc},
		SearchHandler: searchHTTP,
		Tokens:        issuer,
		AuthRate:      cfg.RateLimit.Auth,
	}); err != nil {
		logger.Fatal("routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           e,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", zap.Error(err))
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
