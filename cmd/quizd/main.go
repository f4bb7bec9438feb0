package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/ledger"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/seed"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("quizd stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh, string(cfg.Mode))
	store := quiz.NewSQLStore(dbh, events)
	accounts := users.NewRepo(dbh, 0)
	m := metrics.New()
	ldg := ledger.New(store, ledger.WithLogger(lg.Named("ledger")), ledger.WithRecorder(m))

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, store, accounts, cfg.AdminEmail, cfg.AdminPassword, lg.Named("seed")); err != nil {
			return err
		}
	}

	handler := api.NewRouter(api.Deps{
		DB:                 dbh,
		Store:              store,
		Ledger:             ldg,
		Users:              accounts,
		Events:             events,
		Auth:               auth.NewAuthService(cfg.HMACSecret, cfg.TokenTTL),
		Metrics:            m,
		Log:                lg.Named("http"),
		CORSOrigins:        cfg.CORSOrigins,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", string(cfg.Mode)), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		lg.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
