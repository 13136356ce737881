package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	contacthandler "contactlink/internal/contact/handler"
	contactservice "contactlink/internal/contact/service"
	contactstore "contactlink/internal/contact/store"
	"contactlink/internal/platform/config"
	"contactlink/internal/platform/httpserver"
	"contactlink/internal/platform/logger"
	"contactlink/internal/platform/metrics"
	"contactlink/pkg/platform/audit/relay"
	auditmemory "contactlink/pkg/platform/audit/store/memory"
	auditpostgres "contactlink/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Resolution logic lives in internal/contact; main only decides which store,
// transaction runner, and audit sink back it.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []contactservice.Option{
		contactservice.WithLogger(log),
		contactservice.WithMetrics(m),
	}

	var (
		store      contactservice.Store
		db         *sql.DB
		auditRelay *relay.Relay
		err        error
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()

		store = contactstore.NewPostgres(db)
		opts = append(opts,
			contactservice.WithStoreTx(newContactPostgresTx(db)),
			contactservice.WithAuditStore(auditpostgres.New(db)),
		)

		if len(cfg.KafkaBrokers) > 0 {
			auditRelay, err = relay.New(db, cfg.KafkaBrokers, cfg.AuditTopic, log)
			if err != nil {
				log.Error("create audit relay", "error", err.Error())
				os.Exit(1)
			}
			defer auditRelay.Close()
			if err := auditRelay.EnsureTopic(ctx); err != nil {
				log.Error("ensure audit topic", "error", err.Error())
				os.Exit(1)
			}
		}
	} else {
		log.Info("DATABASE_URL not set, using in-memory store")
		store = contactstore.NewInMemory()
		opts = append(opts, contactservice.WithAuditStore(auditmemory.New()))
	}

	service := contactservice.New(store, opts...)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	contacthandler.New(service, log, m).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting contactlink", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if auditRelay != nil {
		g.Go(func() error {
			if err := auditRelay.Run(gctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
