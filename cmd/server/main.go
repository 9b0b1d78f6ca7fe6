package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"preuvio/internal/analysis"
	"preuvio/internal/api"
	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/evidence"
	"preuvio/internal/expiration"
	"preuvio/internal/export"
	"preuvio/internal/magiclink"
	"preuvio/internal/notification"
	"preuvio/internal/objectstore"
	"preuvio/internal/platform/config"
	"preuvio/internal/platform/httpserver"
	"preuvio/internal/platform/logger"
	"preuvio/internal/platform/metrics"
	"preuvio/internal/platform/postgres"
	platformredis "preuvio/internal/platform/redis"
	"preuvio/internal/profile"
	"preuvio/internal/ratelimit"
	"preuvio/internal/review"
	"preuvio/internal/rules"
	tenantstore "preuvio/internal/tenant/store"
	txcontext "preuvio/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: PostgreSQL when a database is configured, in-memory otherwise.
	var (
		platforms  tenantstore.PlatformStore
		profiles   profile.Store
		rulesStore rules.Store
		links      magiclink.Store
		evidences  evidence.Store
		notifs     notification.Store
		audits     audit.Store
		runner     txcontext.Runner
	)
	if db != nil {
		platforms = tenantstore.NewPostgres(db)
		profiles = profile.NewPostgresStore(db)
		rulesStore = rules.NewPostgresStore(db)
		links = magiclink.NewPostgresStore(db)
		evidences = evidence.NewPostgresStore(db)
		notifs = notification.NewPostgresStore(db)
		audits = audit.NewPostgresStore(db)
		runner = txcontext.NewSQLRunner(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		platforms = tenantstore.NewInMemory()
		profiles = profile.NewInMemoryStore()
		memRules := rules.NewInMemoryStore()
		if _, err := rules.SeedGlobalTemplate(memRules); err != nil {
			log.Error("seed global rules template failed", "error", err)
			os.Exit(1)
		}
		rulesStore = memRules
		links = magiclink.NewInMemoryStore()
		evidences = evidence.NewInMemoryStore()
		notifs = notification.NewInMemoryStore()
		audits = audit.NewInMemoryStore()
		runner = txcontext.PassthroughRunner{}
	}

	var objects objectstore.Store
	if cfg.S3.AccessKey != "" {
		s3store, err := objectstore.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Error("object store init failed", "error", err)
			os.Exit(1)
		}
		objects = s3store
	} else {
		log.Warn("no S3 credentials configured, storing documents in memory")
		objects = objectstore.NewInMemoryStore()
	}

	var mailer notification.Mailer
	if cfg.Email.APIKey != "" {
		mailer = notification.NewResendMailer(cfg.Email)
	} else {
		mailer = notification.NewLogMailer(log)
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewFixedWindow(redisClient, cfg.Intake.RateLimit, cfg.Intake.RateWindow)
	} else {
		limiter = ratelimit.NewSlidingWindow(cfg.Intake.RateLimit, cfg.Intake.RateWindow)
	}

	auditPub := audit.NewPublisher(audits, log)
	linkSvc := magiclink.NewService(links, profiles, platforms, rulesStore, auditPub, cfg.AppOrigin, log)
	dispatcher := notification.NewDispatcher(notifs, mailer, platforms, profiles, auditPub, m, cfg.AppOrigin, log)
	analyzer := analysis.NewClient(cfg.Analysis)
	evidenceSvc := evidence.NewService(evidences, linkSvc, profiles, objects, limiter, analyzer,
		dispatcher, auditPub, m, cfg.Intake.MaxUploadBytes, log)
	reviewSvc := review.NewService(evidences, profiles, runner, auditPub, log)
	scanner := expiration.NewScanner(evidences, profiles, rulesStore, notifs, dispatcher,
		auditPub, m, cfg.Notify.DrainBatch, log)

	router := api.NewRouter(api.Deps{
		Logger:       log,
		JWTValidator: authn.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer),
		JobCredHash:  cfg.JobCredentialHash,
		MagicLinks:   linkSvc,
		Evidences:    evidenceSvc,
		Reviews:      reviewSvc,
		Scanner:      scanner,
		Dispatcher:   dispatcher,
		Analyzer:     analyzer,
		Exporter:     export.NewExporter(profiles, evidences, audits),
		Audit:        auditPub,
		Platforms:    platforms,
		Profiles:     profiles,
		Rules:        rulesStore,
		MaxUploadMem: cfg.Intake.MaxUploadBytes,
	})

	appServer := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server listening", "addr", cfg.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		return appServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
