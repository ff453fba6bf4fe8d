package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/locksmith-search/internal/config"
	"github.com/example/locksmith-search/internal/directory"
	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/geocode"
	httpapi "github.com/example/locksmith-search/internal/http"
	"github.com/example/locksmith-search/internal/ingest"
	"github.com/example/locksmith-search/internal/live"
	"github.com/example/locksmith-search/internal/logging"
	"github.com/example/locksmith-search/internal/payments"
	"github.com/example/locksmith-search/internal/search"
	"github.com/example/locksmith-search/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if err := runMigrations(cfg.PGDSN); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	resolver := geocode.Resolver(geocode.NewClient(cfg.GeocoderEndpoint, cfg.GeocoderToken))
	if cfg.GeocodeCacheTTL > 0 {
		resolver = geocode.NewCache(resolver, cfg.GeocodeCacheTTL)
	}

	var liveStore geo.LiveStore
	if cfg.RedisAddr != "" {
		liveStore = geo.NewRedisLive(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		liveStore = geo.NewIndex()
	}

	var dir directory.Directory
	if cfg.PGDSN != "" {
		pg, err := directory.NewPostgres(cfg.PGDSN)
		if err != nil {
			logger.Error("provider directory unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		dir = pg
	} else {
		logger.Warn("PG_DSN not set, using empty in-memory directory")
		dir = directory.NewMemory()
	}
	dir = directory.WithLive(dir, liveStore)

	var store storage.SearchStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("search store unavailable", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		store = ps
	} else {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
	}

	var deposits payments.Deposits
	if cfg.StripeAPIKey != "" {
		deposits = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	svc := &search.Service{
		Resolver:       resolver,
		Directory:      dir,
		Store:          store,
		Logger:         logger,
		RankByDistance: cfg.RankByDistance,
		Timeout:        cfg.SearchTimeout,
	}

	srv := httpapi.NewServer(httpapi.Options{
		Search:          svc,
		Deposits:        deposits,
		Hub:             live.NewHub(logger),
		Live:            liveStore,
		Kafka:           kp,
		Logger:          logger,
		DepositAmount:   cfg.DepositAmount,
		DepositCurrency: cfg.DepositCurrency,
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("locksmith search listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(b)); err != nil {
			return err
		}
	}
	return nil
}
