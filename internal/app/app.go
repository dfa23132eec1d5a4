package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vadimbarashkov/signed-url-shortener/internal/config"
	"github.com/vadimbarashkov/signed-url-shortener/internal/envelope"
	"github.com/vadimbarashkov/signed-url-shortener/internal/metrics"
	"github.com/vadimbarashkov/signed-url-shortener/internal/service"
	"github.com/vadimbarashkov/signed-url-shortener/internal/token"
	"github.com/vadimbarashkov/signed-url-shortener/migrations"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/postgres"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/redis"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/vadimbarashkov/signed-url-shortener/internal/api/http"
	pgrepo "github.com/vadimbarashkov/signed-url-shortener/internal/database/postgres"
	redisrepo "github.com/vadimbarashkov/signed-url-shortener/internal/database/redis"
)

type storage struct {
	urls  service.URLRepository
	stats service.StatsRepository
	io.Closer
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg)

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer store.Close()

	logger.Info("storage ready", slog.String("driver", cfg.Storage))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	urlSvc := service.NewURLService(
		store.urls,
		store.stats,
		token.NewGenerator(cfg.TokenLength),
		envelope.NewSigner([]byte(cfg.SigningKey)),
		service.WithLogger(logger.Logger),
		service.WithRecorder(metrics.New(reg)),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc, cfg.TokenLength, reg),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) *httplog.Logger {
	return httplog.NewLogger("url-shortener", httplog.Options{
		JSON:     cfg.Env == config.EnvProd,
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		client, err := redis.New(
			ctx,
			cfg.Redis.URL,
			redis.WithPoolSize(cfg.Redis.PoolSize),
			redis.WithDialTimeout(cfg.Redis.DialTimeout),
			redis.WithReadTimeout(cfg.Redis.ReadTimeout),
			redis.WithWriteTimeout(cfg.Redis.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		return &storage{
			urls:   redisrepo.NewURLRepository(client, cfg.Redis.ScanCount),
			stats:  redisrepo.NewStatsRepository(client),
			Closer: client,
		}, nil

	case config.StoragePostgres:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return &storage{
			urls:   pgrepo.NewURLRepository(db),
			stats:  pgrepo.NewStatsRepository(db),
			Closer: db,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorage, cfg.Storage)
	}
}
