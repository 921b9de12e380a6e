// Package app wires the Pawline chat runtime: config, logging, storage,
// broadcast, HTTP routes, and the websocket gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pawline/cmd/internal/auth"
	"pawline/cmd/internal/chat"
	"pawline/cmd/internal/chat/api"
	"pawline/cmd/internal/directory"
	"pawline/cmd/internal/images"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// App is the chat server runtime. It owns the HTTP server wiring plus the
// per-process broadcast subscriber loop.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	rdb    *redis.Client

	store chat.Store

	reg *prometheus.Registry

	broadcast *chat.RedisBroadcast
	hub       *chat.Hub

	ws      *chat.WSGateway
	chatAPI *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chat.NewMetrics(reg)

	store, dbPool, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	listings, members, err := newDirectory(cfg, dbPool)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	rdb, broadcast, pub, err := newBroadcast(context.Background(), cfg, log, metrics)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	svc, err := chat.NewService(log, store, listings, members, pub, metrics)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	authCfg, err := auth.LoadConfigFromEnv()
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}
	verifier, err := auth.NewVerifier(authCfg)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	hub := chat.NewHub(log)
	ws, err := chat.NewWSGateway(log, hub, svc, verifier, metrics)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	issuer, err := newImageIssuer(cfg)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	chatAPI, err := api.NewHandler(log, svc, verifier, issuer, authCfg.CookieName)
	if err != nil {
		closeStore(log, store, dbPool)
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		rdb:       rdb,
		store:     store,
		reg:       reg,
		broadcast: broadcast,
		hub:       hub,
		ws:        ws,
		chatAPI:   chatAPI,
	}, nil
}

// Run starts the HTTP server and the broadcast subscriber, blocking until
// context cancellation or a fatal error in either.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.rdb, a.reg, a.ws, a.chatAPI)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"broadcast_enabled", a.broadcast != nil,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.broadcast != nil {
		g.Go(func() error {
			err := a.broadcast.Run(gctx, a.hub)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, sCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer sCancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	closeStore(a.log, a.store, a.dbPool)
	if a.rdb != nil {
		if cerr := a.rdb.Close(); cerr != nil {
			a.log.Error("redis.close.fail", "err", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("server.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store.
//
// Ownership model:
// - app owns the pool lifecycle
// - PostgresStore.Close() is a no-op
func newStore(ctx context.Context, cfg Config, log Logger) (chat.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return chat.NewInMemoryStore(), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := chat.NewPostgresStore(pool, chat.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return store, pool, nil
}

func newDirectory(cfg Config, pool *pgxpool.Pool) (directory.Listings, directory.Members, error) {
	if pool == nil {
		d := directory.NewInMemoryDirectory()
		return d, d, nil
	}
	d, err := directory.NewPostgresDirectory(pool, directory.WithSchema(cfg.DBSchema))
	if err != nil {
		return nil, nil, err
	}
	return d, d, nil
}

// newBroadcast wires the Redis fan-out. Without a Redis URL the service runs
// single-process: sends persist and local ack, but cross-process live delivery
// is absent.
func newBroadcast(ctx context.Context, cfg Config, log Logger, metrics *chat.Metrics) (*redis.Client, *chat.RedisBroadcast, chat.Publisher, error) {
	if cfg.RedisURL == "" {
		log.Info("broadcast.disabled.single_process")
		return nil, nil, chat.NopPublisher{}, nil
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	b, err := chat.NewRedisBroadcast(log, rdb, chat.WithBroadcastMetrics(metrics))
	if err != nil {
		_ = rdb.Close()
		return nil, nil, nil, err
	}

	log.Info("broadcast.enabled.redis")
	return rdb, b, b, nil
}

func newImageIssuer(cfg Config) (*images.Issuer, error) {
	if cfg.S3Endpoint == "" {
		return nil, nil
	}
	return images.NewIssuer(images.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
}

func closeStore(log Logger, store chat.Store, pool *pgxpool.Pool) {
	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("store.close.fail", "err", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
}
