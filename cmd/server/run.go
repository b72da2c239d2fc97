package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/cluegame/internal/cache"
	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/config"
	"github.com/playperu/cluegame/internal/database"
	"github.com/playperu/cluegame/internal/handler/health"
	"github.com/playperu/cluegame/internal/migrations"
	"github.com/playperu/cluegame/internal/natsbus"
	"github.com/playperu/cluegame/internal/server"
	"github.com/playperu/cluegame/internal/store"
)

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg.LogLevel)

	// --- SQLite ---
	db, err := openDB(ctx, logger, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	if cfg.AdminEmail != "" {
		if err := st.Admins.Seed(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	checks := map[string]health.Checker{
		"sqlite": health.CheckFunc(db.PingContext),
	}

	// --- Redis (optional) ---
	var (
		clues     server.ClueStore      = st.Clues
		snapshots cluegame.SessionStore = cluegame.NewMemoryStore()
	)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		clues = cache.NewClues(rdb, st.Clues, cfg.ClueCacheTTL, logger)
		snapshots = cache.NewSessions(rdb, cfg.SessionTTL)
		checks["redis"] = health.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	if cfg.SeedFile != "" {
		if err := server.Seed(ctx, logger, cfg.SeedFile, clues, st.Participants); err != nil {
			return err
		}
	}

	// --- NATS (optional) ---
	var reporter cluegame.AttemptReporter = st.Ledger
	if cfg.NATSURL != "" {
		nc, err := natsbus.Connect(cfg.NATSURL, "cluegame-server", logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		logger.Info("connected to nats", "subject", cfg.NATSSubject)

		consumer := natsbus.NewConsumer(nc, cfg.NATSSubject, st.Ledger, logger)
		if err := consumer.Start(); err != nil {
			return err
		}
		defer consumer.Stop()

		reporter = natsbus.NewReporter(nc, cfg.NATSSubject)
		checks["nats"] = health.CheckFunc(func(context.Context) error {
			if s := nc.Status(); s != nats.CONNECTED {
				return fmt.Errorf("nats status %s", s)
			}
			return nil
		})
	}

	// --- Engine ---
	engine := cluegame.NewEngine(clues, st.Participants, reporter,
		cluegame.WithMatcher(cluegame.NewMatcher(cfg.MatchThreshold)),
		cluegame.WithResolver(cluegame.Resolver{OffsetMinutes: cfg.TZOffsetMinutes}),
		cluegame.WithSessionStore(snapshots),
		cluegame.WithLogger(logger),
	)
	broker := server.NewBroker()
	sessions := server.NewSessions(engine, broker, logger, cfg.BoundaryCheckInterval, cfg.SessionIdleTimeout)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Clues:        clues,
		Participants: st.Participants,
		Ledger:       st.Ledger,
		Admins:       st.Admins,
		Sessions:     sessions,
		Broker:       broker,
		Snapshots:    snapshots,
		Checks:       checks,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return sessions.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func migrate(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDB(ctx, newLogger(stdout, cfg.LogLevel), cfg.DBPath)
	if err != nil {
		return err
	}
	return db.Close()
}

func seed(ctx context.Context, stdout io.Writer, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg.LogLevel)

	db, err := openDB(ctx, logger, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	return server.Seed(ctx, logger, path, st.Clues, st.Participants)
}

// openDB opens the SQLite database and brings its schema up to date.
func openDB(ctx context.Context, logger *slog.Logger, path string) (*sql.DB, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", path)
	return db, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
