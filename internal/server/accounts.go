package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/accounts"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedUser(s SeedUser) soundwave.User {
	profile := s.Profile
	if profile == "" {
		profile = "USER"
	}
	return soundwave.User{ID: s.ID, IsActive: s.Active, CurrentProfile: profile, Role: "USER"}
}

// openAccounts returns the configured account store and its closer.
func openAccounts(ctx context.Context, cfg AccountsConfig, log *slog.Logger) (soundwave.AccountProvider, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Driver {
	case "memory":
		store := accounts.NewMemoryStore()
		for _, u := range cfg.Seed {
			store.Upsert(seedUser(u))
		}
		log.Info("accounts.memory", "seeded", len(cfg.Seed))
		return store, nop, nil

	case "sqlite":
		store, err := accounts.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		for _, u := range cfg.Seed {
			if err := store.Upsert(ctx, seedUser(u)); err != nil {
				_ = store.Close()
				return nil, nil, fmt.Errorf("seed account %s: %w", u.ID, err)
			}
		}
		log.Info("accounts.sqlite", "path", cfg.SQLitePath, "seeded", len(cfg.Seed))
		return store, store.Close, nil

	case "postgres":
		pool, err := newDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := accounts.NewPostgresStore(pool, accounts.WithTable(cfg.Schema, cfg.Table), accounts.WithIDType(cfg.IDType))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("accounts.postgres", "schema", cfg.Schema, "table", cfg.Table)
		return store, func() error { pool.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown accounts driver %q", cfg.Driver)
	}
}

// newDBPool opens a pgx pool and checks that a connection can be acquired.
func newDBPool(ctx context.Context, cfg AccountsConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse accounts dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("accounts db ping: %w", err)
	}
	conn.Release()
	return pool, nil
}
