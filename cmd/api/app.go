package main

import (
	"context"
	"database/sql"
	"fmt"

	"masterdata/auth"
	"masterdata/config"
	"masterdata/db"
	"masterdata/i18n"
	"masterdata/logging"
	"masterdata/master"
	"masterdata/response"
	"masterdata/validate"
)

// store bundles the repositories of one backend and how to release it.
type store struct {
	masters master.Repository
	users   auth.Repository
	close   func()
}

// openStore connects the configured backend and applies migrations when
// enabled.
func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return &store{
			masters: master.NewMemoryRepository(),
			users:   auth.NewMemoryRepository(),
			close:   func() {},
		}, nil

	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := db.Migrate(ctx, conn, db.DialectSQLite); err != nil {
				conn.Close()
				return nil, err
			}
			logger.Info(ctx, "migrations applied", "driver", cfg.Store.Driver)
		}
		return &store{
			masters: master.NewSQLiteRepository(conn),
			users:   auth.NewSQLiteRepository(conn),
			close:   func() { conn.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			sqlDB := db.SQLDB(pool)
			err := db.Migrate(ctx, sqlDB, db.DialectPostgres)
			sqlDB.Close()
			if err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info(ctx, "migrations applied", "driver", cfg.Store.Driver)
		}
		return &store{
			masters: master.NewPGRepository(pool),
			users:   auth.NewRepository(pool),
			close:   pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openSQL returns a database/sql handle for the migrate command.
func openSQL(ctx context.Context, cfg *config.Config) (*sql.DB, db.Dialect, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, "", nil, err
		}
		return conn, db.DialectSQLite, func() { conn.Close() }, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, "", nil, err
		}
		sqlDB := db.SQLDB(pool)
		return sqlDB, db.DialectPostgres, func() { sqlDB.Close(); pool.Close() }, nil
	default:
		return nil, "", nil, fmt.Errorf("store driver %q has no migrations", cfg.Store.Driver)
	}
}

// newServer wires the services on top of st.
func newServer(cfg *config.Config, st *store, logger logging.Logger) (*Server, error) {
	validator, err := validate.New(cfg.Master.Rules, cfg.Master.Required)
	if err != nil {
		return nil, err
	}
	translator, err := i18n.New(cfg.Locale.Default)
	if err != nil {
		return nil, err
	}

	masterSvc := master.NewService(st.masters, validator, master.Options{
		Paths:    master.Paths{Prefix: cfg.Guard.Prefix},
		Groups:   cfg.Master.Groups,
		Required: cfg.Master.Required,
		Modules:  cfg.Master.Modules,
		Scope:    cfg.Aggregates.Scope,
		Limit:    cfg.Pagination.Limit,
		MaxLimit: cfg.Pagination.MaxLimit,
	})
	authSvc := auth.NewService(st.users, cfg.Guard.JWTSecret,
		auth.WithTokenTTL(cfg.Guard.TokenTTL),
		auth.WithDefaultUserType(auth.UserType(cfg.Guard.DefaultUserType)),
	)

	return &Server{
		masterService: masterSvc,
		authService:   authSvc,
		translator:    translator,
		renderer:      response.JSONRenderer{},
		logger:        logger,
		guardRequired: cfg.Guard.Required,
	}, nil
}
