package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix is prepended to every environment override except DATABASE_URL.
const EnvPrefix = "MASTER_"

// parseEnv overlays environment variables onto c.
func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var firstErr error
	integer := func(name string, dst *int) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("config: %s: %w", name, err)
			}
			return
		}
		*dst = n
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("config: %s: %w", name, err)
			}
			return
		}
		*dst = b
	}
	duration := func(name string, dst *time.Duration) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("config: %s: %w", name, err)
			}
			return
		}
		*dst = d
	}

	str("DATABASE_URL", &c.Store.DatabaseURL)
	str(EnvPrefix+"DATABASE_URL", &c.Store.DatabaseURL)
	str(EnvPrefix+"HTTP_ADDR", &c.HTTP.Addr)
	duration(EnvPrefix+"SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	str(EnvPrefix+"GUARD_PREFIX", &c.Guard.Prefix)
	str(EnvPrefix+"JWT_SECRET", &c.Guard.JWTSecret)
	boolean(EnvPrefix+"GUARD_REQUIRED", &c.Guard.Required)
	str(EnvPrefix+"STORE_DRIVER", &c.Store.Driver)
	str(EnvPrefix+"SQLITE_PATH", &c.Store.SQLitePath)
	boolean(EnvPrefix+"STORE_MIGRATE", &c.Store.Migrate)
	integer(EnvPrefix+"PAGE_LIMIT", &c.Pagination.Limit)
	integer(EnvPrefix+"PAGE_MAX_LIMIT", &c.Pagination.MaxLimit)
	str(EnvPrefix+"AGGREGATES_SCOPE", &c.Aggregates.Scope)
	str(EnvPrefix+"LOCALE", &c.Locale.Default)
	str(EnvPrefix+"LOG_LEVEL", &c.Log.Level)
	str(EnvPrefix+"LOG_FORMAT", &c.Log.Format)

	return firstErr
}
