package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared with the CLI.
const (
	FlagConfig      = "config"
	FlagAddr        = "addr"
	FlagDatabaseURL = "database-url"
	FlagDriver      = "store"
	FlagSQLitePath  = "sqlite-path"
	FlagMigrate     = "migrate"
	FlagGuardPrefix = "guard-prefix"
	FlagJWTSecret   = "jwt-secret"
	FlagPageLimit   = "page-limit"
	FlagScope       = "aggregates-scope"
	FlagLocale      = "locale"
	FlagLogLevel    = "log-level"
	FlagLogFormat   = "log-format"
)

// RegisterFlags declares the configuration flags on fs. Defaults shown in
// help come from LoadDefaults; only flags the user sets override other layers.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to a YAML config file")
	fs.StringP(FlagAddr, "a", d.HTTP.Addr, "HTTP listen address")
	fs.StringP(FlagDatabaseURL, "d", d.Store.DatabaseURL, "PostgreSQL connection string")
	fs.String(FlagDriver, d.Store.Driver, "storage driver: postgres, sqlite or memory")
	fs.String(FlagSQLitePath, d.Store.SQLitePath, "SQLite database file")
	fs.Bool(FlagMigrate, d.Store.Migrate, "apply migrations on start")
	fs.String(FlagGuardPrefix, d.Guard.Prefix, "URL prefix of the active guard, e.g. /admin")
	fs.StringP(FlagJWTSecret, "s", d.Guard.JWTSecret, "HMAC secret for guard tokens")
	fs.Int(FlagPageLimit, d.Pagination.Limit, "default page size")
	fs.String(FlagScope, d.Aggregates.Scope, "aggregate scope: global or filtered")
	fs.String(FlagLocale, d.Locale.Default, "default locale")
	fs.String(FlagLogLevel, d.Log.Level, "log level")
	fs.String(FlagLogFormat, d.Log.Format, "log format: json or console")
}

// parseFlags overlays the flags that were explicitly set on fs.
func parseFlags(c *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}

	strs := map[string]*string{
		FlagAddr:        &c.HTTP.Addr,
		FlagDatabaseURL: &c.Store.DatabaseURL,
		FlagDriver:      &c.Store.Driver,
		FlagSQLitePath:  &c.Store.SQLitePath,
		FlagGuardPrefix: &c.Guard.Prefix,
		FlagJWTSecret:   &c.Guard.JWTSecret,
		FlagScope:       &c.Aggregates.Scope,
		FlagLocale:      &c.Locale.Default,
		FlagLogLevel:    &c.Log.Level,
		FlagLogFormat:   &c.Log.Format,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if fs.Lookup(FlagPageLimit) != nil && fs.Changed(FlagPageLimit) {
		v, err := fs.GetInt(FlagPageLimit)
		if err != nil {
			return err
		}
		c.Pagination.Limit = v
	}
	if fs.Lookup(FlagMigrate) != nil && fs.Changed(FlagMigrate) {
		v, err := fs.GetBool(FlagMigrate)
		if err != nil {
			return err
		}
		c.Store.Migrate = v
	}
	return nil
}
