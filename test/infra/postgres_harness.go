package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DSNEnv names the variable that points the integration tests at an existing
// database instead of a container.
const DSNEnv = "MASTER_TEST_PG_DSN"

const (
	pgImage       = "postgres:16-alpine"
	pgCredential  = "masterdata"
	pgStartupWait = 90 * time.Second
)

// ErrNoDatabase is returned when neither a DSN, Docker nor a local server is
// available.
var ErrNoDatabase = errors.New("infra: no postgres available")

// Harness owns the lifecycle of the Postgres database and pgx pool used by
// the integration tests.
type Harness struct {
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	dsn       string
	teardown  func(context.Context) error
}

// NewHarness resolves a database in order: overrideDSN or MASTER_TEST_PG_DSN,
// a Docker container, a local server. Shared databases get an isolated schema.
func NewHarness(ctx context.Context, overrideDSN string) (*Harness, error) {
	var (
		container *postgres.PostgresContainer
		dsn       string
		err       error
	)
	shared := true
	switch {
	case overrideDSN != "":
		dsn = overrideDSN
	case lookupDSN() != "":
		dsn = lookupDSN()
	case DockerAvailable(ctx):
		container, dsn, err = startContainer(ctx)
		if err != nil {
			return nil, fmt.Errorf("start postgres container: %w", err)
		}
		shared = false
	default:
		dsn, err = InitLocalDatabase(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDatabase, err)
		}
		shared = false
	}

	pool, teardown, err := ApplyMigrations(ctx, dsn, shared)
	if err != nil {
		_ = terminate(ctx, container)
		return nil, err
	}

	return &Harness{
		container: container,
		pool:      pool,
		dsn:       dsn,
		teardown:  teardown,
	}, nil
}

func lookupDSN() string {
	return os.Getenv(DSNEnv)
}

// startContainer runs a throwaway masterdata database. Postgres logs the
// ready line twice, once for the init-script server and once for the real
// one, so the wait skips the first.
func startContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	c, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase(pgCredential),
		postgres.WithUsername(pgCredential),
		postgres.WithPassword(pgCredential),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(pgStartupWait),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		return nil, "", err
	}
	dsn, err := c.ConnectionString(ctx, "sslmode=disable", "application_name=masterdata-test")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", err
	}
	return c, dsn, nil
}

func terminate(ctx context.Context, c *postgres.PostgresContainer) error {
	if c == nil {
		return nil
	}
	return c.Terminate(ctx)
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// DSN returns the connection string for direct connections (e.g., chaos).
func (h *Harness) DSN() string {
	return h.dsn
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) error {
	if h.pool != nil {
		h.pool.Close()
	}
	var errs []error
	if h.teardown != nil {
		errs = append(errs, h.teardown(ctx))
	}
	errs = append(errs, terminate(ctx, h.container))
	return errors.Join(errs...)
}

// Reset truncates the mutable tables and restarts the id sequences.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "TRUNCATE TABLE masters, users RESTART IDENTITY"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// DockerAvailable reports whether a Docker daemon answers.
func DockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}
