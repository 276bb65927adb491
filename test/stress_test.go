package test

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"masterdata/config"
	"masterdata/master"
	"masterdata/test/actors"
	"masterdata/test/chaos"
	"masterdata/test/infra"
	"masterdata/test/oracles"
	"masterdata/validate"
)

var (
	flDuration    = flag.Duration("duration", 30*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 4, "number of actors per role")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flChaos       = flag.Bool("chaos", true, "terminate random backends while running")
)

func newHarness(t *testing.T, ctx context.Context) *infra.Harness {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	h, err := infra.NewHarness(ctx, *flDSN)
	if errors.Is(err, infra.ErrNoDatabase) {
		t.Skipf("no postgres available: %v", err)
	}
	if err != nil {
		t.Fatalf("start harness: %v", err)
	}
	t.Cleanup(func() {
		if err := h.Close(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	})
	return h
}

func newService(t *testing.T, pool *pgxpool.Pool) *master.Service {
	t.Helper()
	var cfg config.Config
	cfg.LoadDefaults()
	v, err := validate.New(cfg.Master.Rules, cfg.Master.Required)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return master.NewService(master.NewPGRepository(pool), v, master.Options{
		Groups:   cfg.Master.Groups,
		Required: cfg.Master.Required,
	})
}

func TestMasterConcurrency(t *testing.T) {
	seed := *flSeed
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	h := newHarness(t, ctx)
	pool := h.Pool()
	env := &actors.Env{Service: newService(t, pool)}

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	roles := []func(context.Context, int, *rand.Rand, <-chan struct{}) error{
		env.Creator,
		env.Renamer,
		env.Deleter,
		env.Reader,
	}
	for i := 0; i < *flConcurrency; i++ {
		for r, role := range roles {
			rng := rand.New(rand.NewSource(seed + int64(i*len(roles)+r)))
			g.Go(func() error { return role(ctx2, i, rng, stop) })
		}
	}
	if *flChaos {
		rng := rand.New(rand.NewSource(seed - 1))
		g.Go(func() error {
			chaos.TerminateRandomBackend(ctx2, pool, rng, stop)
			return nil
		})
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx2.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if actors.Transient(err) {
					continue
				}
				failed = true
				t.Errorf("oracle error: %v", err)
				break loop
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Errorf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
				break loop
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v (seed=%d)", err, seed)
		}
	}
	if failed {
		return
	}

	name, row, err := oracles.Run(context.Background(), pool)
	if err != nil {
		t.Fatalf("final oracle run: %v", err)
	}
	if name != "" {
		t.Fatalf("Oracle %s failed after run. First row: %s (seed=%d)", name, row, seed)
	}
	t.Logf("max id %d, expected rejections %d (seed=%d)", env.MaxID.Load(), env.Expected.Load(), seed)
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	rows, err := pool.Query(ctx, `SELECT id, master_group, type, name, slug, deleted_at FROM masters ORDER BY updated_at DESC LIMIT 50`)
	if err != nil {
		t.Logf("dump masters error: %v", err)
		return
	}
	defer rows.Close()

	cols := rows.FieldDescriptions()
	t.Logf("-- masters --")
	for rows.Next() {
		vals, _ := rows.Values()
		buf := make([]any, 0, len(vals))
		for i := range vals {
			buf = append(buf, string(cols[i].Name)+"="+formatValue(vals[i]))
		}
		t.Logf("%s", buf)
	}
}
