package actors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"masterdata/master"
)

// Names is the small pool actors draw from so that slugs collide often.
var Names = []string{"India", "Nepal", "Sri Lanka", "Bhutan", "Maldives", "Côte d'Ivoire"}

// Types spread records over a few (group, type) scopes.
var Types = []string{"country", "region"}

// Env is shared by every actor of one run.
type Env struct {
	Service *master.Service
	// MaxID is the highest id handed out so far.
	MaxID atomic.Int64
	// Expected counts rejections that are part of normal operation.
	Expected atomic.Int64
}

// Transient reports errors caused by backends killed under chaos.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// admin_shutdown, crash_shutdown, cannot_connect_now
		return pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}

// expected reports whether err is a rejection the service is allowed to give.
func (e *Env) expected(err error) bool {
	switch master.Classify(err) {
	case master.KindConflict, master.KindNotFound:
		e.Expected.Add(1)
		return true
	}
	return Transient(err)
}

func loop(ctx context.Context, stop <-chan struct{}, rng *rand.Rand, step func() error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := step(); err != nil {
			return err
		}
		time.Sleep(time.Duration(5+rng.Intn(20)) * time.Millisecond)
	}
}

func (e *Env) randomID(rng *rand.Rand) int64 {
	hi := e.MaxID.Load()
	if hi == 0 {
		return 1
	}
	return 1 + rng.Int63n(hi)
}

// Creator stores records with colliding names under a per-actor identity.
func (e *Env) Creator(ctx context.Context, actor int, rng *rand.Rand, stop <-chan struct{}) error {
	who := master.Identity{UserID: fmt.Sprintf("actor-%d", actor), UserType: "admin"}
	return loop(ctx, stop, rng, func() error {
		name := Names[rng.Intn(len(Names))]
		typ := Types[rng.Intn(len(Types))]
		rec, err := e.Service.Create(ctx, who, master.Attributes{Name: &name, Type: &typ})
		if err != nil {
			if e.expected(err) {
				return nil
			}
			return fmt.Errorf("creator %d: %w", actor, err)
		}
		for {
			cur := e.MaxID.Load()
			if rec.ID <= cur || e.MaxID.CompareAndSwap(cur, rec.ID) {
				break
			}
		}
		return nil
	})
}

// Renamer moves random records onto names other records may hold.
func (e *Env) Renamer(ctx context.Context, actor int, rng *rand.Rand, stop <-chan struct{}) error {
	return loop(ctx, stop, rng, func() error {
		name := Names[rng.Intn(len(Names))]
		slug := name
		attrs := master.Attributes{Name: &name}
		if rng.Intn(2) == 0 {
			attrs.Slug = &slug
		}
		_, err := e.Service.Update(ctx, e.randomID(rng), attrs)
		if err != nil && !e.expected(err) {
			return fmt.Errorf("renamer %d: %w", actor, err)
		}
		return nil
	})
}

// Deleter soft-deletes random records, freeing their slugs.
func (e *Env) Deleter(ctx context.Context, actor int, rng *rand.Rand, stop <-chan struct{}) error {
	return loop(ctx, stop, rng, func() error {
		_, err := e.Service.Delete(ctx, e.randomID(rng))
		if err != nil && !e.expected(err) {
			return fmt.Errorf("deleter %d: %w", actor, err)
		}
		return nil
	})
}

// Reader lists random scopes and checks what a single page may contain.
func (e *Env) Reader(ctx context.Context, actor int, rng *rand.Rand, stop <-chan struct{}) error {
	return loop(ctx, stop, rng, func() error {
		typ := Types[rng.Intn(len(Types))]
		res, err := e.Service.List(ctx, master.ListRequest{
			Group:     master.DefaultGroup,
			Type:      typ,
			Page:      1,
			PageLimit: 1 + rng.Intn(5),
		})
		if err != nil {
			if Transient(err) {
				return nil
			}
			return fmt.Errorf("reader %d: %w", actor, err)
		}
		if len(res.Items) > res.Meta.PerPage {
			return fmt.Errorf("reader %d: page holds %d rows, limit %d", actor, len(res.Items), res.Meta.PerPage)
		}
		for _, item := range res.Items {
			if item.Type != typ {
				return fmt.Errorf("reader %d: row %d of type %q in %q list", actor, item.ID, item.Type, typ)
			}
		}
		return nil
	})
}
