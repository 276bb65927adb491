package master

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in a map. It backs tests and the "memory"
// store driver.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[int64]Record
	nextID  int64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[int64]Record),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Paginate(_ context.Context, c Criteria, page PageRequest) (Page, error) {
	r.mu.RLock()
	matched := r.matching(c)
	r.mu.RUnlock()

	c.sortRecords(matched)

	out := Page{Page: max(page.Page, 1), Limit: page.Limit, Records: []Record{}}
	start := page.Offset()
	if start < 0 || start >= len(matched) {
		return out, nil
	}
	end := start + page.Limit
	if end >= len(matched) || end < start {
		end = len(matched)
	} else {
		out.HasMore = true
	}
	out.Records = append(out.Records, matched[start:end]...)
	return out, nil
}

func (r *MemoryRepository) TypeCount(_ context.Context, c Criteria) ([]TypeCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range r.matching(c) {
		counts[rec.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *MemoryRepository) Groups(_ context.Context, c Criteria) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, rec := range r.matching(c) {
		if _, ok := seen[rec.Group]; ok {
			continue
		}
		seen[rec.Group] = struct{}{}
		out = append(out, rec.Group)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) Find(_ context.Context, id int64) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.DeletedAt != nil {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) Create(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(rec, 0) {
		return Record{}, fmt.Errorf("%w: slug %q already used in %s/%s", ErrConflict, rec.Slug, rec.Group, rec.Type)
	}

	r.nextID++
	now := r.now().UTC()
	rec.ID = r.nextID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.DeletedAt = nil
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) Update(_ context.Context, id int64, attrs Attributes) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.DeletedAt != nil {
		return Record{}, ErrNotFound
	}
	attrs.Apply(&rec)
	if r.slugTaken(rec, id) {
		return Record{}, fmt.Errorf("%w: slug %q already used in %s/%s", ErrConflict, rec.Slug, rec.Group, rec.Type)
	}
	rec.UpdatedAt = r.now().UTC()
	r.records[id] = rec
	return rec, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.DeletedAt != nil {
		return Record{}, ErrNotFound
	}
	deleted := rec
	now := r.now().UTC()
	deleted.DeletedAt = &now
	r.records[id] = deleted
	return rec, nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

// matching returns copies of the live records satisfying c. Callers hold mu.
func (r *MemoryRepository) matching(c Criteria) []Record {
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if c.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// slugTaken reports whether another live record in the same group and type
// already uses rec.Slug. Callers hold mu.
func (r *MemoryRepository) slugTaken(rec Record, self int64) bool {
	if rec.Slug == "" {
		return false
	}
	for id, other := range r.records {
		if id == self || other.DeletedAt != nil {
			continue
		}
		if other.Group == rec.Group && other.Type == rec.Type && other.Slug == rec.Slug {
			return true
		}
	}
	return false
}
