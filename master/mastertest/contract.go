// Package mastertest holds the behaviour every master.Repository backend must
// share. Backend tests call Run with a constructor for an empty repository.
package mastertest

import (
	"context"
	"errors"
	"math"
	"testing"

	"masterdata/master"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) master.Repository

// Run executes the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newRepo(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newRepo(t)) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdatePartial(t, newRepo(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newRepo(t)) })
	t.Run("SlugConflict", func(t *testing.T) { testSlugConflict(t, newRepo(t)) })
	t.Run("DeleteHidesRecord", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("Paginate", func(t *testing.T) { testPaginate(t, newRepo(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newRepo(t)) })
	t.Run("LikeIsLiteral", func(t *testing.T) { testLikeIsLiteral(t, newRepo(t)) })
	t.Run("Aggregates", func(t *testing.T) { testAggregates(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newRepo(t).Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}

// Seed is a shorthand for a live record in group/type.
func Seed(group, typ, name, slug string) master.Record {
	return master.Record{
		Group:    group,
		Type:     typ,
		Name:     name,
		Slug:     slug,
		Status:   master.StatusShow,
		UserID:   "user-1",
		UserType: "user",
	}
}

func mustCreate(t *testing.T, repo master.Repository, rec master.Record) master.Record {
	t.Helper()
	out, err := repo.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("create %q: %v", rec.Name, err)
	}
	return out
}

func testCreateAndFind(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	parent := mustCreate(t, repo, Seed("masters", "country", "India", "india"))

	rec := Seed("masters", "state", "Kerala", "kerala")
	rec.ParentID = &parent.ID
	rec.Code = "KL"
	rec.Abbr = "KER"
	rec.Description = "south"
	rec.Order = 3
	created := mustCreate(t, repo, rec)

	if created.ID <= 0 || created.ID == parent.ID {
		t.Fatalf("expected a fresh positive id, got %d (parent %d)", created.ID, parent.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set, got %+v", created)
	}

	got, err := repo.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Kerala" || got.Code != "KL" || got.Abbr != "KER" || got.Description != "south" || got.Order != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.ParentID == nil || *got.ParentID != parent.ID {
		t.Fatalf("expected parent %d, got %v", parent.ID, got.ParentID)
	}
	if got.UserID != "user-1" || got.UserType != "user" {
		t.Fatalf("expected identity to be persisted, got %q/%q", got.UserID, got.UserType)
	}
	if got.DeletedAt != nil {
		t.Fatalf("expected live record, got deleted_at %v", got.DeletedAt)
	}
}

func testFindMissing(t *testing.T, repo master.Repository) {
	_, err := repo.Find(context.Background(), 424242)
	if !errors.Is(err, master.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpdatePartial(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	parent := mustCreate(t, repo, Seed("masters", "country", "India", "india"))
	rec := Seed("masters", "state", "Kerala", "kerala")
	rec.Code = "KL"
	rec.ParentID = &parent.ID
	created := mustCreate(t, repo, rec)

	name := "Keralam"
	updated, err := repo.Update(ctx, created.ID, master.Attributes{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Code != "KL" || updated.Slug != "kerala" {
		t.Fatalf("expected only name to change, got %+v", updated)
	}

	zero := int64(0)
	cleared, err := repo.Update(ctx, created.ID, master.Attributes{ParentID: &zero})
	if err != nil {
		t.Fatalf("clear parent: %v", err)
	}
	if cleared.ParentID != nil {
		t.Fatalf("expected parent to be cleared, got %v", *cleared.ParentID)
	}

	got, err := repo.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != name || got.ParentID != nil {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func testUpdateMissing(t *testing.T, repo master.Repository) {
	name := "ghost"
	_, err := repo.Update(context.Background(), 424242, master.Attributes{Name: &name})
	if !errors.Is(err, master.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testSlugConflict(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	first := mustCreate(t, repo, Seed("masters", "country", "India", "india"))

	_, err := repo.Create(ctx, Seed("masters", "country", "India again", "india"))
	if !errors.Is(err, master.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate slug, got %v", err)
	}

	// same slug under another type is fine
	mustCreate(t, repo, Seed("masters", "language", "India", "india"))

	other := mustCreate(t, repo, Seed("masters", "country", "Nepal", "nepal"))
	slug := "india"
	if _, err := repo.Update(ctx, other.ID, master.Attributes{Slug: &slug}); !errors.Is(err, master.ErrConflict) {
		t.Fatalf("expected ErrConflict on update to a taken slug, got %v", err)
	}

	if _, err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mustCreate(t, repo, Seed("masters", "country", "India", "india"))
}

func testDelete(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	created := mustCreate(t, repo, Seed("masters", "city", "Kochi", "kochi"))

	deleted, err := repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != created.ID || deleted.Name != "Kochi" {
		t.Fatalf("expected deleted record to be returned, got %+v", deleted)
	}

	if _, err := repo.Find(ctx, created.ID); !errors.Is(err, master.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := repo.Delete(ctx, created.ID); !errors.Is(err, master.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	name := "Cochin"
	if _, err := repo.Update(ctx, created.ID, master.Attributes{Name: &name}); !errors.Is(err, master.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating a deleted record, got %v", err)
	}

	page, err := repo.Paginate(ctx, master.Criteria{}, master.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(page.Records) != 0 {
		t.Fatalf("expected deleted record to be hidden, got %+v", page.Records)
	}
}

func testPaginate(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		ids = append(ids, mustCreate(t, repo, Seed("masters", "city", name, "")).ID)
	}

	first, err := repo.Paginate(ctx, master.Criteria{}, master.PageRequest{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("paginate page 1: %v", err)
	}
	if len(first.Records) != 2 || !first.HasMore {
		t.Fatalf("expected 2 records and more, got %d (has_more=%v)", len(first.Records), first.HasMore)
	}
	if first.Records[0].ID != ids[2] || first.Records[1].ID != ids[1] {
		t.Fatalf("expected newest first, got ids %d,%d", first.Records[0].ID, first.Records[1].ID)
	}

	second, err := repo.Paginate(ctx, master.Criteria{}, master.PageRequest{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("paginate page 2: %v", err)
	}
	if len(second.Records) != 1 || second.HasMore {
		t.Fatalf("expected last record only, got %d (has_more=%v)", len(second.Records), second.HasMore)
	}
	if second.Records[0].ID != ids[0] {
		t.Fatalf("expected oldest record on page 2, got %d", second.Records[0].ID)
	}

	beyond, err := repo.Paginate(ctx, master.Criteria{}, master.PageRequest{Page: 5, Limit: 2})
	if err != nil {
		t.Fatalf("paginate beyond: %v", err)
	}
	if len(beyond.Records) != 0 || beyond.HasMore {
		t.Fatalf("expected an empty page, got %+v", beyond)
	}

	huge, err := repo.Paginate(ctx, master.Criteria{}, master.PageRequest{Page: math.MaxInt, Limit: 2})
	if err != nil {
		t.Fatalf("paginate huge page: %v", err)
	}
	if len(huge.Records) != 0 || huge.HasMore {
		t.Fatalf("expected an empty page for a huge page number, got %+v", huge)
	}

	var byName master.Criteria
	byName.OrderBy("name", false)
	sorted, err := repo.Paginate(ctx, byName, master.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("paginate sorted: %v", err)
	}
	if len(sorted.Records) != 3 || sorted.Records[0].Name != "A" || sorted.Records[2].Name != "C" {
		t.Fatalf("expected ascending names, got %+v", sorted.Records)
	}
}

func testFilters(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	mustCreate(t, repo, Seed("masters", "country", "India", "india"))
	mustCreate(t, repo, Seed("masters", "country", "Indonesia", "indonesia"))
	mustCreate(t, repo, Seed("settings", "department", "Finance", "finance"))
	hidden := Seed("masters", "country", "Atlantis", "atlantis")
	hidden.Status = master.StatusHide
	mustCreate(t, repo, hidden)

	cases := []struct {
		name  string
		build func(c *master.Criteria)
		want  int
	}{
		{"all", func(*master.Criteria) {}, 4},
		{"group", func(c *master.Criteria) { c.Where("group", master.OpEq, "settings") }, 1},
		{"type", func(c *master.Criteria) { c.Where("type", master.OpEq, "country") }, 3},
		{"like is case-insensitive", func(c *master.Criteria) { c.Where("name", master.OpLike, "indo") }, 1},
		{"any of name or code", func(c *master.Criteria) { c.WhereAny([]string{"name", "code"}, master.OpLike, "ind") }, 2},
		{"status", func(c *master.Criteria) { c.Where("status", master.OpEq, master.StatusHide) }, 1},
		{"combined", func(c *master.Criteria) {
			c.Where("type", master.OpEq, "country")
			c.Where("status", master.OpEq, master.StatusShow)
		}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c master.Criteria
			tc.build(&c)
			page, err := repo.Paginate(ctx, c, master.PageRequest{Page: 1, Limit: 10})
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			if len(page.Records) != tc.want {
				t.Fatalf("expected %d records, got %d", tc.want, len(page.Records))
			}
		})
	}
}

func testLikeIsLiteral(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	mustCreate(t, repo, Seed("masters", "tag", "abc", "abc"))
	mustCreate(t, repo, Seed("masters", "tag", "snake_case", "snake-case"))
	mustCreate(t, repo, Seed("masters", "tag", "50% off", "50-off"))
	mustCreate(t, repo, Seed("masters", "tag", `back\slash`, "back-slash"))

	cases := []struct {
		term string
		want int
	}{
		{"_", 1},
		{"%", 1},
		{`\`, 1},
		{"e_c", 1},
		{"a_c", 0},
		{"b", 2},
	}
	for _, tc := range cases {
		t.Run(tc.term, func(t *testing.T) {
			var c master.Criteria
			c.WhereAny([]string{"name", "code"}, master.OpLike, tc.term)
			page, err := repo.Paginate(ctx, c, master.PageRequest{Page: 1, Limit: 10})
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			if len(page.Records) != tc.want {
				t.Fatalf("search %q: expected %d records, got %d", tc.term, tc.want, len(page.Records))
			}
		})
	}
}

func testAggregates(t *testing.T, repo master.Repository) {
	ctx := context.Background()
	mustCreate(t, repo, Seed("masters", "country", "India", "india"))
	mustCreate(t, repo, Seed("masters", "country", "Nepal", "nepal"))
	mustCreate(t, repo, Seed("masters", "city", "Kochi", "kochi"))
	gone := mustCreate(t, repo, Seed("settings", "department", "Finance", "finance"))
	if _, err := repo.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	counts, err := repo.TypeCount(ctx, master.Criteria{})
	if err != nil {
		t.Fatalf("type count: %v", err)
	}
	want := []master.TypeCount{{Type: "city", Count: 1}, {Type: "country", Count: 2}}
	if len(counts) != len(want) {
		t.Fatalf("expected %v, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, counts)
		}
	}

	groups, err := repo.Groups(ctx, master.Criteria{})
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 || groups[0] != "masters" {
		t.Fatalf("expected only the live group, got %v", groups)
	}

	var scoped master.Criteria
	scoped.Where("type", master.OpEq, "city")
	counts, err = repo.TypeCount(ctx, scoped)
	if err != nil {
		t.Fatalf("scoped type count: %v", err)
	}
	if len(counts) != 1 || counts[0].Type != "city" {
		t.Fatalf("expected city only, got %v", counts)
	}
}
