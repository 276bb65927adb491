package master

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestRequestFilter_Apply(t *testing.T) {
	values := url.Values{
		"search[name]":    {"ker"},
		"search[status]":  {"show"},
		"search[unknown]": {"x"},
		"search[code]":    {"   "},
		"q":               {"KL"},
		"parent_id":       {"12"},
		"sort":            {"name"},
		"order":           {"DESC"},
	}

	c := BuildCriteria(RequestFilter{Values: values})

	if c.SortField != "name" || !c.SortDesc {
		t.Fatalf("expected sort name desc, got %q desc=%v", c.SortField, c.SortDesc)
	}

	got := map[string]Condition{}
	for _, cond := range c.Conditions {
		got[strings.Join(cond.Fields, "|")] = cond
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 conditions, got %+v", c.Conditions)
	}
	if cond := got["name"]; cond.Op != OpLike || cond.Value != "ker" {
		t.Fatalf("unexpected name condition: %+v", cond)
	}
	if cond := got["status"]; cond.Op != OpEq || cond.Value != "show" {
		t.Fatalf("unexpected status condition: %+v", cond)
	}
	if cond := got["name|code"]; cond.Op != OpLike || cond.Value != "KL" {
		t.Fatalf("unexpected q condition: %+v", cond)
	}
	if cond := got["parent_id"]; cond.Value != int64(12) {
		t.Fatalf("expected parsed parent id, got %+v", cond)
	}
}

func TestRequestFilter_IgnoresBadInput(t *testing.T) {
	c := BuildCriteria(RequestFilter{Values: url.Values{
		"parent_id": {"abc"},
		"sort":      {"password"},
	}})
	if len(c.Conditions) != 0 || c.SortField != "" {
		t.Fatalf("expected empty criteria, got %+v", c)
	}
}

func TestResourceFilter_DefaultGroupSpansAll(t *testing.T) {
	c := BuildCriteria(ResourceFilter{Group: DefaultGroup, Type: "country"})
	if len(c.Conditions) != 1 || c.Conditions[0].Fields[0] != "type" {
		t.Fatalf("expected only a type condition, got %+v", c.Conditions)
	}

	c = BuildCriteria(ResourceFilter{Group: "settings"})
	if len(c.Conditions) != 1 || c.Conditions[0].Fields[0] != "group" || c.Conditions[0].Value != "settings" {
		t.Fatalf("expected a group condition, got %+v", c.Conditions)
	}
}

func TestCriteria_Scope(t *testing.T) {
	c := BuildCriteria(
		RequestFilter{Values: url.Values{"q": {"x"}, "sort": {"name"}}},
		ResourceFilter{Group: "settings", Type: "department"},
	)
	scoped := c.Scope()
	if len(scoped.Conditions) != 2 || scoped.SortField != "" {
		t.Fatalf("expected group and type only, got %+v", scoped)
	}
}

func TestCriteria_SQL(t *testing.T) {
	c := BuildCriteria(
		RequestFilter{Values: url.Values{"q": {"Ker"}, "sort": {"order"}}},
		ResourceFilter{Group: "settings"},
	)

	where, args := c.sqlWhere(pgPlaceholder)
	wantWhere := ` WHERE deleted_at IS NULL AND (LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(code) LIKE $2 ESCAPE '\') AND master_group = $3`
	if where != wantWhere {
		t.Fatalf("where mismatch:\n got %q\nwant %q", where, wantWhere)
	}
	if len(args) != 3 || args[0] != "%ker%" || args[1] != "%ker%" || args[2] != "settings" {
		t.Fatalf("unexpected args: %v", args)
	}
	if order := c.sqlOrder(); order != " ORDER BY sort_order ASC, id DESC" {
		t.Fatalf("unexpected order: %q", order)
	}
	if order := (Criteria{}).sqlOrder(); order != " ORDER BY id DESC" {
		t.Fatalf("unexpected default order: %q", order)
	}
}

func TestCriteria_SQLEscapesWildcards(t *testing.T) {
	var c Criteria
	c.Where("name", OpLike, `50%_a\b`)

	_, args := c.sqlWhere(sqlitePlaceholder)
	if len(args) != 1 || args[0] != `%50\%\_a\\b%` {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCriteria_MatchAndSort(t *testing.T) {
	now := time.Now()
	parent := int64(1)
	recs := []Record{
		{ID: 1, Name: "Beta", Type: "city", Status: StatusShow},
		{ID: 2, Name: "alpha", Type: "city", Status: StatusShow, ParentID: &parent},
		{ID: 3, Name: "Gamma", Type: "state", Status: StatusShow},
		{ID: 4, Name: "Alphabet", Type: "city", Status: StatusShow, DeletedAt: &now},
	}

	var c Criteria
	c.Where("type", OpEq, "city")
	c.Where("name", OpLike, "ALP")
	var hits []Record
	for _, rec := range recs {
		if c.Match(rec) {
			hits = append(hits, rec)
		}
	}
	if len(hits) != 1 || hits[0].ID != 2 {
		t.Fatalf("expected only record 2, got %+v", hits)
	}

	var p Criteria
	p.Where("parent_id", OpEq, int64(1))
	if !p.Match(recs[1]) || p.Match(recs[0]) {
		t.Fatal("parent_id match failed")
	}

	var s Criteria
	s.OrderBy("name", false)
	sorted := append([]Record(nil), recs[:3]...)
	s.sortRecords(sorted)
	if sorted[0].Name != "Beta" || sorted[1].Name != "Gamma" || sorted[2].Name != "alpha" {
		t.Fatalf("expected byte-wise name order, got %s,%s,%s", sorted[0].Name, sorted[1].Name, sorted[2].Name)
	}
}

func TestUpdateAssignments_ClearsParent(t *testing.T) {
	zero := int64(0)
	name := "X"
	set, args := updateAssignments(Attributes{ParentID: &zero, Name: &name}, pgPlaceholder)
	if strings.Join(set, ", ") != "name = $1, parent_id = $2" {
		t.Fatalf("unexpected set list: %v", set)
	}
	if args[0] != "X" || args[1] != nil {
		t.Fatalf("unexpected args: %v", args)
	}
}
