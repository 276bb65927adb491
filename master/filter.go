package master

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Op is a comparison operator understood by every repository backend.
type Op string

const (
	OpEq   Op = "eq"
	OpLike Op = "like"
)

// columns whitelists the fields a filter may reference and maps them to
// their SQL column.
var columns = map[string]string{
	"id":         "id",
	"parent_id":  "parent_id",
	"group":      "master_group",
	"type":       "type",
	"name":       "name",
	"slug":       "slug",
	"code":       "code",
	"abbr":       "abbr",
	"status":     "status",
	"order":      "sort_order",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// searchable are the fields accepted in search[field]=value.
var searchable = map[string]Op{
	"name":      OpLike,
	"code":      OpLike,
	"abbr":      OpLike,
	"slug":      OpEq,
	"status":    OpEq,
	"type":      OpEq,
	"group":     OpEq,
	"parent_id": OpEq,
}

// Condition matches when any of Fields satisfies Op against Value.
type Condition struct {
	Fields []string
	Op     Op
	Value  any
}

// Criteria is a backend-neutral list query built by a chain of filters.
type Criteria struct {
	Conditions []Condition
	SortField  string
	SortDesc   bool
}

// Where adds a condition on a whitelisted field. Unknown fields are ignored.
func (c *Criteria) Where(field string, op Op, value any) {
	if _, ok := columns[field]; !ok {
		return
	}
	c.Conditions = append(c.Conditions, Condition{Fields: []string{field}, Op: op, Value: value})
}

// WhereAny adds a disjunction over fields.
func (c *Criteria) WhereAny(fields []string, op Op, value any) {
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := columns[f]; ok {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return
	}
	c.Conditions = append(c.Conditions, Condition{Fields: kept, Op: op, Value: value})
}

// OrderBy sets the sort column. Unknown fields are ignored.
func (c *Criteria) OrderBy(field string, desc bool) {
	if _, ok := columns[field]; !ok {
		return
	}
	c.SortField = field
	c.SortDesc = desc
}

// Scope returns only the group/type conditions, used when aggregates follow
// the list scope.
func (c Criteria) Scope() Criteria {
	out := Criteria{}
	for _, cond := range c.Conditions {
		if len(cond.Fields) == 1 && (cond.Fields[0] == "group" || cond.Fields[0] == "type") {
			out.Conditions = append(out.Conditions, cond)
		}
	}
	return out
}

// Filter contributes conditions to a Criteria.
type Filter interface {
	Apply(c *Criteria)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(c *Criteria)

func (f FilterFunc) Apply(c *Criteria) { f(c) }

// BuildCriteria applies filters in order.
func BuildCriteria(filters ...Filter) Criteria {
	var c Criteria
	for _, f := range filters {
		if f != nil {
			f.Apply(&c)
		}
	}
	return c
}

// RequestFilter derives conditions from query parameters:
// search[field]=value, q (name or code), status, parent_id, sort, order.
type RequestFilter struct {
	Values url.Values
}

func (f RequestFilter) Apply(c *Criteria) {
	for key, vals := range f.Values {
		if !strings.HasPrefix(key, "search[") || !strings.HasSuffix(key, "]") || len(vals) == 0 {
			continue
		}
		field := strings.TrimSuffix(strings.TrimPrefix(key, "search["), "]")
		op, ok := searchable[field]
		value := strings.TrimSpace(vals[0])
		if !ok || value == "" {
			continue
		}
		applyTyped(c, field, op, value)
	}

	if q := strings.TrimSpace(f.Values.Get("q")); q != "" {
		c.WhereAny([]string{"name", "code"}, OpLike, q)
	}
	if status := strings.TrimSpace(f.Values.Get("status")); status != "" {
		c.Where("status", OpEq, status)
	}
	if parent := strings.TrimSpace(f.Values.Get("parent_id")); parent != "" {
		applyTyped(c, "parent_id", OpEq, parent)
	}
	if sortField := f.Values.Get("sort"); sortField != "" {
		c.OrderBy(sortField, strings.EqualFold(f.Values.Get("order"), "desc"))
	}
}

func applyTyped(c *Criteria, field string, op Op, value string) {
	if field == "parent_id" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return
		}
		c.Where(field, OpEq, id)
		return
	}
	c.Where(field, op, value)
}

// ResourceFilter scopes a list to a group and type. The DefaultGroup spans
// every group.
type ResourceFilter struct {
	Group string
	Type  string
}

func (f ResourceFilter) Apply(c *Criteria) {
	if f.Group != "" && f.Group != DefaultGroup {
		c.Where("group", OpEq, f.Group)
	}
	if f.Type != "" {
		c.Where("type", OpEq, f.Type)
	}
}

// likeEscaper makes LIKE patterns match \, % and _ literally, the way
// Match does in memory.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// sqlWhere renders the criteria as a WHERE clause over live rows. ph returns
// the placeholder for the n-th (1-based) argument.
func (c Criteria) sqlWhere(ph func(n int) string) (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}
	for _, cond := range c.Conditions {
		parts := make([]string, 0, len(cond.Fields))
		for _, field := range cond.Fields {
			col := columns[field]
			switch cond.Op {
			case OpLike:
				args = append(args, "%"+likeEscaper.Replace(strings.ToLower(fmt.Sprint(cond.Value)))+"%")
				parts = append(parts, fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, ph(len(args))))
			default:
				args = append(args, cond.Value)
				parts = append(parts, fmt.Sprintf("%s = %s", col, ph(len(args))))
			}
		}
		if len(parts) == 1 {
			clauses = append(clauses, parts[0])
		} else {
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (c Criteria) sqlOrder() string {
	field := c.SortField
	if field == "" {
		return " ORDER BY id DESC"
	}
	dir := "ASC"
	if c.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id DESC", columns[field], dir)
}

// Match evaluates the criteria against a record in memory.
func (c Criteria) Match(rec Record) bool {
	if rec.DeletedAt != nil {
		return false
	}
	for _, cond := range c.Conditions {
		hit := false
		for _, field := range cond.Fields {
			if matchField(rec, field, cond.Op, cond.Value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func matchField(rec Record, field string, op Op, value any) bool {
	got := fieldValue(rec, field)
	switch op {
	case OpLike:
		return strings.Contains(strings.ToLower(fmt.Sprint(got)), strings.ToLower(fmt.Sprint(value)))
	default:
		return fmt.Sprint(got) == fmt.Sprint(value)
	}
}

func fieldValue(rec Record, field string) any {
	switch field {
	case "id":
		return rec.ID
	case "parent_id":
		if rec.ParentID == nil {
			return int64(0)
		}
		return *rec.ParentID
	case "group":
		return rec.Group
	case "type":
		return rec.Type
	case "name":
		return rec.Name
	case "slug":
		return rec.Slug
	case "code":
		return rec.Code
	case "abbr":
		return rec.Abbr
	case "status":
		return rec.Status
	case "order":
		return rec.Order
	case "created_at":
		return rec.CreatedAt
	case "updated_at":
		return rec.UpdatedAt
	}
	return nil
}

// sortRecords orders records in memory the way sqlOrder does in SQL.
func (c Criteria) sortRecords(recs []Record) {
	less := func(a, b Record) bool { return a.ID > b.ID }
	if c.SortField != "" {
		field, desc := c.SortField, c.SortDesc
		less = func(a, b Record) bool {
			cmp := compareValues(fieldValue(a, field), fieldValue(b, field))
			if cmp == 0 {
				return a.ID > b.ID
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j]) })
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}
