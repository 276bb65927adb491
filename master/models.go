package master

import (
	"math"
	"time"
)

const (
	StatusShow = "show"
	StatusHide = "hide"

	// DefaultGroup is the catch-all group used when a list request names none.
	DefaultGroup = "masters"
)

// Record mirrors the masters table.
type Record struct {
	ID          int64
	ParentID    *int64
	Group       string
	Type        string
	Name        string
	Slug        string
	Code        string
	Abbr        string
	Description string
	Status      string
	Order       int
	UserID      string
	UserType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Attributes carries caller-supplied fields. A nil field is left untouched
// on update and defaulted on create.
type Attributes struct {
	ParentID    *int64  `json:"parent_id,omitempty"`
	Group       *string `json:"group,omitempty"`
	Type        *string `json:"type,omitempty"`
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Code        *string `json:"code,omitempty"`
	Abbr        *string `json:"abbr,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

// Fields returns the supplied attributes keyed by column name.
func (a Attributes) Fields() map[string]any {
	out := make(map[string]any, 10)
	if a.ParentID != nil {
		out["parent_id"] = *a.ParentID
	}
	if a.Group != nil {
		out["group"] = *a.Group
	}
	if a.Type != nil {
		out["type"] = *a.Type
	}
	if a.Name != nil {
		out["name"] = *a.Name
	}
	if a.Slug != nil {
		out["slug"] = *a.Slug
	}
	if a.Code != nil {
		out["code"] = *a.Code
	}
	if a.Abbr != nil {
		out["abbr"] = *a.Abbr
	}
	if a.Description != nil {
		out["description"] = *a.Description
	}
	if a.Status != nil {
		out["status"] = *a.Status
	}
	if a.Order != nil {
		out["order"] = *a.Order
	}
	return out
}

// Apply copies the supplied attributes onto rec.
func (a Attributes) Apply(rec *Record) {
	if a.ParentID != nil {
		id := *a.ParentID
		if id == 0 {
			rec.ParentID = nil
		} else {
			rec.ParentID = &id
		}
	}
	if a.Group != nil {
		rec.Group = *a.Group
	}
	if a.Type != nil {
		rec.Type = *a.Type
	}
	if a.Name != nil {
		rec.Name = *a.Name
	}
	if a.Slug != nil {
		rec.Slug = *a.Slug
	}
	if a.Code != nil {
		rec.Code = *a.Code
	}
	if a.Abbr != nil {
		rec.Abbr = *a.Abbr
	}
	if a.Description != nil {
		rec.Description = *a.Description
	}
	if a.Status != nil {
		rec.Status = *a.Status
	}
	if a.Order != nil {
		rec.Order = *a.Order
	}
}

// Identity is the authenticated caller stamped onto new records.
type Identity struct {
	UserID   string
	UserType string
}

// PageRequest selects one page of a simple (count-free) pagination.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the page. It saturates at math.MaxInt.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Page is one page of records. HasMore is derived from a limit+1 probe, so no
// total is available.
type Page struct {
	Records []Record
	Page    int
	Limit   int
	HasMore bool
}

// TypeCount is the number of live records per type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}
