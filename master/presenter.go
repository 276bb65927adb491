package master

import "time"

// View is the full representation of a record used by show, edit and the
// data of mutating responses.
type View struct {
	ID          int64      `json:"id"`
	ParentID    *int64     `json:"parent_id"`
	Group       string     `json:"group"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Code        string     `json:"code"`
	Abbr        string     `json:"abbr"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Order       int        `json:"order"`
	UserID      string     `json:"user_id"`
	UserType    string     `json:"user_type"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// ToView converts rec. The zero Record yields the empty form payload.
func ToView(rec Record) View {
	v := View{
		ID:          rec.ID,
		ParentID:    rec.ParentID,
		Group:       rec.Group,
		Type:        rec.Type,
		Name:        rec.Name,
		Slug:        rec.Slug,
		Code:        rec.Code,
		Abbr:        rec.Abbr,
		Description: rec.Description,
		Status:      rec.Status,
		Order:       rec.Order,
		UserID:      rec.UserID,
		UserType:    rec.UserType,
	}
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt.UTC()
		v.CreatedAt = &t
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt.UTC()
		v.UpdatedAt = &t
	}
	return v
}

// ListItem is one row of the list view.
type ListItem struct {
	ID        int64  `json:"id"`
	ParentID  *int64 `json:"parent_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Abbr      string `json:"abbr"`
	Type      string `json:"type"`
	Group     string `json:"group"`
	Status    string `json:"status"`
	Order     int    `json:"order"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// Presenter shapes records for a list view.
type Presenter interface {
	Present(recs []Record) []ListItem
}

// ListPresenter renders list rows with links to each record.
type ListPresenter struct {
	Paths Paths
}

func (p ListPresenter) Present(recs []Record) []ListItem {
	out := make([]ListItem, 0, len(recs))
	for _, rec := range recs {
		item := ListItem{
			ID:       rec.ID,
			ParentID: rec.ParentID,
			Name:     rec.Name,
			Code:     rec.Code,
			Abbr:     rec.Abbr,
			Type:     rec.Type,
			Group:    rec.Group,
			Status:   rec.Status,
			Order:    rec.Order,
			URL:      p.Paths.Entity(rec.ID),
		}
		if !rec.CreatedAt.IsZero() {
			item.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out
}
