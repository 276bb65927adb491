package master

import (
	"slices"
	"sort"
)

// FormField describes one input of the create/edit form. Label is a
// translation key.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Form is the descriptor handed to create, edit, show and list views.
type Form struct {
	Fields []FormField         `json:"fields"`
	List   []string            `json:"list"`
	Groups map[string][]string `json:"groups"`
}

// NewForm builds the form from the configured group catalog and required fields.
func NewForm(groups map[string][]string, required []string) Form {
	names := make([]string, 0, len(groups))
	var types []string
	for g, ts := range groups {
		names = append(names, g)
		for _, t := range ts {
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		}
	}
	sort.Strings(names)
	sort.Strings(types)

	field := func(name, typ string, options ...string) FormField {
		return FormField{
			Name:     name,
			Label:    "master.label." + name,
			Type:     typ,
			Required: slices.Contains(required, name),
			Options:  options,
		}
	}

	catalog := make(map[string][]string, len(groups))
	for g, ts := range groups {
		catalog[g] = slices.Clone(ts)
	}

	return Form{
		Fields: []FormField{
			field("name", "text"),
			field("code", "text"),
			field("abbr", "text"),
			field("group", "select", names...),
			field("type", "select", types...),
			field("parent_id", "select"),
			field("description", "textarea"),
			field("status", "radio", StatusShow, StatusHide),
			field("order", "numeric"),
		},
		List:   []string{"name", "code", "type", "status", "created_at"},
		Groups: catalog,
	}
}

// Module is one entry of the resource menu. Name is a translation key.
type Module struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// NewModules builds the menu for keys, marking active as selected.
func NewModules(keys []string, active string, paths Paths) []Module {
	out := make([]Module, 0, len(keys))
	for _, key := range keys {
		out = append(out, Module{
			Key:    key,
			Name:   key + ".names",
			URL:    paths.Module(key),
			Active: key == active,
		})
	}
	return out
}
