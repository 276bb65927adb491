package master

import (
	"strconv"
	"strings"
)

// Paths builds guard-prefixed URLs for the resource.
type Paths struct {
	Prefix string
}

// Guard prefixes path with the active guard, e.g. "/admin/master/master".
func (p Paths) Guard(path string) string {
	prefix := "/" + strings.Trim(p.Prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return prefix + "/" + strings.TrimLeft(path, "/")
}

// List is the collection path.
func (p Paths) List() string {
	return p.Guard("master/master")
}

// Entity is the path of one record.
func (p Paths) Entity(id int64) string {
	return p.Guard("master/master/" + strconv.FormatInt(id, 10))
}

// Module is the landing path of a menu module.
func (p Paths) Module(key string) string {
	return p.Guard("master/" + key)
}
