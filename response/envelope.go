// Package response builds the message/code/status/data/url envelope returned
// by resource actions, either as a rendered view or as a redirect.
package response

import (
	"net/http"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the outcome of a mutating action.
type Envelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	URL     string `json:"url"`
	Kind    string `json:"kind,omitempty"`
}

// Meta carries page metadata for views.
type Meta struct {
	Title string `json:"title"`
}

// Page is what a Renderer receives in view mode.
type Page struct {
	View  string    `json:"view"`
	Meta  Meta      `json:"meta"`
	Data  any       `json:"data"`
	Flash *Envelope `json:"flash,omitempty"`
}

// WantsJSON reports whether the client asked for a JSON answer rather than a
// browser redirect.
func WantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(mt, "application/json") || strings.HasSuffix(strings.ToLower(mt), "+json") {
			return true
		}
	}
	return false
}

// HTTPStatus maps an envelope code onto the status line of a JSON answer.
// 204 cannot carry a body, so it is sent as 200.
func HTTPStatus(code int) int {
	switch {
	case code == http.StatusNoContent:
		return http.StatusOK
	case code < 100 || code > 599:
		return http.StatusOK
	default:
		return code
	}
}
