package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrNoURL is returned by Redirect when no target was set.
var ErrNoURL = errors.New("response: redirect without url")

// Renderer writes a view page.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, page Page) error
}

// JSONRenderer renders the view page as JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(w http.ResponseWriter, _ *http.Request, page Page) error {
	return writeJSON(w, http.StatusOK, page)
}

// Builder accumulates one response. Create it per request with New.
type Builder struct {
	w        http.ResponseWriter
	r        *http.Request
	renderer Renderer

	title string
	view  string
	env   Envelope
}

// New starts a response for r. A nil renderer renders JSON.
func New(w http.ResponseWriter, r *http.Request, renderer Renderer) *Builder {
	if renderer == nil {
		renderer = JSONRenderer{}
	}
	return &Builder{w: w, r: r, renderer: renderer}
}

// SetMetaTitle sets the page title.
func (b *Builder) SetMetaTitle(title string) *Builder {
	b.title = title
	return b
}

// View names the view Output renders.
func (b *Builder) View(name string) *Builder {
	b.view = name
	return b
}

// Data sets the payload of both the view and the envelope.
func (b *Builder) Data(data any) *Builder {
	b.env.Data = data
	return b
}

// Message sets the envelope message.
func (b *Builder) Message(msg string) *Builder {
	b.env.Message = msg
	return b
}

// Code sets the HTTP status of the envelope.
func (b *Builder) Code(code int) *Builder {
	b.env.Code = code
	return b
}

// Status sets the envelope status, "success" or "error".
func (b *Builder) Status(status string) *Builder {
	b.env.Status = status
	return b
}

// URL sets the redirect target.
func (b *Builder) URL(url string) *Builder {
	b.env.URL = url
	return b
}

// Kind sets the error kind reported to clients.
func (b *Builder) Kind(kind string) *Builder {
	b.env.Kind = kind
	return b
}

// Envelope returns what Redirect would send.
func (b *Builder) Envelope() Envelope {
	return b.env
}

// Output renders the view with the accumulated data and any pending flash.
func (b *Builder) Output() error {
	page := Page{View: b.view, Meta: Meta{Title: b.title}, Data: b.env.Data}
	if flash, ok := ReadFlash(b.r); ok {
		page.Flash = &flash
		clearFlash(b.w)
	}
	return b.renderer.Render(b.w, b.r, page)
}

// Redirect answers JSON clients with the envelope and browsers with a 303 to
// the envelope URL, keeping the envelope in a flash cookie.
func (b *Builder) Redirect() error {
	if b.env.URL == "" {
		return ErrNoURL
	}
	if WantsJSON(b.r) {
		return writeJSON(b.w, HTTPStatus(b.env.Code), b.env)
	}
	if err := setFlash(b.w, b.env); err != nil {
		return err
	}
	http.Redirect(b.w, b.r, b.env.URL, http.StatusSeeOther)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
