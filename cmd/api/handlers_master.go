package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"masterdata/master"
	"masterdata/response"
)

type indexResponse struct {
	master.ListResult
	Modules []master.Module `json:"modules"`
	Form    master.Form     `json:"form"`
}

type recordResponse struct {
	Data    master.View     `json:"data"`
	Form    master.Form     `json:"form"`
	Modules []master.Module `json:"modules"`
}

// handleMasterIndex lists records of the optional {group} and {type}.
func (s *Server) handleMasterIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	group := r.PathValue("group")
	if group == "" {
		group = master.DefaultGroup
	}

	result, err := s.masterService.List(r.Context(), master.ListRequest{
		Values:    q,
		Group:     group,
		Type:      r.PathValue("type"),
		Page:      atoiDefault(q.Get("page"), 1),
		PageLimit: atoiDefault(q.Get("pageLimit"), 0),
	})
	if err != nil {
		s.log().Error(r.Context(), "list masters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list masters")
		return
	}

	s.render(w, r, response.New(w, r, s.renderer).
		SetMetaTitle(s.trans(r, "master.names")).
		View("master.index").
		Data(indexResponse{
			ListResult: result,
			Modules:    s.masterService.Modules(),
			Form:       s.masterService.Form(),
		}))
}

// handleMasterShow renders one record. A segment that is not an integer is
// a type of the catch-all group, so /master/master/{type} lists it.
func (s *Server) handleMasterShow(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	if _, err := strconv.ParseInt(raw, 10, 64); errors.Is(err, strconv.ErrSyntax) {
		r.SetPathValue("group", master.DefaultGroup)
		r.SetPathValue("type", raw)
		s.handleMasterIndex(w, r)
		return
	}
	s.renderRecord(w, r, "master.show", "app.view")
}

func (s *Server) handleMasterEdit(w http.ResponseWriter, r *http.Request) {
	s.renderRecord(w, r, "master.edit", "app.edit")
}

// handleMasterCreate renders the empty form.
func (s *Server) handleMasterCreate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, response.New(w, r, s.renderer).
		SetMetaTitle(s.title(r, "app.new")).
		View("master.create").
		Data(recordResponse{
			Data:    master.ToView(master.Record{Group: master.DefaultGroup, Status: master.StatusShow}),
			Form:    s.masterService.Form(),
			Modules: s.masterService.Modules(),
		}))
}

func (s *Server) renderRecord(w http.ResponseWriter, r *http.Request, view, titleKey string) {
	paths := s.masterService.Paths()

	id, err := parseID(r.PathValue("id"))
	if err == nil {
		var rec master.Record
		rec, err = s.masterService.Get(r.Context(), id)
		if err == nil {
			s.render(w, r, response.New(w, r, s.renderer).
				SetMetaTitle(s.title(r, titleKey)).
				View(view).
				Data(recordResponse{
					Data:    master.ToView(rec),
					Form:    s.masterService.Form(),
					Modules: s.masterService.Modules(),
				}))
			return
		}
	}

	kind := master.Classify(err)
	msg := err.Error()
	code := http.StatusBadRequest
	if kind == master.KindNotFound {
		msg = s.trans(r, "messages.error.not_found")
		code = http.StatusNotFound
	} else {
		s.log().Error(r.Context(), "load master", "id", r.PathValue("id"), "error", err)
	}
	s.redirect(w, r, response.New(w, r, s.renderer).
		Message(msg).
		Code(code).
		Status(response.StatusError).
		Kind(string(kind)).
		URL(paths.List()))
}

// handleMasterStore creates one record owned by the caller.
func (s *Server) handleMasterStore(w http.ResponseWriter, r *http.Request) {
	paths := s.masterService.Paths()

	rec, err := func() (master.Record, error) {
		attrs, err := decodeAttributes(r)
		if err != nil {
			return master.Record{}, err
		}
		return s.masterService.Create(r.Context(), identityFrom(r.Context()), attrs)
	}()
	if err != nil {
		s.failure(w, r, err, paths.List())
		return
	}

	s.log().Info(r.Context(), "master stored", "id", rec.ID, "group", rec.Group, "type", rec.Type)
	s.redirect(w, r, response.New(w, r, s.renderer).
		Message(s.trans(r, "messages.success.created")).
		Code(http.StatusNoContent).
		Status(response.StatusSuccess).
		Data(master.ToView(rec)).
		URL(paths.Entity(rec.ID)))
}

// handleMasterUpdate applies the submitted fields to one record.
func (s *Server) handleMasterUpdate(w http.ResponseWriter, r *http.Request) {
	paths := s.masterService.Paths()
	raw := r.PathValue("id")

	rec, err := func() (master.Record, error) {
		id, err := parseID(raw)
		if err != nil {
			return master.Record{}, err
		}
		attrs, err := decodeAttributes(r)
		if err != nil {
			return master.Record{}, err
		}
		return s.masterService.Update(r.Context(), id, attrs)
	}()
	if err != nil {
		s.failure(w, r, err, paths.Guard("master/master/"+raw))
		return
	}

	s.log().Info(r.Context(), "master updated", "id", rec.ID)
	s.redirect(w, r, response.New(w, r, s.renderer).
		Message(s.trans(r, "messages.success.updated")).
		Code(http.StatusNoContent).
		Status(response.StatusSuccess).
		Data(master.ToView(rec)).
		URL(paths.Entity(rec.ID)))
}

// handleMasterDestroy soft-deletes one record.
func (s *Server) handleMasterDestroy(w http.ResponseWriter, r *http.Request) {
	paths := s.masterService.Paths()
	raw := r.PathValue("id")

	rec, err := func() (master.Record, error) {
		id, err := parseID(raw)
		if err != nil {
			return master.Record{}, err
		}
		return s.masterService.Delete(r.Context(), id)
	}()
	if err != nil {
		s.failure(w, r, err, paths.Guard("master/master/"+raw))
		return
	}

	s.log().Info(r.Context(), "master deleted", "id", rec.ID)
	s.redirect(w, r, response.New(w, r, s.renderer).
		Message(s.trans(r, "messages.success.deleted")).
		Code(http.StatusAccepted).
		Status(response.StatusSuccess).
		Data(master.ToView(rec)).
		URL(paths.Entity(0)))
}

// failure sends the error envelope of a mutating action: the raw message,
// code 400 and the error kind.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error, url string) {
	kind := master.Classify(err)
	if kind == master.KindUnknown {
		s.log().Error(r.Context(), "master action failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log().Debug(r.Context(), "master action rejected", "kind", kind, "error", err)
	}

	b := response.New(w, r, s.renderer).
		Message(err.Error()).
		Code(http.StatusBadRequest).
		Status(response.StatusError).
		Kind(string(kind)).
		URL(url)
	var verr *master.ValidationError
	if errors.As(err, &verr) {
		b.Data(verr.Fields)
	}
	s.redirect(w, r, b)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, b *response.Builder) {
	if err := b.Output(); err != nil {
		s.log().Error(r.Context(), "render view", "error", err)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, b *response.Builder) {
	if err := b.Redirect(); err != nil {
		s.log().Error(r.Context(), "send envelope", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) title(r *http.Request, key string) string {
	locale := s.locale(r)
	return s.translator.T(locale, key, nil) + " " + s.translator.T(locale, "master.name", nil)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", master.ErrNotFound, raw)
	}
	return id, nil
}

func atoiDefault(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// decodeAttributes reads the submitted fields from a JSON body or a form.
// Only fields present in the request are set.
func decodeAttributes(r *http.Request) (master.Attributes, error) {
	var attrs master.Attributes

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
		if err := dec.Decode(&attrs); err != nil && !errors.Is(err, io.EOF) {
			return attrs, fmt.Errorf("%w: malformed body: %v", master.ErrValidation, err)
		}
		return attrs, nil
	}

	if err := r.ParseForm(); err != nil {
		return attrs, fmt.Errorf("%w: malformed form: %v", master.ErrValidation, err)
	}
	form := r.PostForm
	str := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}

	attrs.Group = str("group")
	attrs.Type = str("type")
	attrs.Name = str("name")
	attrs.Slug = str("slug")
	attrs.Code = str("code")
	attrs.Abbr = str("abbr")
	attrs.Description = str("description")
	attrs.Status = str("status")

	verr := &master.ValidationError{}
	if v := str("parent_id"); v != nil {
		id := int64(0)
		if strings.TrimSpace(*v) != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(*v), 10, 64)
			if err != nil {
				verr.Add("parent_id", "must be an integer")
			}
			id = n
		}
		attrs.ParentID = &id
	}
	if v := str("order"); v != nil && strings.TrimSpace(*v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			verr.Add("order", "must be an integer")
		}
		attrs.Order = &n
	}
	if !verr.Empty() {
		return attrs, verr
	}
	return attrs, nil
}
