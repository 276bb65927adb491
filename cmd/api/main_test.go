package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"masterdata/auth"
	"masterdata/config"
	"masterdata/logging"
	"masterdata/master"
	"masterdata/response"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config, st *store)) (*Server, http.Handler) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Store.Driver = config.DriverMemory
	cfg.Guard.Prefix = "admin"

	st, err := openStore(context.Background(), cfg, logging.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if mutate != nil {
		mutate(cfg, st)
	}
	server, err := newServer(cfg, st, logging.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server, server.routes()
}

func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req
}

type envelopeResponse struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	URL     string          `json:"url"`
	Kind    string          `json:"kind"`
}

type pageResponse struct {
	View string          `json:"view"`
	Meta response.Meta   `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func serveReq(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page pageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return page
}

func storeRecord(t *testing.T, h http.Handler, body string) master.View {
	t.Helper()
	rec := serveReq(t, h, jsonRequest(http.MethodPost, "/admin/master/master", body))
	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Fatalf("store %s failed: %+v", body, env)
	}
	var view master.View
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func TestMasterLifecycle_StoreDestroyShow(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := serveReq(t, h, jsonRequest(http.MethodPost, "/admin/master/master", `{"name":"X"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a 204 envelope, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != 204 || env.Status != "success" || env.URL != "/admin/master/master/1" {
		t.Fatalf("unexpected store envelope: %+v", env)
	}
	if env.Message != "Master has been created successfully." {
		t.Fatalf("unexpected message %q", env.Message)
	}

	rec = serveReq(t, h, jsonRequest(http.MethodDelete, "/admin/master/master/1", ""))
	env = decodeEnvelope(t, rec)
	if rec.Code != http.StatusAccepted || env.Code != 202 || env.Status != "success" || env.URL != "/admin/master/master/0" {
		t.Fatalf("unexpected destroy envelope (%d): %+v", rec.Code, env)
	}

	rec = serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/1", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	env = decodeEnvelope(t, rec)
	if env.Status != "error" || env.Kind != "not_found" || env.URL != "/admin/master/master" {
		t.Fatalf("unexpected show envelope: %+v", env)
	}
}

func TestHandleMasterStore_BrowserRedirect(t *testing.T) {
	_, h := newTestServer(t, nil)

	form := url.Values{"name": {"Kerala"}, "type": {"state"}, "order": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/master/master", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serveReq(t, h, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/master/master/1" {
		t.Fatalf("unexpected location %q", loc)
	}

	show := httptest.NewRequest(http.MethodGet, "/admin/master/master/1", nil)
	for _, c := range rec.Result().Cookies() {
		show.AddCookie(c)
	}
	page := decodePage(t, serveReq(t, h, show))
	if page.View != "master.show" || page.Meta.Title != "View Master" {
		t.Fatalf("unexpected page: %+v", page)
	}
	var payload struct {
		Data master.View `json:"data"`
	}
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode show data: %v", err)
	}
	if payload.Data.Name != "Kerala" || payload.Data.Type != "state" || payload.Data.Order != 2 || payload.Data.Slug != "kerala" {
		t.Fatalf("unexpected record: %+v", payload.Data)
	}
}

func TestHandleMasterStore_Failures(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"India","type":"country"}`)

	cases := []struct {
		name string
		body string
		kind string
	}{
		{"missing name", `{"code":"IN"}`, "validation"},
		{"rule violation", `{"name":"Atlantis","status":"sunk"}`, "validation"},
		{"malformed body", `{"name":`, "validation"},
		{"duplicate slug", `{"name":"India","type":"country"}`, "conflict"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveReq(t, h, jsonRequest(http.MethodPost, "/admin/master/master", tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Code != 400 || env.Status != "error" || env.Kind != tc.kind || env.URL != "/admin/master/master" {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if env.Message == "" {
				t.Fatal("expected the error message in the envelope")
			}
		})
	}
}

func TestHandleMasterUpdate(t *testing.T) {
	_, h := newTestServer(t, nil)
	created := storeRecord(t, h, `{"name":"Kochi","code":"KOC","type":"city"}`)

	rec := serveReq(t, h, jsonRequest(http.MethodPatch, "/admin/master/master/1", `{"name":"Cochin"}`))
	env := decodeEnvelope(t, rec)
	if env.Code != 204 || env.Status != "success" || env.URL != "/admin/master/master/1" {
		t.Fatalf("unexpected update envelope: %+v", env)
	}
	var view master.View
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Name != "Cochin" || view.Code != "KOC" || view.Slug != created.Slug {
		t.Fatalf("expected a partial update, got %+v", view)
	}

	form := url.Values{"_method": {"PUT"}, "status": {"hide"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/master/master/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serveReq(t, h, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/master/master/1" {
		t.Fatalf("expected redirect back to the record, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/1/edit", "")))
	if page.View != "master.edit" || page.Meta.Title != "Edit Master" || !strings.Contains(string(page.Data), `"status":"hide"`) {
		t.Fatalf("unexpected edit page: %+v", page)
	}
}

func showRecord(t *testing.T, h http.Handler, id string) master.View {
	t.Helper()
	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/"+id, "")))
	var payload struct {
		Data master.View `json:"data"`
	}
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode show data: %v", err)
	}
	payload.Data.UpdatedAt = nil
	return payload.Data
}

func TestHandleMasterUpdate_IsolatedAndIdempotent(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"Kochi","type":"city"}`)
	storeRecord(t, h, `{"name":"Madurai","type":"city"}`)
	untouched := showRecord(t, h, "2")

	body := `{"name":"Cochin","code":"COK","order":3}`
	serveReq(t, h, jsonRequest(http.MethodPut, "/admin/master/master/1", body))
	first := showRecord(t, h, "1")
	serveReq(t, h, jsonRequest(http.MethodPut, "/admin/master/master/1", body))
	second := showRecord(t, h, "1")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated update changed the record (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(untouched, showRecord(t, h, "2")); diff != "" {
		t.Fatalf("update touched another record (-before +after):\n%s", diff)
	}
}

func TestHandleMasterUpdate_Failures(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"Kochi"}`)

	cases := []struct {
		name   string
		target string
		body   string
		kind   string
	}{
		{"missing record", "/admin/master/master/99", `{"name":"Ghost"}`, "not_found"},
		{"bad id", "/admin/master/master/abc", `{"name":"Ghost"}`, "not_found"},
		{"blank name", "/admin/master/master/1", `{"name":""}`, "validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveReq(t, h, jsonRequest(http.MethodPut, tc.target, tc.body))
			env := decodeEnvelope(t, rec)
			if rec.Code != http.StatusBadRequest || env.Code != 400 || env.Kind != tc.kind || env.URL != tc.target {
				t.Fatalf("unexpected envelope (%d): %+v", rec.Code, env)
			}
		})
	}
}

func TestHandleMasterDestroy_Missing(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := serveReq(t, h, jsonRequest(http.MethodDelete, "/admin/master/master/42", ""))
	env := decodeEnvelope(t, rec)
	if rec.Code != http.StatusBadRequest || env.Kind != "not_found" || env.URL != "/admin/master/master/42" {
		t.Fatalf("unexpected envelope (%d): %+v", rec.Code, env)
	}
}

func TestHandleMasterIndex(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"India","type":"country"}`)
	storeRecord(t, h, `{"name":"Nepal","type":"country"}`)
	storeRecord(t, h, `{"name":"Kochi","type":"city"}`)
	storeRecord(t, h, `{"name":"Finance","type":"department","group":"settings"}`)

	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master?pageLimit=2", "")))
	if page.View != "master.index" || page.Meta.Title != "Masters" {
		t.Fatalf("unexpected page: %+v", page)
	}

	var payload struct {
		Data []master.ListItem `json:"data"`
		Meta struct {
			CurrentPage int  `json:"current_page"`
			PerPage     int  `json:"per_page"`
			HasMore     bool `json:"has_more"`
		} `json:"meta"`
		Links struct {
			Next string `json:"next"`
		} `json:"links"`
		Groups  []string           `json:"groups"`
		Count   []master.TypeCount `json:"count"`
		Modules []master.Module    `json:"modules"`
		Form    master.Form        `json:"form"`
		Type    string             `json:"type"`
	}
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(payload.Data) != 2 || payload.Meta.PerPage != 2 || !payload.Meta.HasMore || payload.Links.Next == "" {
		t.Fatalf("unexpected pagination: %+v", payload)
	}
	if payload.Data[0].Name != "Finance" || payload.Data[0].URL != "/admin/master/master/4" {
		t.Fatalf("unexpected first row: %+v", payload.Data[0])
	}
	if len(payload.Groups) != 2 || len(payload.Count) != 3 || len(payload.Modules) != 1 || len(payload.Form.Fields) == 0 {
		t.Fatalf("unexpected descriptors: groups=%v count=%v modules=%v", payload.Groups, payload.Count, payload.Modules)
	}

	page = decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/masters/country?q=nep", "")))
	payload.Data = nil
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode filtered index: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Name != "Nepal" || payload.Type != "country" {
		t.Fatalf("unexpected filtered rows: %+v", payload.Data)
	}

	page = decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/settings", "")))
	payload.Data = nil
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode group index: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Group != "settings" {
		t.Fatalf("unexpected group rows: %+v", payload.Data)
	}
}

func TestHandleMasterIndex_AggregatesIgnorePageSize(t *testing.T) {
	_, h := newTestServer(t, nil)
	for _, name := range []string{"India", "Nepal", "Bhutan", "Kochi", "Madurai"} {
		typ := "country"
		if name == "Kochi" || name == "Madurai" {
			typ = "city"
		}
		storeRecord(t, h, `{"name":"`+name+`","type":"`+typ+`"}`)
	}

	type index struct {
		Data   []master.ListItem  `json:"data"`
		Groups []string           `json:"groups"`
		Count  []master.TypeCount `json:"count"`
	}
	var counts [][]master.TypeCount
	for _, limit := range []string{"1", "2", "50"} {
		page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master?pageLimit="+limit, "")))
		var got index
		if err := json.Unmarshal(page.Data, &got); err != nil {
			t.Fatalf("decode index: %v", err)
		}
		if n := atoiDefault(limit, 0); len(got.Data) > n {
			t.Fatalf("pageLimit %s returned %d rows", limit, len(got.Data))
		}
		counts = append(counts, got.Count)
	}
	for i := 1; i < len(counts); i++ {
		if diff := cmp.Diff(counts[0], counts[i]); diff != "" {
			t.Fatalf("type counts depend on page size (-want +got):\n%s", diff)
		}
	}
}

func TestHandleMasterIndex_HugePage(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"India","type":"country"}`)

	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master?page=9223372036854775807", "")))
	var payload struct {
		Data []master.ListItem `json:"data"`
		Meta struct {
			HasMore bool `json:"has_more"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(payload.Data) != 0 || payload.Meta.HasMore {
		t.Fatalf("expected an empty last page, got %+v", payload)
	}
}

func TestHandleMasterIndex_TypeUnderResourcePath(t *testing.T) {
	_, h := newTestServer(t, nil)
	storeRecord(t, h, `{"name":"India","type":"country"}`)
	storeRecord(t, h, `{"name":"Kochi","type":"city"}`)
	storeRecord(t, h, `{"name":"Finance","type":"department","group":"settings"}`)

	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/country", "")))
	if page.View != "master.index" {
		t.Fatalf("expected the index view, got %q", page.View)
	}
	var payload struct {
		Data []master.ListItem `json:"data"`
		Type string            `json:"type"`
	}
	if err := json.Unmarshal(page.Data, &payload); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Name != "India" || payload.Type != "country" {
		t.Fatalf("unexpected rows: %+v", payload)
	}

	rec := serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/99", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("numeric segment should stay a show lookup, got %d", rec.Code)
	}
}

func TestHandleMasterCreate_LocalisedTitle(t *testing.T) {
	_, h := newTestServer(t, nil)

	page := decodePage(t, serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master/create", "")))
	if page.View != "master.create" || page.Meta.Title != "New Master" {
		t.Fatalf("unexpected page: %+v", page)
	}

	req := jsonRequest(http.MethodGet, "/admin/master/master/create", "")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	page = decodePage(t, serveReq(t, h, req))
	if page.Meta.Title != "Neu Stammdatum" {
		t.Fatalf("expected German title, got %q", page.Meta.Title)
	}
}

func TestGuard_StampsIdentity(t *testing.T) {
	server, h := newTestServer(t, nil)
	token, err := server.authService.(*auth.Service).IssueToken("user-7", auth.UserTypeAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := jsonRequest(http.MethodPost, "/admin/master/master", `{"name":"Owned","user_id":"spoofed"}`)
	req.Header.Set("Authorization", "Bearer "+token)
	env := decodeEnvelope(t, serveReq(t, h, req))

	var view master.View
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.UserID != "user-7" || view.UserType != "admin" {
		t.Fatalf("expected identity from the guard, got %q/%q", view.UserID, view.UserType)
	}
}

func TestGuard_Required(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config, _ *store) { cfg.Guard.Required = true })

	rec := serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := jsonRequest(http.MethodGet, "/admin/master/master", "")
	req.Header.Set("Authorization", "Bearer not-a-token")
	if rec := serveReq(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}

	req = jsonRequest(http.MethodGet, "/admin/master/master", "")
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	if rec := serveReq(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a non-bearer scheme, got %d", rec.Code)
	}

	if rec := serveReq(t, h, jsonRequest(http.MethodGet, "/healthz", "")); rec.Code != http.StatusOK {
		t.Fatalf("expected health to stay public, got %d", rec.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	_, h := newTestServer(t, nil)

	body := `{"email":"alice@example.com","password":"supersafe","full_name":"Alice"}`
	rec := serveReq(t, h, jsonRequest(http.MethodPost, "/auth/register", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serveReq(t, h, jsonRequest(http.MethodPost, "/auth/register", body)); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	rec = serveReq(t, h, jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"supersafe"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.User.UserType != "user" {
		t.Fatalf("unexpected login payload: %+v", login)
	}

	rec = serveReq(t, h, jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong-one"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := serveReq(t, h, jsonRequest(http.MethodPost, "/auth/login", `not json`)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type failingMasterRepo struct {
	*master.MemoryRepository
	err error
}

func (f failingMasterRepo) Paginate(context.Context, master.Criteria, master.PageRequest) (master.Page, error) {
	return master.Page{}, f.err
}

func (f failingMasterRepo) Create(context.Context, master.Record) (master.Record, error) {
	return master.Record{}, f.err
}

func (f failingMasterRepo) Ping(context.Context) error {
	return f.err
}

func TestHandlers_RepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset by peer")
	_, h := newTestServer(t, func(_ *config.Config, st *store) {
		st.masters = failingMasterRepo{MemoryRepository: master.NewMemoryRepository(), err: boom}
	})

	if rec := serveReq(t, h, jsonRequest(http.MethodGet, "/admin/master/master", "")); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a failing list, got %d", rec.Code)
	}
	if rec := serveReq(t, h, jsonRequest(http.MethodGet, "/healthz", "")); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for a failing ping, got %d", rec.Code)
	}

	rec := serveReq(t, h, jsonRequest(http.MethodPost, "/admin/master/master", `{"name":"X"}`))
	env := decodeEnvelope(t, rec)
	if env.Code != 400 || env.Kind != "unknown" || !strings.Contains(env.Message, "connection reset") {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRequestID_EchoedOrGenerated(t *testing.T) {
	_, h := newTestServer(t, nil)

	req := jsonRequest(http.MethodGet, "/healthz", "")
	req.Header.Set("X-Request-ID", "req-123")
	if got := serveReq(t, h, req).Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if got := serveReq(t, h, jsonRequest(http.MethodGet, "/healthz", "")).Header().Get("X-Request-ID"); got == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t, nil)
	if rec := serveReq(t, h, jsonRequest(http.MethodPost, "/admin/master/master/1", `{}`)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 without a method override, got %d", rec.Code)
	}
}

func TestDecodeAttributes_Form(t *testing.T) {
	form := url.Values{"name": {"Kochi"}, "parent_id": {""}, "order": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	attrs, err := decodeAttributes(req)
	if master.Classify(err) != master.KindValidation {
		t.Fatalf("expected validation error for a bad order, got %v", err)
	}
	if attrs.Name == nil || *attrs.Name != "Kochi" {
		t.Fatalf("expected name to be decoded, got %+v", attrs)
	}
	if attrs.ParentID == nil || *attrs.ParentID != 0 {
		t.Fatalf("expected an empty parent to clear, got %v", attrs.ParentID)
	}
	if attrs.Code != nil {
		t.Fatal("expected absent fields to stay nil")
	}
}
