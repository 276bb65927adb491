package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"masterdata/auth"
	"masterdata/i18n"
	"masterdata/logging"
	"masterdata/master"
	"masterdata/response"
)

type contextKey string

const (
	ctxKeyUserID   contextKey = "user_id"
	ctxKeyUserType contextKey = "user_type"
)

type masterService interface {
	List(ctx context.Context, req master.ListRequest) (master.ListResult, error)
	Get(ctx context.Context, id int64) (master.Record, error)
	Create(ctx context.Context, who master.Identity, attrs master.Attributes) (master.Record, error)
	Update(ctx context.Context, id int64, attrs master.Attributes) (master.Record, error)
	Delete(ctx context.Context, id int64) (master.Record, error)
	Ping(ctx context.Context) error
	Form() master.Form
	Modules() []master.Module
	Paths() master.Paths
}

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (auth.Claims, error)
}

// Server exposes the master resource and the token endpoints over HTTP.
type Server struct {
	masterService masterService
	authService   authService
	translator    *i18n.Translator
	renderer      response.Renderer
	logger        logging.Logger
	guardRequired bool
}

func (s *Server) log() logging.Logger {
	if s.logger == nil {
		return logging.Nop()
	}
	return s.logger
}

// routes registers every endpoint. Literal segments win over wildcards, so
// /master/master/{id} is matched before /master/{group}/{type}.
func (s *Server) routes() http.Handler {
	base := s.masterService.Paths().List()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	guarded := http.NewServeMux()
	guarded.HandleFunc("GET "+base, s.handleMasterIndex)
	guarded.HandleFunc("POST "+base, s.handleMasterStore)
	guarded.HandleFunc("GET "+base+"/create", s.handleMasterCreate)
	guarded.HandleFunc("GET "+base+"/{id}", s.handleMasterShow)
	guarded.HandleFunc("GET "+base+"/{id}/edit", s.handleMasterEdit)
	guarded.HandleFunc("PUT "+base+"/{id}", s.handleMasterUpdate)
	guarded.HandleFunc("PATCH "+base+"/{id}", s.handleMasterUpdate)
	guarded.HandleFunc("DELETE "+base+"/{id}", s.handleMasterDestroy)

	group := strings.TrimSuffix(base, "/master")
	guarded.HandleFunc("GET "+group+"/{group}", s.handleMasterIndex)
	guarded.HandleFunc("GET "+group+"/{group}/{type}", s.handleMasterIndex)

	mux.Handle(group+"/", s.authenticate(guarded))

	return s.requestID(s.accessLog(s.recoverer(methodOverride(mux))))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) locale(r *http.Request) string {
	return s.translator.Negotiate(r.Header.Get("Accept-Language"))
}

// trans translates key for the request locale with the record name as
// :Module.
func (s *Server) trans(r *http.Request, key string) string {
	locale := s.locale(r)
	return s.translator.T(locale, key, map[string]string{
		"Module": s.translator.T(locale, "master.name", nil),
	})
}

func identityFrom(ctx context.Context) master.Identity {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	typ, _ := ctx.Value(ctxKeyUserType).(auth.UserType)
	return master.Identity{UserID: id, UserType: string(typ)}
}
