package master

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Aggregate scopes accepted by Options.Scope.
const (
	ScopeGlobal   = "global"
	ScopeFiltered = "filtered"
)

// Validator checks caller attributes before a write.
type Validator interface {
	ValidateCreate(attrs Attributes) error
	ValidateUpdate(attrs Attributes) error
}

// Options configures a Service.
type Options struct {
	Paths    Paths
	Groups   map[string][]string
	Required []string
	Modules  []string
	Scope    string
	Limit    int
	MaxLimit int
}

// Service wires the repository to the filter, presenter and validation
// pipeline used by the controller.
type Service struct {
	repo      Repository
	validator Validator
	presenter Presenter
	paths     Paths
	form      Form
	modules   []string
	scope     string
	limit     int
	maxLimit  int
}

// NewService creates a master service. A nil validator accepts everything.
func NewService(repo Repository, validator Validator, opts Options) *Service {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	maxLimit := opts.MaxLimit
	if maxLimit < limit {
		maxLimit = limit
	}
	scope := opts.Scope
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Service{
		repo:      repo,
		validator: validator,
		presenter: ListPresenter{Paths: opts.Paths},
		paths:     opts.Paths,
		form:      NewForm(opts.Groups, opts.Required),
		modules:   opts.Modules,
		scope:     scope,
		limit:     limit,
		maxLimit:  maxLimit,
	}
}

// ListRequest carries the inputs of a list call.
type ListRequest struct {
	Values    url.Values
	Group     string
	Type      string
	Page      int
	PageLimit int
}

// ListMeta describes the returned page.
type ListMeta struct {
	CurrentPage int    `json:"current_page"`
	PerPage     int    `json:"per_page"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	HasMore     bool   `json:"has_more"`
	Path        string `json:"path"`
}

// ListLinks points at neighbouring pages. Empty when there is none.
type ListLinks struct {
	First string `json:"first"`
	Prev  string `json:"prev"`
	Next  string `json:"next"`
}

// ListResult is the list payload before it is wrapped in a view.
type ListResult struct {
	Items  []ListItem  `json:"data"`
	Meta   ListMeta    `json:"meta"`
	Links  ListLinks   `json:"links"`
	Groups []string    `json:"groups"`
	Type   string      `json:"type"`
	Count  []TypeCount `json:"count"`
}

// List runs the filter chain, pages through the repository and fetches the
// type counts and group list as separate calls.
func (s *Service) List(ctx context.Context, req ListRequest) (ListResult, error) {
	criteria := BuildCriteria(RequestFilter{Values: req.Values}, ResourceFilter{Group: req.Group, Type: req.Type})
	limit := s.pageLimit(req.PageLimit)
	page := PageRequest{Page: min(max(req.Page, 1), maxPage(limit)), Limit: limit}

	p, err := s.repo.Paginate(ctx, criteria, page)
	if err != nil {
		return ListResult{}, fmt.Errorf("master: list: %w", err)
	}

	aggregate := Criteria{}
	if s.scope == ScopeFiltered {
		aggregate = criteria.Scope()
	}
	count, err := s.repo.TypeCount(ctx, aggregate)
	if err != nil {
		return ListResult{}, fmt.Errorf("master: list: %w", err)
	}
	groups, err := s.repo.Groups(ctx, aggregate)
	if err != nil {
		return ListResult{}, fmt.Errorf("master: list: %w", err)
	}

	path := s.listPath(req.Group, req.Type)
	result := ListResult{
		Items:  s.presenter.Present(p.Records),
		Groups: groups,
		Type:   req.Type,
		Count:  count,
		Meta: ListMeta{
			CurrentPage: p.Page,
			PerPage:     p.Limit,
			HasMore:     p.HasMore,
			Path:        path,
		},
	}
	if n := len(p.Records); n > 0 {
		result.Meta.From = page.Offset() + 1
		result.Meta.To = page.Offset() + n
	}
	result.Links.First = pageURL(path, req.Values, 1, page.Limit)
	if p.Page > 1 {
		result.Links.Prev = pageURL(path, req.Values, p.Page-1, page.Limit)
	}
	if p.HasMore {
		result.Links.Next = pageURL(path, req.Values, p.Page+1, page.Limit)
	}
	return result, nil
}

// Get returns one live record.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.Find(ctx, id)
}

// Create validates attrs, fills defaults and stamps the caller identity.
func (s *Service) Create(ctx context.Context, who Identity, attrs Attributes) (Record, error) {
	if s.validator != nil {
		if err := s.validator.ValidateCreate(attrs); err != nil {
			return Record{}, err
		}
	}

	rec := Record{Group: DefaultGroup, Status: StatusShow}
	attrs.Apply(&rec)
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Slug == "" {
		rec.Slug = Slugify(rec.Name)
	} else {
		rec.Slug = Slugify(rec.Slug)
	}
	rec.UserID = who.UserID
	rec.UserType = who.UserType

	return s.repo.Create(ctx, rec)
}

// Update validates the supplied attributes and applies them in one mutation.
func (s *Service) Update(ctx context.Context, id int64, attrs Attributes) (Record, error) {
	if s.validator != nil {
		if err := s.validator.ValidateUpdate(attrs); err != nil {
			return Record{}, err
		}
	}
	if attrs.Slug != nil {
		slug := Slugify(*attrs.Slug)
		attrs.Slug = &slug
	}
	return s.repo.Update(ctx, id, attrs)
}

// Delete soft-deletes one record.
func (s *Service) Delete(ctx context.Context, id int64) (Record, error) {
	return s.repo.Delete(ctx, id)
}

// Ping checks the repository backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Form returns the form descriptor.
func (s *Service) Form() Form {
	return s.form
}

// Modules returns the resource menu with "master" active.
func (s *Service) Modules() []Module {
	return NewModules(s.modules, "master", s.paths)
}

// Paths returns the guard-prefixed URL builder.
func (s *Service) Paths() Paths {
	return s.paths
}

func (s *Service) pageLimit(requested int) int {
	switch {
	case requested <= 0:
		return s.limit
	case requested > s.maxLimit:
		return s.maxLimit
	default:
		return requested
	}
}

func (s *Service) listPath(group, typ string) string {
	switch {
	case group != "" && typ != "":
		return s.paths.Guard("master/" + group + "/" + typ)
	case group != "":
		return s.paths.Guard("master/" + group)
	default:
		return s.paths.List()
	}
}

// maxPage is the last page whose offset fits in an int.
func maxPage(limit int) int {
	return math.MaxInt/limit + 1
}

func pageURL(path string, values url.Values, page, limit int) string {
	q := url.Values{}
	for k, v := range values {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageLimit", strconv.Itoa(limit))
	return path + "?" + q.Encode()
}
