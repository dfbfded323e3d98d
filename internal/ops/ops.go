// Package ops is the form lifecycle service shared by the web, MCP and CLI
// surfaces. Every owner-scoped operation takes the owner explicitly; the
// transports decide where it comes from.
package ops

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/db"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/form"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizePage applies the list defaults and caps.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func newPagination(limit, offset, n, total int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+n < total,
		Total:   total,
	}
}

// Persistence is the storage the service runs on. db.Store implements it.
type Persistence interface {
	CreateForm(ctx context.Context, f *form.Form) error
	GetForm(ctx context.Context, owner, id string) (*form.Form, error)
	GetByShareURL(ctx context.Context, shareURL string) (*form.Form, error)
	ListForms(ctx context.Context, owner string, limit, offset int) ([]form.Summary, int, error)
	UpdateContent(ctx context.Context, owner, id, content string, baseVersion *int64) (int64, error)
	Publish(ctx context.Context, owner, id string) (*form.Form, error)
	SoftDelete(ctx context.Context, owner, id string) error
	PurgeDeleted(ctx context.Context, owner string, cutoff time.Time) (int, error)
	OpenPublished(ctx context.Context, shareURL string) (*form.Form, error)
	RecordSubmission(ctx context.Context, shareURL string, sub *form.Submission) error
	ListSubmissions(ctx context.Context, owner, formID string, limit, offset int) ([]form.Submission, int, error)
	Stats(ctx context.Context, owner string) (visits, submissions int64, err error)
}

var _ Persistence = (*db.Store)(nil)

// Service runs form operations against a Persistence.
type Service struct {
	store      Persistence
	registry   *fields.Registry
	cfg        *config.Config
	logger     *slog.Logger
	exportsDir string
	disabled   []fields.FieldType
	now        func() time.Time
	locks      formLocks
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for lifecycle events. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithExportsDir sets the default directory for exports and imports.
func WithExportsDir(dir string) Option {
	return func(s *Service) { s.exportsDir = dir }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. A nil registry means fields.Default(); a nil cfg
// means config.DefaultConfig(). Unknown disabled_field_types fail here.
func New(store Persistence, reg *fields.Registry, cfg *config.Config, opts ...Option) (*Service, error) {
	if reg == nil {
		reg = fields.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	disabled, err := reg.ParseFieldTypes(cfg.DisabledFieldTypes)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:    store,
		registry: reg,
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		disabled: disabled,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Registry returns the field registry the service validates against.
func (s *Service) Registry() *fields.Registry { return s.registry }

// Config returns the effective configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// ShareLink is the public address of a published form, relative when no
// public_base_url is configured.
func (s *Service) ShareLink(shareURL string) string {
	return s.cfg.PublicBaseURL + "/submit/" + shareURL
}

func (s *Service) fieldDisabled(t fields.FieldType) bool {
	for _, d := range s.disabled {
		if d == t {
			return true
		}
	}
	return false
}

func requireOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.NewUnauthenticated()
	}
	return owner, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidRequest("id is required")
	}
	return nil
}

// generateULID returns a new lexicographically sortable id from the same
// monotonic source as element ids.
func generateULID() (string, error) {
	id, err := fields.NewElementID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id, nil
}

// formLocks serializes read-modify-write cycles on the same form.
type formLocks struct {
	mu   sync.Mutex
	held map[string]*formLock
}

type formLock struct {
	sync.Mutex
	refs int
}

// lock blocks until id is free and returns the matching unlock.
func (l *formLocks) lock(id string) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]*formLock)
	}
	fl, ok := l.held[id]
	if !ok {
		fl = &formLock{}
		l.held[id] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.Lock()
	return func() {
		fl.Unlock()
		l.mu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
