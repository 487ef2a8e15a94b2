// Package engine is the ambient organization engine: it watches the message
// and file stream, extracts signals, generates and schedules organization
// suggestions, learns from user feedback, and manages graduation of
// chat-scoped content to project scope.
//
// Concurrency model: the engine is single-writer. One mutex guards all
// mutable collections (conversations, knowledge items, user patterns, active
// suggestion state). Analysis work runs off the interactive path against
// snapshots taken under the lock, and hands results back through the same
// lock, so concurrent passes never interleave writes.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starkad/ordna/internal/files"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/store"
)

// Notifier receives engine events for the presentation layer. The engine
// itself is presentation-agnostic.
type Notifier interface {
	Publish(eventType string, data map[string]string)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, map[string]string) {}

// Config holds the engine's timing policy.
type Config struct {
	// Debounce is the quiet window collapsing message bursts into one
	// analysis pass.
	Debounce time.Duration
	// SuggestionTTL is how long an organization suggestion stays surfaced
	// before auto-expiring.
	SuggestionTTL time.Duration
	// RelevanceInterval is the period of the background relevance rescore.
	RelevanceInterval time.Duration
	// RelationshipInterval is the period of the full pairwise relationship
	// rediscovery sweep.
	RelationshipInterval time.Duration
	// AmbientShowDelay and AmbientDuration bound ambient file suggestions.
	AmbientShowDelay time.Duration
	AmbientDuration  time.Duration
}

// DefaultConfig returns the standard timing policy.
func DefaultConfig() Config {
	return Config{
		Debounce:             2 * time.Second,
		SuggestionTTL:        15 * time.Second,
		RelevanceInterval:    5 * time.Minute,
		RelationshipInterval: time.Hour,
		AmbientShowDelay:     3 * time.Second,
		AmbientDuration:      30 * time.Second,
	}
}

type activeSuggestion struct {
	sugg   models.Suggestion
	expiry schedule.Handle
}

type ambientSuggestion struct {
	sugg     models.Suggestion
	surfaced bool
	show     schedule.Handle
	expire   schedule.Handle
}

// Engine owns the in-memory organization state.
type Engine struct {
	cfg    Config
	db     *store.DB
	files  *files.Store
	sched  schedule.Scheduler
	notify Notifier
	logger *slog.Logger

	mu            sync.Mutex
	conversations map[string]*models.Conversation
	items         map[string]*models.KnowledgeItem
	texts         map[string]string
	patterns      models.UserPatterns
	projects      []models.Project

	active     map[string]*activeSuggestion  // keyed by conversation ID
	ambient    map[string]*ambientSuggestion // keyed by item ID
	debouncers map[string]*schedule.Debouncer

	sweeps []schedule.Handle
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig overrides the timing policy.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New creates an engine, loading persisted knowledge items, user patterns,
// and projects from the store.
func New(db *store.DB, fs *files.Store, sched schedule.Scheduler, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:           DefaultConfig(),
		db:            db,
		files:         fs,
		sched:         sched,
		notify:        noopNotifier{},
		logger:        slog.Default(),
		conversations: make(map[string]*models.Conversation),
		items:         make(map[string]*models.KnowledgeItem),
		texts:         make(map[string]string),
		active:        make(map[string]*activeSuggestion),
		ambient:       make(map[string]*ambientSuggestion),
		debouncers:    make(map[string]*schedule.Debouncer),
	}
	for _, opt := range opts {
		opt(e)
	}

	items, err := db.LoadItems()
	if err != nil {
		return nil, err
	}
	for i := range items {
		item := items[i]
		e.items[item.ID] = &item
		rec := models.FileRecord{
			Name:      item.Name,
			Extension: item.Extension,
			LocalPath: item.LocalPath,
		}
		if text, ok := fs.ReadText(rec); ok {
			e.texts[item.ID] = text
		}
	}

	patterns, err := db.LoadPatterns()
	if err != nil {
		return nil, err
	}
	e.patterns = patterns

	projects, err := db.LoadProjects()
	if err != nil {
		return nil, err
	}
	e.projects = projects

	return e, nil
}

// Start arms the periodic relevance and relationship sweeps.
func (e *Engine) Start() {
	e.sweeps = append(e.sweeps,
		e.sched.Every(e.cfg.RelevanceInterval, e.RelevanceSweep),
		e.sched.Every(e.cfg.RelationshipInterval, e.RelationshipSweep),
	)
}

// Close cancels all pending timers.
func (e *Engine) Close() {
	for _, h := range e.sweeps {
		h.Stop()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.debouncers {
		d.Cancel()
	}
	for _, a := range e.active {
		a.expiry.Stop()
	}
	for _, a := range e.ambient {
		a.show.Stop()
		a.expire.Stop()
	}
}

// publish forwards an event to the notifier. Never called under the lock.
func (e *Engine) publish(eventType string, data map[string]string) {
	e.notify.Publish(eventType, data)
}

// persistItems writes the whole item collection. Write failures are logged
// and otherwise ignored; in-memory state stays authoritative for the session.
func (e *Engine) persistItems() {
	e.mu.Lock()
	items := make([]models.KnowledgeItem, 0, len(e.items))
	for _, it := range e.items {
		items = append(items, *it)
	}
	e.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })

	if err := e.db.SaveItems(items); err != nil {
		e.logger.Warn("persist items failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) persistPatterns() {
	e.mu.Lock()
	p := e.patterns
	e.mu.Unlock()
	if err := e.db.SavePatterns(p); err != nil {
		e.logger.Warn("persist patterns failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) persistProjects() {
	e.mu.Lock()
	projects := make([]models.Project, len(e.projects))
	copy(projects, e.projects)
	e.mu.Unlock()
	if err := e.db.SaveProjects(projects); err != nil {
		e.logger.Warn("persist projects failed", slog.String("error", err.Error()))
	}
}

// Patterns returns a copy of the current user patterns.
func (e *Engine) Patterns() models.UserPatterns {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.patterns
	p.Weights = make(map[models.SuggestionType]float64, len(e.patterns.Weights))
	for k, v := range e.patterns.Weights {
		p.Weights[k] = v
	}
	return p
}
