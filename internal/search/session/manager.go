// Package session hosts search sessions. A session is one search
// experience: a filter Store, the URL sync controller writing its path and
// the query consumer producing its results.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/common/observability"
	"estate-search/internal/models"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/query"
	"estate-search/internal/search/store"
	"estate-search/internal/search/urlsync"
)

var (
	ErrNotFound    = errors.New("SESSION_NOT_FOUND")
	ErrInvalidPath = errors.New("INVALID_SEARCH_PATH")
)

type Config struct {
	BasePath     string
	Backend      string
	QueryTimeout time.Duration
}

type Manager struct {
	config   *Config
	codec    *codec.Codec
	searcher query.Searcher
	obs      *observability.Observability
	logger   logger.Logger
	syncOpts []urlsync.Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

// WithSyncOptions passes options to every session's URL sync controller.
func WithSyncOptions(opts ...urlsync.Option) Option {
	return func(m *Manager) { m.syncOpts = append(m.syncOpts, opts...) }
}

func WithObservability(obs *observability.Observability) Option {
	return func(m *Manager) { m.obs = obs }
}

func NewManager(config *Config, c *codec.Codec, searcher query.Searcher, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		config:   config,
		codec:    c,
		searcher: searcher,
		obs:      observability.NewNoop(),
		logger:   log.WithFields(map[string]interface{}{"component": "session-manager"}),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BasePath is the canonical tokenless search path.
func (m *Manager) BasePath() string {
	return urlsync.CleanBase(m.config.BasePath)
}

// Open starts a session at path, which may carry a token. An invalid token
// is scrubbed and the session starts from the defaults.
func (m *Manager) Open(path string) (*Session, error) {
	base := m.BasePath()
	if path == "" {
		path = base
	}
	if _, ok := urlsync.ParseToken(base, path); !ok {
		return nil, ErrInvalidPath
	}

	id := uuid.NewString()
	log := m.logger.WithFields(map[string]interface{}{"sessionId": id})

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		location:  urlsync.NewLocation(path),
		store: store.New(models.Defaults(),
			store.WithNormalizer(m.codec.Normalize),
			store.WithPatcher(m.codec),
			store.WithLogger(log),
		),
		consumer: query.NewConsumer(&query.Config{
			Backend: m.config.Backend,
			Timeout: m.config.QueryTimeout,
		}, m.searcher, m.obs, log),
	}
	s.detach = s.consumer.Attach(s.store)

	opts := append([]urlsync.Option{urlsync.WithLogger(log)}, m.syncOpts...)
	s.controller = urlsync.NewController(base, s.store, m.codec, s.location, opts...)
	if err := s.controller.Mount(); err != nil {
		s.detach()
		return nil, err
	}

	// a tokenless path never mutates the store, so run the default search
	if s.consumer.Runs() == 0 {
		s.consumer.Run(context.Background(), s.store.Snapshot())
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.SessionsActive.Inc()

	log.Info("Session opened", map[string]interface{}{"path": s.location.Path()})
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close unmounts and forgets the session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	metrics.SessionsActive.Dec()
	m.logger.Info("Session closed", map[string]interface{}{"sessionId": id})
	return nil
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
		metrics.SessionsActive.Dec()
	}
	if len(sessions) > 0 {
		m.logger.Info("Closed all sessions", map[string]interface{}{"count": len(sessions)})
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
