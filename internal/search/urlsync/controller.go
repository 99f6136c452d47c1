// Package urlsync keeps a Navigator's path in step with a filter Store.
//
// On Mount the token in the current path seeds the Store. Afterwards every
// Store mutation re-arms a debounce timer, and when it fires the path is
// replaced with the token of the latest state.
package urlsync

import (
	"errors"
	"sync"
	"time"

	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/models"
	"estate-search/internal/search/debounce"
	"estate-search/internal/search/store"
)

// DefaultDebounce is the delay between the last mutation and the URL write.
const DefaultDebounce = 500 * time.Millisecond

var (
	ErrAlreadyMounted = errors.New("CONTROLLER_ALREADY_MOUNTED")
)

type State int

const (
	StateUninitialized State = iota
	StateSyncing
	StateIdle
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSyncing:
		return "syncing"
	case StateIdle:
		return "idle"
	case StateUnmounted:
		return "unmounted"
	}
	return "unknown"
}

// Codec is the token encoding the controller writes and reads.
type Codec interface {
	Encode(f models.FilterSet) string
	Decode(token string) (*models.FilterSet, bool)
	IsDefault(f models.FilterSet) bool
}

type Controller struct {
	base   string
	store  *store.Store
	codec  Codec
	nav    Navigator
	logger logger.Logger

	delay time.Duration
	clock debounce.Clock
	timer *debounce.Timer[models.FilterSet]

	mu          sync.Mutex
	state       State
	unsubscribe func()
}

type Option func(*Controller)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

func WithClock(clock debounce.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) { c.logger = log }
}

func NewController(base string, s *store.Store, codec Codec, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		base:   CleanBase(base),
		store:  s,
		codec:  codec,
		nav:    nav,
		logger: logger.NewNoOpLogger(),
		delay:  DefaultDebounce,
		clock:  debounce.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{"component": "urlsync"})
	c.timer = debounce.New(c.delay, c.write, debounce.WithClock[models.FilterSet](c.clock))
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports whether a URL write is waiting for the debounce delay.
func (c *Controller) Pending() bool {
	return c.timer.Pending()
}

// Mount loads the token of the current path into the Store and then starts
// following Store mutations. A token that does not decode is scrubbed from
// the path and the Store keeps its defaults.
func (c *Controller) Mount() error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.state = StateSyncing
	c.mu.Unlock()

	path := c.nav.Path()
	token, ok := ParseToken(c.base, path)
	if !ok {
		c.logger.Warn("Path is outside the search base", map[string]interface{}{
			"path": path,
			"base": c.base,
		})
	}

	if token != "" {
		if f, ok := c.codec.Decode(token); ok {
			c.store.Replace(*f)
			c.logger.Debug("Loaded filters from token", map[string]interface{}{"tokenLength": len(token)})
		} else {
			c.nav.Replace(c.base)
			metrics.URLWrites.WithLabelValues("scrub").Inc()
			c.logger.Info("Scrubbed invalid token from path", map[string]interface{}{"path": path})
		}
	}

	// Subscribing only now keeps the decoded state from being written back.
	unsubscribe := c.store.Subscribe(c.onChange)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.state = StateIdle
	c.mu.Unlock()
	return nil
}

// Unmount stops following the Store and drops any pending write. No write
// happens after Unmount returns.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.state == StateUnmounted {
		c.mu.Unlock()
		return
	}
	c.state = StateUnmounted
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.timer.Cancel()
}

// onChange runs under the Store lock.
func (c *Controller) onChange(f models.FilterSet) {
	if c.State() != StateIdle {
		return
	}
	c.timer.Arm(f)
}

// write runs under the timer lock.
func (c *Controller) write(f models.FilterSet) {
	if c.State() != StateIdle {
		return
	}

	current, _ := ParseToken(c.base, c.nav.Path())

	if c.codec.IsDefault(f) {
		if current != "" {
			c.nav.Replace(c.base)
			metrics.URLWrites.WithLabelValues("clear").Inc()
			c.logger.Debug("Cleared token from path", nil)
		}
		return
	}

	token := c.codec.Encode(f)
	if token == "" || token == current {
		return
	}
	c.nav.Replace(BuildPath(c.base, token))
	metrics.URLWrites.WithLabelValues("token").Inc()
	c.logger.Debug("Wrote token to path", map[string]interface{}{"tokenLength": len(token)})
}
