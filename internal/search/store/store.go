// Package store holds the single canonical FilterSet of a search session.
package store

import (
	"encoding/json"
	"sync"

	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/models"
	"estate-search/internal/search/locality"
)

// Listener receives the state after every mutation. Listeners run
// synchronously on the mutating goroutine and must not call back into the
// Store.
type Listener = func(models.FilterSet)

// Patcher applies a partial wire-form update to a FilterSet.
type Patcher interface {
	ApplyPatch(f models.FilterSet, patch map[string]json.RawMessage) (models.FilterSet, error)
}

type Store struct {
	mu        sync.Mutex
	state     models.FilterSet
	listeners []*subscription
	normalize func(models.FilterSet) models.FilterSet
	patcher   Patcher
	logger    logger.Logger
}

type subscription struct {
	fn Listener
}

type Option func(*Store)

// WithNormalizer runs fn over every new state before it is stored.
func WithNormalizer(fn func(models.FilterSet) models.FilterSet) Option {
	return func(s *Store) { s.normalize = fn }
}

func WithPatcher(p Patcher) Option {
	return func(s *Store) { s.patcher = p }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.logger = log }
}

func New(initial models.FilterSet, opts ...Option) *Store {
	s := &Store{logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.prepare(initial)
	return s
}

func (s *Store) prepare(f models.FilterSet) models.FilterSet {
	if s.normalize != nil {
		return s.normalize(f)
	}
	return f.Clone()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Replace swaps in a whole new state.
func (s *Store) Replace(f models.FilterSet) {
	s.mutate("replace", func(cur *models.FilterSet) error {
		*cur = f.Clone()
		return nil
	})
}

// Update applies fn to a copy of the state and stores the result.
func (s *Store) Update(fn func(f *models.FilterSet)) {
	s.mutate("update", func(cur *models.FilterSet) error {
		fn(cur)
		return nil
	})
}

// Patch applies a partial wire-form update. The state is untouched and no
// listener runs when the patch is rejected.
func (s *Store) Patch(patch map[string]json.RawMessage) error {
	return s.mutate("patch", func(cur *models.FilterSet) error {
		if s.patcher == nil {
			return ErrNoPatcher
		}
		next, err := s.patcher.ApplyPatch(*cur, patch)
		if err != nil {
			return err
		}
		*cur = next
		return nil
	})
}

// Reset returns the state to the defaults.
func (s *Store) Reset() {
	s.mutate("reset", func(cur *models.FilterSet) error {
		*cur = models.Defaults()
		return nil
	})
}

func (s *Store) AddLocality(pair models.Locality) {
	s.mutate("add_locality", func(cur *models.FilterSet) error {
		locality.Add(cur, pair)
		return nil
	})
}

func (s *Store) RemoveLocality(id string) {
	s.mutate("remove_locality", func(cur *models.FilterSet) error {
		locality.Remove(cur, id)
		return nil
	})
}

// SelectedLocalities is the id/name view of the locality selection.
func (s *Store) SelectedLocalities() []models.Locality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return locality.Read(s.state)
}

// Subscribe registers fn and returns a function that removes it. Listeners
// are called in subscription order.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l == sub {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) mutate(action string, fn func(cur *models.FilterSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.logger.Debug("Rejected filter mutation", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
		return err
	}
	s.state = s.prepare(next)
	metrics.StoreMutations.WithLabelValues(action).Inc()

	for _, l := range s.listeners {
		l.fn(s.state.Clone())
	}
	return nil
}
