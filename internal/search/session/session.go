package session

import (
	"time"

	"estate-search/internal/models"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/query"
	"estate-search/internal/search/store"
	"estate-search/internal/search/urlsync"
)

type Session struct {
	ID        string
	CreatedAt time.Time

	location   *urlsync.Location
	store      *store.Store
	controller *urlsync.Controller
	consumer   *query.Consumer
	detach     func()
}

// Store is the session's filter store. All filter mutations go through it.
func (s *Session) Store() *store.Store { return s.store }

func (s *Session) Location() *urlsync.Location { return s.location }

func (s *Session) Controller() *urlsync.Controller { return s.controller }

func (s *Session) Consumer() *query.Consumer { return s.consumer }

func (s *Session) close() {
	s.controller.Unmount()
	s.detach()
}

// View is the externally visible state of a session.
type View struct {
	ID                 string                 `json:"id"`
	Path               string                 `json:"path"`
	Token              string                 `json:"token,omitempty"`
	State              string                 `json:"state"`
	SyncPending        bool                   `json:"syncPending"`
	HistoryLength      int                    `json:"historyLength"`
	Filters            map[string]interface{} `json:"filters"`
	SelectedLocalities []models.Locality      `json:"selectedLocalities"`
	Results            *models.SearchResult   `json:"results,omitempty"`
	Error              string                 `json:"error,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
}

// View captures the session's current state. Filters are in wire form with
// defaults included.
func (s *Session) View(base string) View {
	path := s.location.Path()
	token, _ := urlsync.ParseToken(base, path)
	snapshot := s.store.Snapshot()

	v := View{
		ID:                 s.ID,
		Path:               path,
		Token:              token,
		State:              s.controller.State().String(),
		SyncPending:        s.controller.Pending(),
		HistoryLength:      len(s.location.History()),
		Filters:            codec.ToWire(snapshot),
		SelectedLocalities: s.store.SelectedLocalities(),
		CreatedAt:          s.CreatedAt,
	}
	if out, ok := s.consumer.Latest(); ok {
		v.Results = out.Result
		v.Error = query.ErrorCode(out.Err)
	}
	return v
}
