package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "estate-search/internal/common/errors"
	"estate-search/internal/common/logger"
	"estate-search/internal/models"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/session"
	"estate-search/internal/search/urlsync"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Handlers struct {
	manager *session.Manager
	codec   *codec.Codec
	errors  *apperrors.ErrorHandler
	logger  logger.Logger

	checks       map[string]ReadinessCheck
	checkTimeout time.Duration
}

type HandlersOption func(*Handlers)

// WithReadinessCheck adds a dependency probe to GET /ready.
func WithReadinessCheck(name string, check ReadinessCheck) HandlersOption {
	return func(h *Handlers) { h.checks[name] = check }
}

func NewHandlers(manager *session.Manager, c *codec.Codec, log logger.Logger, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		manager:      manager,
		codec:        c,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
		checks:       make(map[string]ReadinessCheck),
		checkTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type createSessionRequest struct {
	Path string `json:"path"`
}

type encodeResponse struct {
	Token     string                 `json:"token"`
	Path      string                 `json:"path"`
	IsDefault bool                   `json:"isDefault"`
	Filters   map[string]interface{} `json:"filters"`
}

type decodeResponse struct {
	Token     string                 `json:"token"`
	IsDefault bool                   `json:"isDefault"`
	Filters   map[string]interface{} `json:"filters"`
}

// CreateSession handles POST /api/v1/sessions. The body is optional; without
// a path the session starts at the base path.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	s, err := h.manager.Open(req.Path)
	if err != nil {
		if errors.Is(err, session.ErrInvalidPath) {
			err = apperrors.NewInvalidRequestError(fmt.Sprintf("path %q is not under %s", req.Path, h.manager.BasePath()))
		}
		h.errors.WriteError(w, r, err)
		return
	}

	loggerFromContext(r.Context(), h.logger).Info("Created search session", map[string]interface{}{"sessionId": s.ID})
	respondJSON(w, http.StatusCreated, s.View(h.manager.BasePath()))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Close(id); err != nil {
		h.errors.WriteError(w, r, h.sessionError(id, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchFilters handles PATCH /api/v1/sessions/{id}/filters with a partial
// wire object. A null value removes the key.
func (h *Handlers) PatchFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var patch map[string]json.RawMessage
	if err := decodeBody(r, &patch, false); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	if err := s.Store().Patch(patch); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

// ReplaceFilters handles PUT /api/v1/sessions/{id}/filters. Keys left out of
// the body take their defaults.
func (h *Handlers) ReplaceFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var wire map[string]interface{}
	if err := decodeBody(r, &wire, false); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	f, err := h.codec.FromWireObject(wire)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	s.Store().Replace(f)
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

func (h *Handlers) ResetFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Store().Reset()
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

func (h *Handlers) AddLocality(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var pair models.Locality
	if err := decodeBody(r, &pair, false); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	if pair.ID == "" {
		h.errors.WriteError(w, r, apperrors.NewInvalidRequestError("locality id is required"))
		return
	}
	s.Store().AddLocality(pair)
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

func (h *Handlers) RemoveLocality(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Store().RemoveLocality(chi.URLParam(r, "localityId"))
	respondJSON(w, http.StatusOK, s.View(h.manager.BasePath()))
}

// EncodeToken handles POST /api/v1/tokens/encode. The body is a wire object;
// the response carries the shareable token and path.
func (h *Handlers) EncodeToken(w http.ResponseWriter, r *http.Request) {
	var wire map[string]interface{}
	if err := decodeBody(r, &wire, false); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	f, err := h.codec.FromWireObject(wire)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	token := h.codec.Encode(f)
	respondJSON(w, http.StatusOK, encodeResponse{
		Token:     token,
		Path:      urlsync.BuildPath(h.manager.BasePath(), token),
		IsDefault: h.codec.IsDefault(f),
		Filters:   codec.ToWire(f),
	})
}

// DecodeToken handles GET /api/v1/tokens/{token}. The response token is the
// canonical re-encoding, which differs from the input for non-canonical
// framings.
func (h *Handlers) DecodeToken(w http.ResponseWriter, r *http.Request) {
	f, err := h.codec.DecodeStrict(chi.URLParam(r, "token"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decodeResponse{
		Token:     h.codec.Encode(*f),
		IsDefault: h.codec.IsDefault(*f),
		Filters:   codec.ToWire(*f),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Ready runs every readiness check and answers 503 if any fails.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		loggerFromContext(r.Context(), h.logger).Warn("Readiness check failed", map[string]interface{}{"failures": failures})
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failures,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"sessions": h.manager.Len(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, err := h.manager.Get(id)
	if err != nil {
		h.errors.WriteError(w, r, h.sessionError(id, err))
		return nil, false
	}
	return s, true
}

func (h *Handlers) sessionError(id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return apperrors.NewSessionNotFoundError(id)
	}
	return err
}

// decodeBody reads a JSON body into v. With optional set an empty body is
// accepted and leaves v untouched.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return apperrors.NewInvalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
