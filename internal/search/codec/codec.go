// Package codec turns a FilterSet into a compact URL-safe token and back.
//
// A token is the reduced wire object serialized as JSON, deflated with zlib
// and framed as unpadded base64 over the URL alphabet. The empty search has
// no token.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"

	apperrors "estate-search/internal/common/errors"
	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/common/validation"
	"estate-search/internal/models"
	"estate-search/pkg/registry"
)

// DefaultMaxInflatedBytes bounds the decompressed size of a token.
const DefaultMaxInflatedBytes = 64 << 10

// Decode stages, used as the "stage" metric label.
const (
	StageEmpty   = "empty"
	StageBase64  = "base64"
	StageInflate = "inflate"
	StageParse   = "parse"
	StageSchema  = "schema"
)

var (
	ErrDecode        = errors.New("CODEC_DECODE_FAILED")
	ErrTokenTooLarge = errors.New("TOKEN_TOO_LARGE")
)

type Codec struct {
	logger      logger.Logger
	catalog     *registry.Index
	maxInflated int64
}

type Option func(*Codec)

// WithCatalog makes Normalize drop localities that belong to a city other
// than the selected cityId.
func WithCatalog(idx *registry.Index) Option {
	return func(c *Codec) { c.catalog = idx }
}

func WithMaxInflatedBytes(n int64) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxInflated = n
		}
	}
}

func New(log logger.Logger, opts ...Option) *Codec {
	c := &Codec{
		logger:      log.WithFields(map[string]interface{}{"component": "codec"}),
		maxInflated: DefaultMaxInflatedBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize applies the package Normalize with the codec's catalog.
func (c *Codec) Normalize(f models.FilterSet) models.FilterSet {
	return Normalize(f, c.catalog)
}

// IsDefault reports whether f is the empty search.
func (c *Codec) IsDefault(f models.FilterSet) bool {
	return IsDefault(f)
}

// IsDefault reports whether f canonicalizes to an empty object.
func IsDefault(f models.FilterSet) bool {
	return len(Canonicalize(f)) == 0
}

// Encode returns the token for f, or "" when f is the empty search. Failures
// are logged and counted, and also yield "".
func (c *Codec) Encode(f models.FilterSet) string {
	wire := Canonicalize(f)
	if len(wire) == 0 {
		return ""
	}

	token, err := encodeWire(wire)
	if err != nil {
		metrics.CodecFailures.WithLabelValues("encode", "serialize").Inc()
		c.logger.WithError(apperrors.NewCodecEncodeFailedError(err)).Error("Failed to encode filters", nil)
		return ""
	}
	metrics.CodecTokenBytes.Observe(float64(len(token)))
	return token
}

func encodeWire(wire map[string]interface{}) (string, error) {
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. It returns false for any token that is not a valid
// encoding of a filter object; callers fall back to the defaults.
func (c *Codec) Decode(token string) (*models.FilterSet, bool) {
	f, err := c.DecodeStrict(token)
	return f, err == nil
}

// DecodeStrict is Decode for callers that report the failure. The error is a
// CODEC_DECODE_FAILED StandardError naming the stage that rejected the token.
func (c *Codec) DecodeStrict(token string) (*models.FilterSet, error) {
	f, stage, err := c.decode(token)
	if err != nil {
		metrics.CodecFailures.WithLabelValues("decode", stage).Inc()
		c.logger.Debug("Discarding undecodable token", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
		stdErr := apperrors.NewCodecDecodeFailedError(stage)
		stdErr.Metadata = map[string]interface{}{"stage": stage}
		return nil, stdErr
	}
	return f, nil
}

func (c *Codec) decode(token string) (*models.FilterSet, string, error) {
	if token == "" {
		return nil, StageEmpty, ErrDecode
	}

	raw, err := unframe(token)
	if err != nil {
		return nil, StageBase64, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	data, err := c.inflate(raw)
	if err != nil {
		return nil, StageInflate, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if !json.Valid(data) {
		return nil, StageParse, fmt.Errorf("%w: invalid json", ErrDecode)
	}

	result, err := validation.Filters().ValidateBytes(data)
	if err != nil {
		return nil, StageParse, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !result.Valid {
		return nil, StageSchema, fmt.Errorf("%w: %s", ErrDecode, result.Summary())
	}

	var w wireFilters
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, StageParse, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	f, mismatch := fromWire(w)
	if mismatch {
		c.reportMismatch(w.LocalityID, w.Locality)
	}
	f = c.Normalize(f)
	return &f, "", nil
}

// unframe accepts both the URL and the standard base64 alphabet, padded or
// not.
func unframe(token string) ([]byte, error) {
	s := strings.TrimRight(token, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

func (c *Codec) inflate(raw []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, c.maxInflated+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxInflated {
		return nil, ErrTokenTooLarge
	}
	return data, nil
}

func (c *Codec) reportMismatch(ids string, names []string) {
	idCount := 0
	if ids != "" {
		idCount = strings.Count(ids, ",") + 1
	}
	metrics.ReconcilerMismatches.Inc()
	c.logger.WithError(apperrors.NewReconcilerLengthMismatchError(idCount, len(names))).
		Warn("Truncated mismatched locality lists", nil)
}

// ApplyPatch overlays patch on the wire form of f. A JSON null, "" or []
// removes the key, so the dimension returns to its default or becomes
// absent. The patched object must satisfy the filter schema.
func (c *Codec) ApplyPatch(f models.FilterSet, patch map[string]json.RawMessage) (models.FilterSet, error) {
	wire := ToWire(f)
	for key, raw := range patch {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			delete(wire, key)
			continue
		}
		var v interface{}
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return f, apperrors.NewInvalidFilterFormatError(fmt.Sprintf("%s: %v", key, err))
		}
		wire[key] = v
	}

	out, err := c.FromWireObject(wire)
	if err != nil {
		return f, err
	}
	return out, nil
}

// FromWireObject validates a wire object (full or reduced) and builds the
// FilterSet it describes.
func (c *Codec) FromWireObject(wire map[string]interface{}) (models.FilterSet, error) {
	reduced := Reduce(wire)
	result, err := validation.Filters().ValidateInput(reduced)
	if err != nil {
		return models.FilterSet{}, apperrors.NewInvalidFilterFormatError(err.Error())
	}
	if !result.Valid {
		return models.FilterSet{}, apperrors.NewInvalidFilterFormatError(result.Summary())
	}

	data, err := json.Marshal(reduced)
	if err != nil {
		return models.FilterSet{}, apperrors.NewInvalidFilterFormatError(err.Error())
	}
	var w wireFilters
	if err := json.Unmarshal(data, &w); err != nil {
		return models.FilterSet{}, apperrors.NewInvalidFilterFormatError(err.Error())
	}
	out, mismatch := fromWire(w)
	if mismatch {
		c.reportMismatch(w.LocalityID, w.Locality)
	}
	return c.Normalize(out), nil
}
