package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	commonhttp "estate-search/internal/common/http"
	"estate-search/internal/common/logger"
	"estate-search/internal/models"
)

// RESTSearcher calls GET <base>/properties on the listings API.
type RESTSearcher struct {
	client  *commonhttp.Client
	baseURL string
	logger  logger.Logger
}

func NewRESTSearcher(client *commonhttp.Client, baseURL string, log logger.Logger) *RESTSearcher {
	return &RESTSearcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithFields(map[string]interface{}{"backend": "rest"}),
	}
}

func (s *RESTSearcher) Search(ctx context.Context, f models.FilterSet) (*models.SearchResult, error) {
	endpoint := s.baseURL + "/properties?" + QueryParams(f).Encode()

	body, err := s.client.GetJSON(ctx, endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	var result models.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}
	if result.Data == nil {
		result.Data = []models.Property{}
	}

	s.logger.Debug("search completed", map[string]interface{}{
		"total": result.Pagination.Total,
		"page":  result.Pagination.Page,
	})
	return &result, nil
}
