package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"estate-search/internal/common/logger"
	"estate-search/internal/models"
)

// ElasticsearchSearcher queries a property index directly.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchSearcher(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchSearcher {
	return &ElasticsearchSearcher{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"backend": "elasticsearch", "index": index}),
	}
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source models.Property `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSearcher) Search(ctx context.Context, f models.FilterSet) (*models.SearchResult, error) {
	body, err := json.Marshal(BuildQuery(f))
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index:          []string{s.index},
		Body:           bytes.NewReader(body),
		TrackTotalHits: true,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrElasticsearchConnectionFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var r esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	data := make([]models.Property, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		p := hit.Source
		if p.ID == "" {
			p.ID = hit.ID
		}
		data = append(data, p)
	}

	s.logger.Debug("search completed", map[string]interface{}{
		"total": r.Hits.Total.Value,
		"hits":  len(data),
	})

	return &models.SearchResult{
		Data:       data,
		Pagination: models.NewPagination(f.Page, f.Limit, r.Hits.Total.Value),
	}, nil
}

// BuildQuery translates f into an Elasticsearch search body. Free text goes
// into a must clause; every other dimension is a non-scoring filter.
func BuildQuery(f models.FilterSet) map[string]interface{} {
	var must []interface{}
	filter := []interface{}{}

	if f.Search != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  f.Search,
				"fields": []string{"title^3", "description", "locality", "city"},
				"type":   "best_fields",
			},
		})
	}

	term := func(field string, value interface{}) {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}
	terms := func(field string, values interface{}) {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{field: values},
		})
	}

	if f.Status != "" {
		term("status", f.Status)
	}
	if f.PropertyType != "" {
		term("propertyType", f.PropertyType)
	}
	if f.Purpose != "" {
		term("purpose", f.Purpose)
	}
	if f.PossessionStatus != "" {
		term("possessionStatus", f.PossessionStatus)
	}
	if f.CityID != "" {
		term("cityId", f.CityID)
	}
	if len(f.City) > 0 {
		terms("city", f.City)
	}
	if len(f.Localities) > 0 {
		ids := make([]string, len(f.Localities))
		for i, l := range f.Localities {
			ids[i] = l.ID
		}
		terms("localityId", ids)
	}
	if len(f.Bedrooms) > 0 {
		terms("bedrooms", f.Bedrooms)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		r := map[string]interface{}{}
		if f.MinPrice != nil {
			r["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			r["lte"] = *f.MaxPrice
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"price": r},
		})
	}
	if f.Verified != nil {
		term("verified", *f.Verified)
	}
	if f.HasBalcony != nil {
		term("hasBalcony", *f.HasBalcony)
	}
	if f.Featured != nil {
		term("featured", *f.Featured)
	}

	boolQuery := map[string]interface{}{"filter": filter}
	if len(must) > 0 {
		boolQuery["must"] = must
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = models.DefaultPage
	}
	if limit < 1 {
		limit = models.DefaultLimit
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"from":  (page - 1) * limit,
		"size":  limit,
		"sort": []interface{}{
			map[string]interface{}{f.SortBy: map[string]interface{}{"order": f.SortOrder}},
		},
	}
}
