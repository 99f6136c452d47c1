package query

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonhttp "estate-search/internal/common/http"
	"estate-search/internal/common/logger"
	"estate-search/internal/models"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/store"
)

func sampleFilters() models.FilterSet {
	f := models.Defaults()
	f.MinPrice = models.Float(5000000)
	f.MaxPrice = models.Float(10000000)
	f.Bedrooms = []int{2, 3}
	f.Localities = []models.Locality{{ID: "loc1", Name: "Salt Lake"}, {ID: "loc2", Name: "New Town"}}
	f.Verified = models.Bool(true)
	return f
}

func sampleResult() *models.SearchResult {
	return &models.SearchResult{
		Data:       []models.Property{{ID: "p1", Title: "2 BHK in Salt Lake", Price: 7500000}},
		Pagination: models.NewPagination(1, 20, 1),
	}
}

// fakeSearcher counts calls and returns a fixed outcome.
type fakeSearcher struct {
	calls  atomic.Int32
	result *models.SearchResult
	err    error
	delay  time.Duration
	last   models.FilterSet
}

func (f *fakeSearcher) Search(ctx context.Context, filters models.FilterSet) (*models.SearchResult, error) {
	f.calls.Add(1)
	f.last = filters
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func TestQueryParams(t *testing.T) {
	v := QueryParams(sampleFilters())

	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "20", v.Get("limit"))
	assert.Equal(t, "AVAILABLE", v.Get("status"))
	assert.Equal(t, "5000000", v.Get("minPrice"))
	assert.Equal(t, []string{"2", "3"}, v["bedrooms"])
	assert.Equal(t, "loc1,loc2", v.Get("localityId"))
	assert.Equal(t, []string{"Salt Lake", "New Town"}, v["locality"])
	assert.Equal(t, "true", v.Get("verified"))
	assert.NotContains(t, v, "purpose")
	assert.NotContains(t, v, "featured")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "SEARCH_TIMEOUT", ErrorCode(ErrSearchTimeout))
	assert.Equal(t, "SEARCH_TIMEOUT", ErrorCode(context.DeadlineExceeded))
	assert.Equal(t, "SEARCH_QUERY_FAILED", ErrorCode(errors.Join(ErrSearchQueryFailed, errors.New("boom"))))
	assert.Equal(t, "ELASTICSEARCH_CONNECTION_FAILED", ErrorCode(ErrElasticsearchConnectionFailed))
	assert.Equal(t, "UNKNOWN_ERROR", ErrorCode(errors.New("other")))
}

func TestRESTSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties", r.URL.Path)
		assert.Equal(t, "loc1,loc2", r.URL.Query().Get("localityId"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleResult())
	}))
	defer srv.Close()

	s := NewRESTSearcher(commonhttp.NewClient(time.Second), srv.URL+"/api/", logger.NewTestLogger(t))
	result, err := s.Search(context.Background(), sampleFilters())

	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "p1", result.Data[0].ID)
	assert.Equal(t, 1, result.Pagination.TotalPages)
}

func TestRESTSearcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "upstream error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ErrSearchQueryFailed,
		},
		{
			name: "bad body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
			wantErr: ErrSearchQueryFailed,
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			wantErr: ErrSearchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			s := NewRESTSearcher(commonhttp.NewClient(5*time.Second), srv.URL, logger.NewTestLogger(t))
			_, err := s.Search(ctx, models.Defaults())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func newTestElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchSearcher_Search(t *testing.T) {
	bodies := make(chan []byte, 1)
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/_search", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		bodies <- raw
		w.Write([]byte(`{
			"took": 3,
			"hits": {
				"total": {"value": 41, "relation": "eq"},
				"hits": [
					{"_id": "p1", "_source": {"title": "2 BHK in Salt Lake", "price": 7500000}},
					{"_id": "p2", "_source": {"id": "custom", "title": "3 BHK in New Town", "price": 9000000}}
				]
			}
		}`))
	})

	f := sampleFilters()
	f.Page = 2
	s := NewElasticsearchSearcher(client, "properties", logger.NewTestLogger(t))
	result, err := s.Search(context.Background(), f)

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "p1", result.Data[0].ID)
	assert.Equal(t, "custom", result.Data[1].ID)
	assert.Equal(t, models.Pagination{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, result.Pagination)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(<-bodies, &body))
	assert.Equal(t, 20.0, body["from"])
	assert.Equal(t, 20.0, body["size"])
}

func TestElasticsearchSearcher_ErrorStatus(t *testing.T) {
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"parsing_exception"}}`))
	})

	s := NewElasticsearchSearcher(client, "properties", logger.NewTestLogger(t))
	_, err := s.Search(context.Background(), models.Defaults())
	assert.ErrorIs(t, err, ErrSearchQueryFailed)
}

func TestBuildQuery(t *testing.T) {
	f := sampleFilters()
	f.Search = "lake view"
	f.SortBy = "price"
	f.SortOrder = "asc"

	q := BuildQuery(f)

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)

	filter := boolQuery["filter"].([]interface{})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"status": "AVAILABLE"}})
	assert.Contains(t, filter, map[string]interface{}{"terms": map[string]interface{}{"localityId": []string{"loc1", "loc2"}}})
	assert.Contains(t, filter, map[string]interface{}{"terms": map[string]interface{}{"bedrooms": []int{2, 3}}})
	assert.Contains(t, filter, map[string]interface{}{"range": map[string]interface{}{
		"price": map[string]interface{}{"gte": 5000000.0, "lte": 10000000.0},
	}})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"verified": true}})

	assert.Equal(t, []interface{}{map[string]interface{}{"price": map[string]interface{}{"order": "asc"}}}, q["sort"])
	assert.Equal(t, 0, q["from"])
}

func TestBuildQuery_DefaultsHaveNoMust(t *testing.T) {
	q := BuildQuery(models.Defaults())
	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "must")
	assert.Len(t, boolQuery["filter"], 1)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedSearcher_ReadThrough(t *testing.T) {
	mr, rdb := setupRedis(t)
	c := codec.New(logger.NewNoOpLogger())
	next := &fakeSearcher{result: sampleResult()}
	cached := NewCachedSearcher(next, rdb, c.Encode, time.Minute, logger.NewTestLogger(t))

	f := sampleFilters()
	first, err := cached.Search(context.Background(), f)
	require.NoError(t, err)
	second, err := cached.Search(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, first, second)

	key := "search:" + c.Encode(f)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	_, err = cached.Search(context.Background(), models.Defaults())
	require.NoError(t, err)
	assert.True(t, mr.Exists("search:default"))
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedSearcher_CorruptEntry(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := &fakeSearcher{result: sampleResult()}
	cached := NewCachedSearcher(next, rdb, func(models.FilterSet) string { return "" }, time.Minute, logger.NewTestLogger(t))

	require.NoError(t, mr.Set("search:default", "{not json"))

	result, err := cached.Search(context.Background(), models.Defaults())
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), result)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachedSearcher_UnencodableFiltersSkipCache(t *testing.T) {
	mr, rdb := setupRedis(t)
	c := codec.New(logger.NewNoOpLogger())
	next := &fakeSearcher{result: sampleResult()}
	cached := NewCachedSearcher(next, rdb, c.Encode, time.Minute, logger.NewTestLogger(t))

	stale, err := json.Marshal(&models.SearchResult{Data: []models.Property{{ID: "default-listing"}}})
	require.NoError(t, err)
	require.NoError(t, mr.Set("search:default", string(stale)))

	f := models.Defaults()
	f.MinPrice = models.Float(math.NaN())
	_, ok := cached.CacheKey(f)
	assert.False(t, ok)

	result, err := cached.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), result)
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, []string{"search:default"}, mr.Keys())

	key, ok := cached.CacheKey(models.Defaults())
	assert.True(t, ok)
	assert.Equal(t, "search:default", key)
}

func TestCachedSearcher_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &fakeSearcher{result: sampleResult()}
	cached := NewCachedSearcher(next, rdb, func(models.FilterSet) string { return "tok" }, time.Minute, logger.NewTestLogger(t))

	data, err := json.Marshal(sampleResult())
	require.NoError(t, err)
	mock.ExpectGet("search:tok").SetErr(errors.New("connection refused"))
	mock.ExpectSet("search:tok", data, time.Minute).SetErr(errors.New("connection refused"))

	result, err := cached.Search(context.Background(), models.Defaults())
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSearcher_BackendErrorNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &fakeSearcher{err: ErrSearchQueryFailed}
	cached := NewCachedSearcher(next, rdb, func(models.FilterSet) string { return "tok" }, time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet("search:tok").RedisNil()

	_, err := cached.Search(context.Background(), models.Defaults())
	assert.ErrorIs(t, err, ErrSearchQueryFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumer_RunsOnEveryMutation(t *testing.T) {
	s := store.New(models.Defaults())
	next := &fakeSearcher{result: sampleResult()}
	consumer := NewConsumer(&Config{Backend: "fake", Timeout: time.Second}, next, nil, logger.NewTestLogger(t))

	_, ok := consumer.Latest()
	assert.False(t, ok)

	detach := consumer.Attach(s)
	s.Update(func(f *models.FilterSet) { f.Purpose = "RENT" })
	s.Update(func(f *models.FilterSet) { f.Purpose = "SALE" })

	assert.Equal(t, 2, consumer.Runs())
	latest, ok := consumer.Latest()
	require.True(t, ok)
	assert.Equal(t, "SALE", latest.Filters.Purpose)
	assert.Equal(t, sampleResult(), latest.Result)
	assert.NoError(t, latest.Err)

	detach()
	s.Update(func(f *models.FilterSet) { f.Page = 2 })
	assert.Equal(t, 2, consumer.Runs())
}

func TestConsumer_Timeout(t *testing.T) {
	next := &fakeSearcher{result: sampleResult(), delay: time.Second}
	consumer := NewConsumer(&Config{Backend: "fake", Timeout: 20 * time.Millisecond}, next, nil, logger.NewTestLogger(t))

	out := consumer.Run(context.Background(), models.Defaults())

	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Nil(t, out.Result)
	assert.Equal(t, "SEARCH_TIMEOUT", ErrorCode(out.Err))
}
