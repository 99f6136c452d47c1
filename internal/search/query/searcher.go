// Package query runs the remote property search for a FilterSet.
package query

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"estate-search/internal/models"
	"estate-search/internal/search/locality"
)

var (
	ErrSearchQueryFailed             = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = errors.New("SEARCH_TIMEOUT")
	ErrElasticsearchConnectionFailed = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
)

// Searcher executes a search. The FilterSet is passed through as is.
type Searcher interface {
	Search(ctx context.Context, f models.FilterSet) (*models.SearchResult, error)
}

// ErrorCode maps a search error to its code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSearchTimeout), errors.Is(err, context.DeadlineExceeded):
		return "SEARCH_TIMEOUT"
	case errors.Is(err, ErrElasticsearchConnectionFailed):
		return "ELASTICSEARCH_CONNECTION_FAILED"
	case errors.Is(err, ErrSearchQueryFailed):
		return "SEARCH_QUERY_FAILED"
	}
	return "UNKNOWN_ERROR"
}

// QueryParams renders f as URL query parameters using the wire keys. List
// dimensions repeat their key.
func QueryParams(f models.FilterSet) url.Values {
	v := url.Values{}
	v.Set(models.KeyPage, strconv.Itoa(f.Page))
	v.Set(models.KeyLimit, strconv.Itoa(f.Limit))
	v.Set(models.KeyStatus, f.Status)
	v.Set(models.KeySortBy, f.SortBy)
	v.Set(models.KeySortOrder, f.SortOrder)

	setIf(v, models.KeyPropertyType, f.PropertyType)
	setIf(v, models.KeyPurpose, f.Purpose)
	setIf(v, models.KeyCityID, f.CityID)
	setIf(v, models.KeyPossessionStatus, f.PossessionStatus)
	setIf(v, models.KeySearch, f.Search)

	if f.MinPrice != nil {
		v.Set(models.KeyMinPrice, formatFloat(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		v.Set(models.KeyMaxPrice, formatFloat(*f.MaxPrice))
	}
	for _, b := range f.Bedrooms {
		v.Add(models.KeyBedrooms, strconv.Itoa(b))
	}
	for _, c := range f.City {
		v.Add(models.KeyCity, c)
	}
	if ids, names := locality.Unzip(f.Localities); ids != "" {
		v.Set(models.KeyLocalityID, ids)
		for _, n := range names {
			v.Add(models.KeyLocality, n)
		}
	}
	setBool(v, models.KeyVerified, f.Verified)
	setBool(v, models.KeyHasBalcony, f.HasBalcony)
	setBool(v, models.KeyFeatured, f.Featured)
	return v
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setBool(v url.Values, key string, b *bool) {
	if b != nil {
		v.Set(key, strconv.FormatBool(*b))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
