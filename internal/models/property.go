// internal/models/property.go
package models

import "time"

// Property is one listing as returned by the remote search. The search
// subsystem passes it through without interpreting it.
type Property struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Price            float64   `json:"price"`
	PropertyType     string    `json:"propertyType,omitempty"`
	Purpose          string    `json:"purpose,omitempty"`
	Status           string    `json:"status,omitempty"`
	Bedrooms         int       `json:"bedrooms,omitempty"`
	CityID           string    `json:"cityId,omitempty"`
	City             string    `json:"city,omitempty"`
	LocalityID       string    `json:"localityId,omitempty"`
	Locality         string    `json:"locality,omitempty"`
	Verified         bool      `json:"verified"`
	Featured         bool      `json:"featured"`
	HasBalcony       bool      `json:"hasBalcony"`
	PossessionStatus string    `json:"possessionStatus,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Pagination describes the page of a SearchResult.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// SearchResult is the paginated response of the remote search.
type SearchResult struct {
	Data       []Property `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes TotalPages from total and limit.
func NewPagination(page, limit, total int) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}
