package codec

import (
	"strings"

	"estate-search/internal/models"
	"estate-search/pkg/registry"
)

// Normalize restores the FilterSet invariants and resolves dimensions that
// contradict each other. Individually well-typed values pass through as
// given.
//
//   - page below 1 becomes 1; a non-positive limit becomes the default
//   - empty status and sortBy, and a sortOrder other than asc/desc, take
//     their defaults
//   - non-positive bedroom counts are dropped; an empty list is absent
//   - minPrice > maxPrice is swapped
//   - localities without an id, or whose id contains a comma, are dropped;
//     with a catalog and a cityId, so are localities of another city
//
// Normalize returns f unchanged when it already satisfies these rules.
func Normalize(f models.FilterSet, catalog *registry.Index) models.FilterSet {
	out := f.Clone()

	if out.Page < 1 {
		out.Page = models.DefaultPage
	}
	if out.Limit <= 0 {
		out.Limit = models.DefaultLimit
	}

	if out.Status == "" {
		out.Status = models.DefaultStatus
	}
	if out.SortBy == "" {
		out.SortBy = models.DefaultSortBy
	}
	if !oneOf(out.SortOrder, models.SortOrders) {
		out.SortOrder = models.DefaultSortOrder
	}

	out.Bedrooms = positive(out.Bedrooms)

	if out.MinPrice != nil && out.MaxPrice != nil && *out.MinPrice > *out.MaxPrice {
		out.MinPrice, out.MaxPrice = out.MaxPrice, out.MinPrice
	}

	out.Localities = consistentLocalities(out.Localities, out.CityID, catalog)
	return out
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func positive(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	var out []int
	for _, b := range in {
		if b > 0 {
			out = append(out, b)
		}
	}
	return out
}

func consistentLocalities(in []models.Locality, cityID string, catalog *registry.Index) []models.Locality {
	var out []models.Locality
	for _, l := range in {
		if l.ID == "" || strings.Contains(l.ID, ",") {
			continue
		}
		if cityID != "" {
			if owner, ok := catalog.CityOf(l.ID); ok && owner != cityID {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}
