package codec

import (
	"encoding/json"

	"estate-search/internal/models"
	"estate-search/internal/search/locality"
)

// wireFilters is the JSON shape of a reduced filter object. Numbers are read
// as float64 so integral values written as 2.0 are still accepted.
type wireFilters struct {
	Page             *float64  `json:"page,omitempty"`
	Limit            *float64  `json:"limit,omitempty"`
	Status           string    `json:"status,omitempty"`
	SortBy           string    `json:"sortBy,omitempty"`
	SortOrder        string    `json:"sortOrder,omitempty"`
	PropertyType     string    `json:"propertyType,omitempty"`
	Purpose          string    `json:"purpose,omitempty"`
	MinPrice         *float64  `json:"minPrice,omitempty"`
	MaxPrice         *float64  `json:"maxPrice,omitempty"`
	Bedrooms         []float64 `json:"bedrooms,omitempty"`
	CityID           string    `json:"cityId,omitempty"`
	City             []string  `json:"city,omitempty"`
	LocalityID       string    `json:"localityId,omitempty"`
	Locality         []string  `json:"locality,omitempty"`
	Verified         *bool     `json:"verified,omitempty"`
	PossessionStatus string    `json:"possessionStatus,omitempty"`
	HasBalcony       *bool     `json:"hasBalcony,omitempty"`
	Search           string    `json:"search,omitempty"`
	Featured         *bool     `json:"featured,omitempty"`
}

var defaultWire = map[string]interface{}{
	models.KeyPage:      models.DefaultPage,
	models.KeyLimit:     models.DefaultLimit,
	models.KeyStatus:    models.DefaultStatus,
	models.KeySortBy:    models.DefaultSortBy,
	models.KeySortOrder: models.DefaultSortOrder,
}

// ToWire returns the full wire object of f, defaults included. The locality
// pairs are fanned out into localityId and locality.
func ToWire(f models.FilterSet) map[string]interface{} {
	w := map[string]interface{}{
		models.KeyPage:      f.Page,
		models.KeyLimit:     f.Limit,
		models.KeyStatus:    f.Status,
		models.KeySortBy:    f.SortBy,
		models.KeySortOrder: f.SortOrder,
	}
	setString(w, models.KeyPropertyType, f.PropertyType)
	setString(w, models.KeyPurpose, f.Purpose)
	setString(w, models.KeyCityID, f.CityID)
	setString(w, models.KeyPossessionStatus, f.PossessionStatus)
	setString(w, models.KeySearch, f.Search)
	if f.MinPrice != nil {
		w[models.KeyMinPrice] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		w[models.KeyMaxPrice] = *f.MaxPrice
	}
	if len(f.Bedrooms) > 0 {
		w[models.KeyBedrooms] = append([]int(nil), f.Bedrooms...)
	}
	if len(f.City) > 0 {
		w[models.KeyCity] = append([]string(nil), f.City...)
	}
	if ids, names := locality.Unzip(f.Localities); ids != "" {
		w[models.KeyLocalityID] = ids
		w[models.KeyLocality] = names
	}
	if f.Verified != nil {
		w[models.KeyVerified] = *f.Verified
	}
	if f.HasBalcony != nil {
		w[models.KeyHasBalcony] = *f.HasBalcony
	}
	if f.Featured != nil {
		w[models.KeyFeatured] = *f.Featured
	}
	return w
}

func setString(w map[string]interface{}, key, v string) {
	if v != "" {
		w[key] = v
	}
}

// Reduce drops every entry of a wire object that is empty or equal to its
// default. Reduce(Reduce(w)) equals Reduce(w).
func Reduce(wire map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(wire))
	for k, v := range wire {
		if isEmpty(v) {
			continue
		}
		if d, ok := defaultWire[k]; ok && sameValue(d, v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Canonicalize returns the reduced wire object of f: only the dimensions that
// differ from the defaults.
func Canonicalize(f models.FilterSet) map[string]interface{} {
	return Reduce(ToWire(f))
}

// FillDefaults merges a reduced wire object over the defaults. Values of the
// wrong type are ignored.
func FillDefaults(wire map[string]interface{}) models.FilterSet {
	data, err := json.Marshal(wire)
	if err != nil {
		return models.Defaults()
	}
	var w wireFilters
	_ = json.Unmarshal(data, &w)
	f, _ := fromWire(w)
	return f
}

// fromWire builds a FilterSet from parsed wire values. mismatch reports that
// the locality id and name lists had different lengths and were truncated.
func fromWire(w wireFilters) (f models.FilterSet, mismatch bool) {
	f = models.Defaults()
	if w.Page != nil {
		f.Page = int(*w.Page)
	}
	if w.Limit != nil {
		f.Limit = int(*w.Limit)
	}
	if w.Status != "" {
		f.Status = w.Status
	}
	if w.SortBy != "" {
		f.SortBy = w.SortBy
	}
	if w.SortOrder != "" {
		f.SortOrder = w.SortOrder
	}
	f.PropertyType = w.PropertyType
	f.Purpose = w.Purpose
	f.MinPrice = w.MinPrice
	f.MaxPrice = w.MaxPrice
	if len(w.Bedrooms) > 0 {
		f.Bedrooms = make([]int, len(w.Bedrooms))
		for i, b := range w.Bedrooms {
			f.Bedrooms[i] = int(b)
		}
	}
	f.CityID = w.CityID
	if len(w.City) > 0 {
		f.City = w.City
	}
	f.Localities, mismatch = locality.Zip(w.LocalityID, w.Locality)
	f.Verified = w.Verified
	f.PossessionStatus = w.PossessionStatus
	f.HasBalcony = w.HasBalcony
	f.Search = w.Search
	f.Featured = w.Featured
	return f, mismatch
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []int:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

func sameValue(a, b interface{}) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	return aStr && bStr && as == bs
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
