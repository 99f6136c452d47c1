// internal/models/filter.go
package models

// Canonical defaults. A FilterSet equal to these with every optional
// dimension absent is the empty search and carries no URL token.
const (
	DefaultPage      = 1
	DefaultLimit     = 20
	DefaultStatus    = "AVAILABLE"
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
)

// Wire keys of the filter dimensions.
const (
	KeyPage             = "page"
	KeyLimit            = "limit"
	KeyStatus           = "status"
	KeySortBy           = "sortBy"
	KeySortOrder        = "sortOrder"
	KeyPropertyType     = "propertyType"
	KeyPurpose          = "purpose"
	KeyMinPrice         = "minPrice"
	KeyMaxPrice         = "maxPrice"
	KeyBedrooms         = "bedrooms"
	KeyCityID           = "cityId"
	KeyCity             = "city"
	KeyLocalityID       = "localityId"
	KeyLocality         = "locality"
	KeyVerified         = "verified"
	KeyPossessionStatus = "possessionStatus"
	KeyHasBalcony       = "hasBalcony"
	KeySearch           = "search"
	KeyFeatured         = "featured"
)

// Locality is one selected locality: its id and display name.
type Locality struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FilterSet is the typed set of active search constraints. Optional
// dimensions are absent when they hold their zero value ("" for strings,
// nil for pointers and slices).
//
// Localities are kept as id/name pairs; they are split into the
// localityId/locality wire fields only when the set is serialized.
type FilterSet struct {
	Page      int
	Limit     int
	Status    string
	SortBy    string
	SortOrder string

	PropertyType     string
	Purpose          string
	MinPrice         *float64
	MaxPrice         *float64
	Bedrooms         []int
	CityID           string
	City             []string
	Localities       []Locality
	Verified         *bool
	PossessionStatus string
	HasBalcony       *bool
	Search           string
	Featured         *bool
}

// Defaults returns a FilterSet holding only the canonical defaults.
func Defaults() FilterSet {
	return FilterSet{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		Status:    DefaultStatus,
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
	}
}

// Clone returns a deep copy so callers can never alias the owner's slices
// or pointers.
func (f FilterSet) Clone() FilterSet {
	out := f
	out.MinPrice = cloneFloat(f.MinPrice)
	out.MaxPrice = cloneFloat(f.MaxPrice)
	out.Verified = cloneBool(f.Verified)
	out.HasBalcony = cloneBool(f.HasBalcony)
	out.Featured = cloneBool(f.Featured)
	if f.Bedrooms != nil {
		out.Bedrooms = append([]int(nil), f.Bedrooms...)
	}
	if f.City != nil {
		out.City = append([]string(nil), f.City...)
	}
	if f.Localities != nil {
		out.Localities = append([]Locality(nil), f.Localities...)
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for optional numeric dimensions.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for optional boolean dimensions.
func Bool(v bool) *bool { return &v }

// SortOrders are the allowed values of sortOrder.
var SortOrders = []string{"asc", "desc"}
