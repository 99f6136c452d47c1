package validation

// FilterSchema describes the wire form of a FilterSet: the reduced object
// carried inside a token and the body of filter patches. Keys absent from
// the document take their default. Only types and the page, limit,
// sortOrder and bedroom invariants are checked; value ranges belong to the
// search backend.
const FilterSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "page":             {"type": "integer", "minimum": 1},
    "limit":            {"type": "integer", "minimum": 1},
    "status":           {"type": "string"},
    "sortBy":           {"type": "string"},
    "sortOrder":        {"type": "string", "enum": ["asc", "desc"]},
    "propertyType":     {"type": "string"},
    "purpose":          {"type": "string"},
    "minPrice":         {"type": "number"},
    "maxPrice":         {"type": "number"},
    "bedrooms":         {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 1}},
    "cityId":           {"type": "string"},
    "city":             {"type": "array", "items": {"type": "string"}},
    "localityId":       {"type": "string"},
    "locality":         {"type": "array", "items": {"type": "string"}},
    "verified":         {"type": "boolean"},
    "possessionStatus": {"type": "string"},
    "hasBalcony":       {"type": "boolean"},
    "search":           {"type": "string"},
    "featured":         {"type": "boolean"}
  }
}`

var filterSchema = MustCompile(FilterSchema)

// Filters returns the compiled FilterSchema.
func Filters() *Schema {
	return filterSchema
}
