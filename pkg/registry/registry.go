// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func LoadCatalog(path string) (*LocalityCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat LocalityCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Index maps locality ids to the id of the city that contains them.
type Index struct {
	cityOf map[string]string
}

// NewIndex builds an Index. A locality listed under two cities keeps the
// first one.
func NewIndex(cat *LocalityCatalog) *Index {
	idx := &Index{cityOf: make(map[string]string)}
	if cat == nil {
		return idx
	}
	for _, c := range cat.Cities {
		for _, l := range c.Localities {
			if _, ok := idx.cityOf[l.ID]; !ok {
				idx.cityOf[l.ID] = c.ID
			}
		}
	}
	return idx
}

// CityOf returns the city owning localityID and whether it is known.
func (i *Index) CityOf(localityID string) (string, bool) {
	if i == nil {
		return "", false
	}
	city, ok := i.cityOf[localityID]
	return city, ok
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.cityOf)
}

// Validate checks that the catalog is usable for normalisation: every city
// and locality has an id, ids contain no comma and no locality id is listed
// twice.
func (c *LocalityCatalog) Validate() error {
	if len(c.Cities) == 0 {
		return fmt.Errorf("catalog contains no cities")
	}

	cities := make(map[string]bool)
	localities := make(map[string]string)
	for _, city := range c.Cities {
		if city.ID == "" {
			return fmt.Errorf("city %q missing required field: id", city.Name)
		}
		if cities[city.ID] {
			return fmt.Errorf("duplicate city ID: %s", city.ID)
		}
		cities[city.ID] = true

		for _, l := range city.Localities {
			if l.ID == "" {
				return fmt.Errorf("locality %q in city %s missing required field: id", l.Name, city.ID)
			}
			if strings.Contains(l.ID, ",") {
				return fmt.Errorf("locality ID %q contains a comma", l.ID)
			}
			if owner, ok := localities[l.ID]; ok {
				return fmt.Errorf("duplicate locality ID %s in cities %s and %s", l.ID, owner, city.ID)
			}
			localities[l.ID] = city.ID
		}
	}
	return nil
}
