// pkg/registry/schema.go
package registry

// LocalityCatalog lists the cities the search knows about and the
// localities inside each of them.
type LocalityCatalog struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Cities      []City `json:"cities"`
}

type City struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Localities []Locality `json:"localities"`
}

type Locality struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
