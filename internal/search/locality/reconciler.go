// Package locality keeps the selected-locality list consistent. Selections
// are held as id/name pairs and only split into the comma-joined id field
// and the parallel name list when they cross the wire.
package locality

import (
	"strings"

	"estate-search/internal/models"
)

// Add appends pair to the selection and resets the page to 1. Adding an id
// that is already selected only resets the page.
func Add(f *models.FilterSet, pair models.Locality) {
	f.Page = models.DefaultPage
	if pair.ID == "" {
		return
	}
	for _, l := range f.Localities {
		if l.ID == pair.ID {
			return
		}
	}
	f.Localities = append(f.Localities, pair)
}

// Remove drops every pair with the given id. An empty selection becomes nil
// so the dimension is absent on the wire.
func Remove(f *models.FilterSet, id string) {
	if len(f.Localities) == 0 {
		return
	}
	kept := make([]models.Locality, 0, len(f.Localities))
	for _, l := range f.Localities {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	f.Localities = kept
}

// Read returns a copy of the selection for display.
func Read(f models.FilterSet) []models.Locality {
	if len(f.Localities) == 0 {
		return []models.Locality{}
	}
	return append([]models.Locality(nil), f.Localities...)
}

// Zip pairs the comma-joined id field with the name list by index. Extra
// entries on the longer side are dropped; mismatch reports whether that
// happened.
func Zip(idField string, names []string) (pairs []models.Locality, mismatch bool) {
	var ids []string
	if idField != "" {
		ids = strings.Split(idField, ",")
	}
	n := len(ids)
	if len(names) < n {
		n = len(names)
	}
	mismatch = len(ids) != len(names)
	if n == 0 {
		return nil, mismatch
	}
	pairs = make([]models.Locality, n)
	for i := 0; i < n; i++ {
		pairs[i] = models.Locality{ID: ids[i], Name: names[i]}
	}
	return pairs, mismatch
}

// Unzip fans the pairs out into the wire form.
func Unzip(pairs []models.Locality) (idField string, names []string) {
	if len(pairs) == 0 {
		return "", nil
	}
	ids := make([]string, len(pairs))
	names = make([]string, len(pairs))
	for i, p := range pairs {
		ids[i] = p.ID
		names[i] = p.Name
	}
	return strings.Join(ids, ","), names
}
