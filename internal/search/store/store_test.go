package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-search/internal/common/logger"
	"estate-search/internal/models"
	"estate-search/internal/search/codec"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	c := codec.New(logger.NewTestLogger(t))
	return New(models.Defaults(),
		WithNormalizer(c.Normalize),
		WithPatcher(c),
		WithLogger(logger.NewTestLogger(t)),
	)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := createTestStore(t)
	s.Update(func(f *models.FilterSet) {
		f.Bedrooms = []int{2}
		f.MinPrice = models.Float(100)
	})

	snap := s.Snapshot()
	snap.Bedrooms[0] = 9
	*snap.MinPrice = 1

	again := s.Snapshot()
	assert.Equal(t, []int{2}, again.Bedrooms)
	assert.Equal(t, 100.0, *again.MinPrice)
}

func TestReplace_DoesNotAliasInput(t *testing.T) {
	s := createTestStore(t)
	f := models.Defaults()
	f.City = []string{"Kolkata"}

	s.Replace(f)
	f.City[0] = "Mumbai"

	assert.Equal(t, []string{"Kolkata"}, s.Snapshot().City)
}

func TestMutations_NotifyInOrder(t *testing.T) {
	s := createTestStore(t)

	var calls []string
	var seen []models.FilterSet
	s.Subscribe(func(f models.FilterSet) {
		calls = append(calls, "first")
		seen = append(seen, f)
	})
	s.Subscribe(func(f models.FilterSet) { calls = append(calls, "second") })

	s.Update(func(f *models.FilterSet) { f.Page = 2 })
	s.Reset()

	assert.Equal(t, []string{"first", "second", "first", "second"}, calls)
	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[0].Page)
	assert.Equal(t, models.Defaults(), seen[1])
}

func TestUnsubscribe(t *testing.T) {
	s := createTestStore(t)

	count := 0
	unsubscribe := s.Subscribe(func(models.FilterSet) { count++ })

	s.Update(func(f *models.FilterSet) { f.Page = 2 })
	unsubscribe()
	unsubscribe()
	s.Update(func(f *models.FilterSet) { f.Page = 3 })

	assert.Equal(t, 1, count)
}

func TestUpdate_Normalizes(t *testing.T) {
	s := createTestStore(t)

	s.Update(func(f *models.FilterSet) {
		f.Page = 0
		f.MinPrice = models.Float(10)
		f.MaxPrice = models.Float(5)
	})

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 5.0, *snap.MinPrice)
	assert.Equal(t, 10.0, *snap.MaxPrice)
}

func TestUpdate_WellTypedValuesReachListeners(t *testing.T) {
	s := createTestStore(t)
	var seen []models.FilterSet
	s.Subscribe(func(f models.FilterSet) { seen = append(seen, f) })

	s.Update(func(f *models.FilterSet) {
		f.SortBy = "price-asc"
		f.Limit = 150
		f.Status = "UNDER_OFFER"
	})

	require.Len(t, seen, 1)
	assert.Equal(t, "price-asc", seen[0].SortBy)
	assert.Equal(t, 150, seen[0].Limit)
	assert.Equal(t, "UNDER_OFFER", seen[0].Status)
	assert.Equal(t, seen[0], s.Snapshot())
}

func TestPatch(t *testing.T) {
	s := createTestStore(t)
	notified := 0
	s.Subscribe(func(models.FilterSet) { notified++ })

	err := s.Patch(map[string]json.RawMessage{
		"minPrice": json.RawMessage(`5000000`),
		"bedrooms": json.RawMessage(`[2,3]`),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, s.Snapshot().Bedrooms)
	assert.Equal(t, 1, notified)

	err = s.Patch(map[string]json.RawMessage{"sortOrder": json.RawMessage(`"sideways"`)})
	assert.Error(t, err)
	assert.Equal(t, "AVAILABLE", s.Snapshot().Status)
	assert.Equal(t, 1, notified, "rejected patch must not notify")
}

func TestPatch_WithoutPatcher(t *testing.T) {
	s := New(models.Defaults())
	err := s.Patch(map[string]json.RawMessage{"page": json.RawMessage(`2`)})
	assert.ErrorIs(t, err, ErrNoPatcher)
}

func TestLocalities(t *testing.T) {
	s := createTestStore(t)
	s.Update(func(f *models.FilterSet) { f.Page = 4 })

	s.AddLocality(models.Locality{ID: "loc1", Name: "Salt Lake"})
	s.AddLocality(models.Locality{ID: "loc2", Name: "New Town"})
	assert.Equal(t, 1, s.Snapshot().Page)

	s.RemoveLocality("loc1")
	assert.Equal(t, []models.Locality{{ID: "loc2", Name: "New Town"}}, s.SelectedLocalities())

	wire := codec.Canonicalize(s.Snapshot())
	assert.Equal(t, "loc2", wire["localityId"])
	assert.Equal(t, []string{"New Town"}, wire["locality"])

	s.RemoveLocality("loc2")
	assert.Equal(t, []models.Locality{}, s.SelectedLocalities())
	assert.NotContains(t, codec.Canonicalize(s.Snapshot()), "localityId")
}
