package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitySet(t *testing.T) {
	s := NewEntitySet("b", "a", "", "b")

	assert.Len(t, s, 2)
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has(""))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}

func TestHierarchy_Link(t *testing.T) {
	h := NewHierarchy(DimState, DimCounty)
	h.Link("Bayern", "SK München")
	h.Link("Bayern", "LK Dachau")
	h.Link("Berlin", "")
	h.Link("", "orphan")

	assert.Equal(t, []string{"LK Dachau", "SK München"}, h.Children("Bayern"))
	assert.Empty(t, h.Children("Berlin"))
	assert.Contains(t, h.Members, "Berlin")
	assert.Len(t, h.Members, 2)
}

func TestDiscovery_MergeIsOrderIndependent(t *testing.T) {
	a := NewDiscovery()
	a.Add(DimCountry, "US")
	a.Hierarchy(DimCountry, DimState).Link("US", "New York")

	b := NewDiscovery()
	b.Add(DimCountry, "US")
	b.Add(DimCountry, "Canada")
	b.Hierarchy(DimCountry, DimState).Link("US", "Washington")
	b.Hierarchy(DimState, DimCounty).Link("Washington", "King")

	ab := NewDiscovery()
	ab.Merge(a)
	ab.Merge(b)

	ba := NewDiscovery()
	ba.Merge(b)
	ba.Merge(a)

	assert.Equal(t, ab.Set(DimCountry), ba.Set(DimCountry))
	for _, d := range []Discovery{ab, ba} {
		h, ok := d.Lookup(DimCountry, DimState)
		require.True(t, ok)
		assert.Equal(t, []string{"New York", "Washington"}, h.Children("US"))

		h, ok = d.Lookup(DimState, DimCounty)
		require.True(t, ok)
		assert.Equal(t, []string{"King"}, h.Children("Washington"))
	}
}

func TestDiscovery_SetMissingDimension(t *testing.T) {
	d := NewDiscovery()
	assert.Empty(t, d.Set(DimCounty))
	_, ok := d.Lookup(DimState, DimCounty)
	assert.False(t, ok)
}
