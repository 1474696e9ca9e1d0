package domain

import "sort"

// EntitySet is a set of entity identifiers.
type EntitySet map[string]struct{}

// NewEntitySet builds a set from ids.
func NewEntitySet(ids ...string) EntitySet {
	s := make(EntitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id unless it is empty.
func (s EntitySet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

func (s EntitySet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s EntitySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Hierarchy maps each parent entity to the set of child entities seen under it.
type Hierarchy struct {
	Parent  Dimension
	Child   Dimension
	Members map[string]EntitySet
}

// NewHierarchy returns an empty parent→child mapping.
func NewHierarchy(parent, child Dimension) *Hierarchy {
	return &Hierarchy{Parent: parent, Child: child, Members: make(map[string]EntitySet)}
}

// Link records child under parent. An empty child only registers the parent.
func (h *Hierarchy) Link(parent, child string) {
	if parent == "" {
		return
	}
	set, ok := h.Members[parent]
	if !ok {
		set = make(EntitySet)
		h.Members[parent] = set
	}
	set.Add(child)
}

// Children returns the sorted children of parent.
func (h *Hierarchy) Children(parent string) []string {
	return h.Members[parent].Sorted()
}

// Discovery is what a reader learned about the entities in its input while
// scanning rows: distinct identifiers per dimension, parent/child links, and
// optional display labels for identifiers.
type Discovery struct {
	Entities    map[Dimension]EntitySet
	Hierarchies []*Hierarchy
	Labels      map[string]string
}

// NewDiscovery returns an empty Discovery.
func NewDiscovery() Discovery {
	return Discovery{
		Entities: make(map[Dimension]EntitySet),
		Labels:   make(map[string]string),
	}
}

// Add records id under dim.
func (d *Discovery) Add(dim Dimension, id string) {
	set, ok := d.Entities[dim]
	if !ok {
		set = make(EntitySet)
		d.Entities[dim] = set
	}
	set.Add(id)
}

// Set returns the entity set for dim, empty when nothing was discovered.
func (d Discovery) Set(dim Dimension) EntitySet {
	if set, ok := d.Entities[dim]; ok {
		return set
	}
	return EntitySet{}
}

// Hierarchy returns the parent→child mapping for the given pair, creating it
// on first use.
func (d *Discovery) Hierarchy(parent, child Dimension) *Hierarchy {
	for _, h := range d.Hierarchies {
		if h.Parent == parent && h.Child == child {
			return h
		}
	}
	h := NewHierarchy(parent, child)
	d.Hierarchies = append(d.Hierarchies, h)
	return h
}

// Lookup returns the hierarchy for the pair without creating it.
func (d Discovery) Lookup(parent, child Dimension) (*Hierarchy, bool) {
	for _, h := range d.Hierarchies {
		if h.Parent == parent && h.Child == child {
			return h, true
		}
	}
	return nil, false
}

// Merge folds other into d. Every part is a set union, so the result does not
// depend on the order in which discoveries are merged.
func (d *Discovery) Merge(other Discovery) {
	if d.Entities == nil {
		d.Entities = make(map[Dimension]EntitySet)
	}
	if d.Labels == nil {
		d.Labels = make(map[string]string)
	}
	for dim, set := range other.Entities {
		for id := range set {
			d.Add(dim, id)
		}
	}
	for _, oh := range other.Hierarchies {
		h := d.Hierarchy(oh.Parent, oh.Child)
		for parent, children := range oh.Members {
			h.Link(parent, "")
			for child := range children {
				h.Link(parent, child)
			}
		}
	}
	for id, label := range other.Labels {
		d.Labels[id] = label
	}
}
