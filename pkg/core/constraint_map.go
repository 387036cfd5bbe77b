package core

import (
	"net/url"
	"strings"
)

// ConstraintMap is the flat set of equality constraints derived from a filter
// expression. Keys are bare field names and are unique; insertion order is kept.
type ConstraintMap struct {
	keys   []string
	values map[string]string
}

// NewConstraintMap creates an empty constraint map.
func NewConstraintMap() *ConstraintMap {
	return &ConstraintMap{values: make(map[string]string)}
}

// Add inserts a constraint. Adding an existing key fails with
// DuplicateConstraintKeyError and leaves the map unchanged.
func (m *ConstraintMap) Add(key, value string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if existing, ok := m.values[key]; ok {
		return &DuplicateConstraintKeyError{Key: key, Existing: existing, Value: value}
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return nil
}

// Get returns the value for key.
func (m *ConstraintMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Remove deletes key and returns its value.
func (m *ConstraintMap) Remove(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	if !ok {
		return "", false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (m *ConstraintMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of constraints.
func (m *ConstraintMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an independent copy.
func (m *ConstraintMap) Clone() *ConstraintMap {
	c := NewConstraintMap()
	if m == nil {
		return c
	}
	for _, k := range m.keys {
		c.keys = append(c.keys, k)
		c.values[k] = m.values[k]
	}
	return c
}

// Values converts the constraints into URL query parameters.
func (m *ConstraintMap) Values() url.Values {
	q := url.Values{}
	if m == nil {
		return q
	}
	for _, k := range m.keys {
		q.Set(k, m.values[k])
	}
	return q
}

// String renders the constraints as key=value pairs in insertion order.
func (m *ConstraintMap) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, k+"="+m.values[k])
	}
	return strings.Join(parts, ",")
}
