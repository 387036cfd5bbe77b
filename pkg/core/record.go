package core

import (
	"sort"
	"time"
)

// Record is the canonical, transport-agnostic representation of a domain object
// exchanged with the integration engine.
//
// Property values are one of:
//   - string
//   - time.Time (date-typed fields)
//   - *Record (nested object)
//   - []*Record (ordered sequence of nested objects)
type Record struct {
	EntityName string
	Properties map[string]any
}

// NewRecord creates an empty record for the given entity type.
func NewRecord(entityName string) *Record {
	return &Record{
		EntityName: entityName,
		Properties: make(map[string]any),
	}
}

// Set stores a property value and returns the record for chaining.
func (r *Record) Set(name string, value any) *Record {
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.Properties[name] = value
	return r
}

// Get returns the raw property value.
func (r *Record) Get(name string) (any, bool) {
	if r == nil || r.Properties == nil {
		return nil, false
	}
	v, ok := r.Properties[name]
	return v, ok
}

// Text returns a string property, or "" when it is absent or not a string.
func (r *Record) Text(name string) string {
	v, _ := r.Get(name)
	s, _ := v.(string)
	return s
}

// Time returns a date property.
func (r *Record) Time(name string) (time.Time, bool) {
	v, _ := r.Get(name)
	t, ok := v.(time.Time)
	return t, ok
}

// Object returns a nested record property.
func (r *Record) Object(name string) *Record {
	v, _ := r.Get(name)
	o, _ := v.(*Record)
	return o
}

// List returns a nested record sequence property.
func (r *Record) List(name string) []*Record {
	v, _ := r.Get(name)
	l, _ := v.([]*Record)
	return l
}

// Names returns the property names in sorted order.
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Properties))
	for name := range r.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmptyValue reports whether a property value counts as absent.
// Empty strings, zero times, nil records and empty sequences are all empty.
func IsEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case time.Time:
		return val.IsZero()
	case *Record:
		return val == nil || len(val.Properties) == 0
	case []*Record:
		return len(val) == 0
	default:
		return false
	}
}
