package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/leapstack-labs/leapconnect/pkg/mapping"
)

// recordFromMap converts decoded YAML or --set values into a canonical record
// following the entity's field rules.
func recordFromMap(def *entity.Definition, m map[string]any) (*core.Record, error) {
	return buildRecord(def.Name, "", def.Fields, m)
}

func buildRecord(entityName, prefix string, rules []core.FieldRule, m map[string]any) (*core.Record, error) {
	rec := core.NewRecord(entityName)
	for key, raw := range m {
		path := prefix + key
		rule, ok := findRule(rules, key)
		if !ok {
			return nil, fmt.Errorf("unknown field %q for %s", path, entityName)
		}
		v, err := fieldValue(entityName, path, rule, raw)
		if err != nil {
			return nil, err
		}
		rec.Set(key, v)
	}
	return rec, nil
}

func fieldValue(entityName, path string, rule core.FieldRule, raw any) (any, error) {
	switch rule.Type {
	case core.FieldDate:
		switch val := raw.(type) {
		case time.Time:
			return val, nil
		case string:
			t, err := mapping.ParseDate(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", path, err)
			}
			return t, nil
		default:
			return nil, fmt.Errorf("field %q: expected date, got %T", path, raw)
		}

	case core.FieldObject:
		nested, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected object, got %T", path, raw)
		}
		return buildRecord(entityName, path+".", rule.Fields, nested)

	case core.FieldList:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected list, got %T", path, raw)
		}
		list := make([]*core.Record, 0, len(items))
		for i, item := range items {
			im, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("field %s[%d]: expected object, got %T", path, i, item)
			}
			rec, err := buildRecord(entityName, fmt.Sprintf("%s[%d].", path, i), rule.Fields, im)
			if err != nil {
				return nil, err
			}
			list = append(list, rec)
		}
		return list, nil

	default:
		switch val := raw.(type) {
		case nil:
			return "", nil
		case string:
			return val, nil
		case map[string]any, []any:
			return nil, fmt.Errorf("field %q: expected scalar, got %T", path, raw)
		default:
			return fmt.Sprint(val), nil
		}
	}
}

func findRule(rules []core.FieldRule, name string) (core.FieldRule, bool) {
	for _, r := range rules {
		if r.Name == name {
			return r, true
		}
	}
	return core.FieldRule{}, false
}

// parseAssignments turns key=value arguments into a nested map. Dotted keys
// address nested objects: folder.id=7.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected field=value", arg)
		}

		parts := strings.Split(key, ".")
		m := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				if _, exists := m[part]; exists {
					return nil, fmt.Errorf("field %q is both a value and an object", part)
				}
				next = make(map[string]any)
				m[part] = next
			}
			m = next
		}
		last := parts[len(parts)-1]
		if _, exists := m[last]; exists {
			return nil, fmt.Errorf("field %q assigned twice", key)
		}
		m[last] = value
	}
	return out, nil
}
