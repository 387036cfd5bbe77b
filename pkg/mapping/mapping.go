// Package mapping converts between canonical records and the wire model sent
// to and received from the remote API.
//
// The mapping is driven entirely by an entity's field rules. It is structural:
// beyond required-field presence there is no business validation.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
)

// Wire is the JSON-equivalent model of one entity instance.
type Wire = map[string]any

// ToWire maps a canonical record to the wire model for an action.
// Only fields usable in action input are copied; empty values are omitted.
// A required field that is absent or empty fails with MappingError.
func ToWire(def *entity.Definition, rec *core.Record) (Wire, error) {
	if rec == nil {
		return nil, &core.MappingError{EntityType: def.Name, Reason: "record is nil"}
	}
	return toWire(def.Name, "", def.Fields, rec)
}

func toWire(entityName, prefix string, rules []core.FieldRule, rec *core.Record) (Wire, error) {
	out := make(Wire)
	for _, rule := range rules {
		if !rule.UsableInActionInput {
			continue
		}
		path := prefix + rule.Name
		v, _ := rec.Get(rule.Name)
		if core.IsEmptyValue(v) {
			if rule.RequiredInActionInput {
				return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: "required field is missing"}
			}
			continue
		}

		wv, err := valueToWire(entityName, path, rule, v)
		if err != nil {
			return nil, err
		}
		if wv == nil {
			if rule.RequiredInActionInput {
				return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: "required field is missing"}
			}
			continue
		}
		out[rule.Name] = wv
	}
	return out, nil
}

func valueToWire(entityName, path string, rule core.FieldRule, v any) (any, error) {
	switch rule.Type {
	case core.FieldDate:
		t, err := asTime(v)
		if err != nil {
			return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: err.Error()}
		}
		return FormatDate(t), nil

	case core.FieldObject:
		nested, ok := v.(*core.Record)
		if !ok {
			return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: fmt.Sprintf("expected object, got %T", v)}
		}
		w, err := toWire(entityName, path+".", rule.Fields, nested)
		if err != nil {
			return nil, err
		}
		if len(w) == 0 {
			return nil, nil
		}
		return w, nil

	case core.FieldList:
		items, ok := v.([]*core.Record)
		if !ok {
			return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: fmt.Sprintf("expected list, got %T", v)}
		}
		list := make([]any, 0, len(items))
		for i, item := range items {
			if item == nil {
				continue
			}
			w, err := toWire(entityName, fmt.Sprintf("%s[%d].", path, i), rule.Fields, item)
			if err != nil {
				return nil, err
			}
			if len(w) > 0 {
				list = append(list, w)
			}
		}
		if len(list) == 0 {
			return nil, nil
		}
		return list, nil

	default:
		s, ok := v.(string)
		if !ok {
			return nil, &core.MappingError{EntityType: entityName, Field: path, Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		return s, nil
	}
}

// FromWire maps a wire payload to a canonical record. Fields usable in action
// output or query select are copied; fields absent from the payload stay absent.
func FromWire(def *entity.Definition, w Wire) (*core.Record, error) {
	rec := core.NewRecord(def.Name)
	if err := fromWire(def.Name, "", def.Fields, w, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func fromWire(entityName, prefix string, rules []core.FieldRule, w Wire, rec *core.Record) error {
	for _, rule := range rules {
		if !rule.Readable() {
			continue
		}
		raw, ok := w[rule.Name]
		if !ok || raw == nil {
			continue
		}
		path := prefix + rule.Name

		switch rule.Type {
		case core.FieldDate:
			s, err := scalarString(raw)
			if err != nil {
				return &core.MappingError{EntityType: entityName, Field: path, Reason: err.Error()}
			}
			if s == "" {
				continue
			}
			t, err := ParseDate(s)
			if err != nil {
				return &core.MappingError{EntityType: entityName, Field: path, Reason: err.Error()}
			}
			rec.Set(rule.Name, t)

		case core.FieldObject:
			m, ok := raw.(map[string]any)
			if !ok {
				return &core.MappingError{EntityType: entityName, Field: path, Reason: fmt.Sprintf("expected object, got %T", raw)}
			}
			nested := core.NewRecord(rule.Name)
			if err := fromWire(entityName, path+".", rule.Fields, m, nested); err != nil {
				return err
			}
			rec.Set(rule.Name, nested)

		case core.FieldList:
			items, ok := raw.([]any)
			if !ok {
				return &core.MappingError{EntityType: entityName, Field: path, Reason: fmt.Sprintf("expected list, got %T", raw)}
			}
			list := make([]*core.Record, 0, len(items))
			for i, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					return &core.MappingError{EntityType: entityName, Field: fmt.Sprintf("%s[%d]", path, i), Reason: fmt.Sprintf("expected object, got %T", item)}
				}
				nested := core.NewRecord(rule.Name)
				if err := fromWire(entityName, fmt.Sprintf("%s[%d].", path, i), rule.Fields, m, nested); err != nil {
					return err
				}
				list = append(list, nested)
			}
			rec.Set(rule.Name, list)

		default:
			s, err := scalarString(raw)
			if err != nil {
				return &core.MappingError{EntityType: entityName, Field: path, Reason: err.Error()}
			}
			rec.Set(rule.Name, s)
		}
	}
	return nil
}

// scalarString renders JSON scalars as strings.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("expected scalar, got %T", v)
	}
}

func asTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return ParseDate(val)
	default:
		return time.Time{}, fmt.Errorf("expected date, got %T", v)
	}
}

// FormatDate renders t in the wire date format, in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(core.DateLayout)
}

// ParseDate parses the wire date format, falling back to RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(core.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// Marshal renders a wire model as an indented JSON body.
func Marshal(w Wire) ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}

// Decode parses a response body into wire models. A JSON object yields one
// model, a JSON array yields one per element. An empty body yields none.
func Decode(body []byte) ([]Wire, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	switch body[0] {
	case '{':
		var w Wire
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("failed to decode response object: %w", err)
		}
		return []Wire{w}, nil
	case '[':
		var ws []Wire
		if err := dec.Decode(&ws); err != nil {
			return nil, fmt.Errorf("failed to decode response array: %w", err)
		}
		return ws, nil
	default:
		return nil, fmt.Errorf("response is not a JSON object or array")
	}
}
