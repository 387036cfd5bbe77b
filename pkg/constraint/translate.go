// Package constraint flattens filter expression trees into constraint maps.
//
// Only equality comparisons joined by conjunctions can be expressed as the
// remote API's path and query parameters, so every other shape is rejected
// before any request is built.
package constraint

import (
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Translate flattens expr into a ConstraintMap.
// A nil expression yields an empty map; a typed nil node anywhere in the tree
// is rejected. The input tree is not modified.
func Translate(expr core.Expression) (*core.ConstraintMap, error) {
	m := core.NewConstraintMap()
	if expr == nil {
		return m, nil
	}
	if err := add(expr, m); err != nil {
		return nil, err
	}
	return m, nil
}

func add(expr core.Expression, m *core.ConstraintMap) error {
	switch e := expr.(type) {
	case *core.Comparison:
		return addComparison(e, m)
	case *core.Logical:
		return addLogical(e, m)
	case nil:
		return &core.UnsupportedExpressionKindError{Kind: "nil"}
	default:
		return &core.UnsupportedExpressionKindError{Kind: expr.Kind()}
	}
}

func addLogical(e *core.Logical, m *core.ConstraintMap) error {
	if e == nil {
		return &core.UnsupportedExpressionKindError{Kind: "nil"}
	}
	if e.Operator != core.OpAnd {
		return &core.UnsupportedOperatorError{Operator: string(e.Operator)}
	}
	if err := add(e.Left, m); err != nil {
		return err
	}
	return add(e.Right, m)
}

func addComparison(e *core.Comparison, m *core.ConstraintMap) error {
	if e == nil {
		return &core.UnsupportedExpressionKindError{Kind: "nil"}
	}
	if e.Operator != core.OpEqual {
		return &core.UnsupportedOperatorError{Operator: string(e.Operator), Field: e.Field}
	}
	return m.Add(Key(e.Field), e.Value)
}

// Key strips an "entity." qualifier from a field name: "Person.id" -> "id".
func Key(field string) string {
	if i := strings.LastIndex(field, "."); i > -1 {
		return field[i+1:]
	}
	return field
}
