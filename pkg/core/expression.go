package core

// =============================================================================
// Filter expressions
// =============================================================================

// ExpressionKind tags the variant of a filter expression node.
type ExpressionKind string

// Expression kinds the integration engine can send.
const (
	ExpressionComparison ExpressionKind = "comparison"
	ExpressionLogical    ExpressionKind = "logical"
)

// ComparisonOperator is the operator of a Comparison node.
type ComparisonOperator string

// Comparison operators. Only OpEqual is translated into request constraints;
// the rest exist so they can be rejected with a typed error.
const (
	OpEqual          ComparisonOperator = "Equal"
	OpNotEqual       ComparisonOperator = "NotEqual"
	OpLess           ComparisonOperator = "Less"
	OpLessOrEqual    ComparisonOperator = "LessOrEqual"
	OpGreater        ComparisonOperator = "Greater"
	OpGreaterOrEqual ComparisonOperator = "GreaterOrEqual"
	OpLike           ComparisonOperator = "Like"
	OpIsNull         ComparisonOperator = "IsNull"
	OpIsNotNull      ComparisonOperator = "IsNotNull"
)

// LogicalOperator is the operator of a Logical node.
type LogicalOperator string

// Logical operators. Only OpAnd is translated.
const (
	OpAnd LogicalOperator = "And"
	OpOr  LogicalOperator = "Or"
)

// Expression is a node of a filter expression tree.
// A nil Expression means "no filter".
type Expression interface {
	Kind() ExpressionKind
}

// Comparison compares a (possibly entity-qualified) field against a value.
type Comparison struct {
	Field    string
	Operator ComparisonOperator
	Value    string
}

// Kind implements Expression.
func (*Comparison) Kind() ExpressionKind { return ExpressionComparison }

// Logical combines two sub-expressions.
type Logical struct {
	Operator LogicalOperator
	Left     Expression
	Right    Expression
}

// Kind implements Expression.
func (*Logical) Kind() ExpressionKind { return ExpressionLogical }

// Eq is shorthand for an equality comparison.
func Eq(field, value string) *Comparison {
	return &Comparison{Field: field, Operator: OpEqual, Value: value}
}

// And folds the given expressions into a left-deep conjunction.
// It returns nil for no expressions and the expression itself for one.
func And(exprs ...Expression) Expression {
	var out Expression
	for _, e := range exprs {
		if out == nil {
			out = e
			continue
		}
		out = &Logical{Operator: OpAnd, Left: out, Right: e}
	}
	return out
}
