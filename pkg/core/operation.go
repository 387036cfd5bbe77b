package core

import "strings"

// OperationKind names what the engine asks the adapter to do.
type OperationKind string

// Operation kinds. Update and Delete are recognised but not implemented.
const (
	OperationQuery      OperationKind = "Query"
	OperationCreate     OperationKind = "Create"
	OperationCreateWith OperationKind = "CreateWith"
	OperationUpdate     OperationKind = "Update"
	OperationDelete     OperationKind = "Delete"
)

// ParseOperationKind matches an operation name case-insensitively.
// Returns the kind and true if the name is known.
func ParseOperationKind(s string) (OperationKind, bool) {
	for _, k := range []OperationKind{OperationQuery, OperationCreate, OperationCreateWith, OperationUpdate, OperationDelete} {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return OperationKind(s), false
}

// Normalize folds aliases onto their canonical kind.
func (k OperationKind) Normalize() OperationKind {
	if k == OperationCreateWith {
		return OperationCreate
	}
	return k
}

// OperationResult reports the outcome of a create operation.
type OperationResult struct {
	Success         bool
	ObjectsAffected int
	Output          []*Record
}
