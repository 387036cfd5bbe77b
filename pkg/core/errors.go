package core

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Stages
// =============================================================================

// Stage identifies which part of the pipeline produced an error.
type Stage string

// Pipeline stages.
const (
	StageConfig    Stage = "config"
	StageTranslate Stage = "translate"
	StageMap       Stage = "map"
	StageBuild     Stage = "build"
	StageDispatch  Stage = "dispatch"
	StageTransport Stage = "transport"
)

// StagedError is implemented by every error in the taxonomy.
type StagedError interface {
	error
	Stage() Stage
}

// StageOf returns the stage of the first StagedError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se StagedError
	if errors.As(err, &se) {
		return se.Stage(), true
	}
	return "", false
}

// ErrNotConnected is returned when an operation runs before Connect succeeded.
var ErrNotConnected = errors.New("must connect before executing operations")

// =============================================================================
// Error types
// =============================================================================

// InvalidConfigurationError is returned when a connection field is missing or empty.
type InvalidConfigurationError struct {
	Field  string
	Label  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Reason != "" {
		return "invalid connection configuration: " + e.Reason
	}
	return fmt.Sprintf("A value is required for '%s'", e.Label)
}

// Stage implements StagedError.
func (e *InvalidConfigurationError) Stage() Stage { return StageConfig }

// UnsupportedExpressionKindError is returned for filter nodes that are neither
// comparisons nor logical expressions.
type UnsupportedExpressionKindError struct {
	Kind ExpressionKind
}

func (e *UnsupportedExpressionKindError) Error() string {
	return fmt.Sprintf("unsupported filter type: %s", e.Kind)
}

// Stage implements StagedError.
func (e *UnsupportedExpressionKindError) Stage() Stage { return StageTranslate }

// UnsupportedOperatorError is returned for any operator other than equality
// or conjunction. Field is empty for logical operators.
type UnsupportedOperatorError struct {
	Operator string
	Field    string
}

func (e *UnsupportedOperatorError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unsupported operator in filter: %s", e.Operator)
	}
	return fmt.Sprintf("unsupported operator %s on field %q: only Equal is supported", e.Operator, e.Field)
}

// Stage implements StagedError.
func (e *UnsupportedOperatorError) Stage() Stage { return StageTranslate }

// DuplicateConstraintKeyError is returned when two filter leaves resolve to
// the same field.
type DuplicateConstraintKeyError struct {
	Key      string
	Existing string
	Value    string
}

func (e *DuplicateConstraintKeyError) Error() string {
	return fmt.Sprintf("duplicate filter field %q (values %q and %q)", e.Key, e.Existing, e.Value)
}

// Stage implements StagedError.
func (e *DuplicateConstraintKeyError) Stage() Stage { return StageTranslate }

// UnsupportedEntityTypeError is returned when no entity type is registered
// under the requested name.
type UnsupportedEntityTypeError struct {
	EntityType string
	Operation  OperationKind
	Available  []string
}

func (e *UnsupportedEntityTypeError) Error() string {
	msg := fmt.Sprintf("the %s entity is not supported", e.EntityType)
	if e.Operation != "" {
		msg += fmt.Sprintf(" for %s", e.Operation)
	}
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// Stage implements StagedError.
func (e *UnsupportedEntityTypeError) Stage() Stage { return StageDispatch }

// UnsupportedOperationError is returned for operation kinds that are not
// implemented, or not enabled for the entity type.
type UnsupportedOperationError struct {
	EntityType string
	Operation  OperationKind
}

func (e *UnsupportedOperationError) Error() string {
	if e.EntityType == "" {
		return fmt.Sprintf("unsupported operation: %s", e.Operation)
	}
	return fmt.Sprintf("unsupported operation %s for entity %s", e.Operation, e.EntityType)
}

// Stage implements StagedError.
func (e *UnsupportedOperationError) Stage() Stage { return StageDispatch }

// MappingError is returned when a canonical record cannot be mapped to or from
// the wire model.
type MappingError struct {
	EntityType string
	Field      string
	Reason     string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("error mapping %s field %q: %s", e.EntityType, e.Field, e.Reason)
}

// Stage implements StagedError.
func (e *MappingError) Stage() Stage { return StageMap }

// BuildError is returned when a request cannot be assembled from an entity's
// path template.
type BuildError struct {
	EntityType string
	Reason     string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("error building request for %s: %s", e.EntityType, e.Reason)
}

// Stage implements StagedError.
func (e *BuildError) Stage() Stage { return StageBuild }

// RemoteRequestError wraps a transport failure with entity context.
// It is never retried by the dispatcher.
type RemoteRequestError struct {
	EntityType string
	Operation  OperationKind
	Status     int
	Err        error
}

func (e *RemoteRequestError) Error() string {
	verb := "query"
	if e.Operation.Normalize() == OperationCreate {
		verb = "create"
	}
	if e.Status != 0 {
		return fmt.Sprintf("error on %s for %s (status %d): %v", verb, e.EntityType, e.Status, e.Err)
	}
	return fmt.Sprintf("error on %s for %s: %v", verb, e.EntityType, e.Err)
}

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// Stage implements StagedError.
func (e *RemoteRequestError) Stage() Stage { return StageTransport }
