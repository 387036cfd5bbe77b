// Package entity provides entity type definitions and the registry the
// dispatcher routes operations through.
//
// Entity implementations live in pkg/entities/ subdirectories and add their
// definitions to the built-in catalog from init():
//
//	import _ "github.com/leapstack-labs/leapconnect/pkg/entities/person"
package entity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Definition describes one entity type of the remote API: its field rules,
// its path conventions and the operations it supports.
type Definition struct {
	// Name is the entity type name used by the integration engine.
	Name string

	// Description is shown by the entities command.
	Description string

	// Fields are the top-level field rules.
	Fields []core.FieldRule

	// CollectionPath is the path template of the collection, relative to the
	// base URL. Placeholders: {customerId}.
	CollectionPath string

	// IdentifierField is the constraint key whose value becomes the item path
	// segment: <CollectionPath>/<id>.
	IdentifierField string

	// IdentifierAliases are alternative constraint keys for the identifier.
	IdentifierAliases []string

	// OutputField receives the locator returned by create operations.
	OutputField string

	// Operations lists the supported operation kinds.
	Operations []core.OperationKind
}

// Field returns the top-level rule named name.
func (d *Definition) Field(name string) (core.FieldRule, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return core.FieldRule{}, false
}

// Supports reports whether the entity type accepts the operation kind.
// CreateWith is treated as Create.
func (d *Definition) Supports(kind core.OperationKind) bool {
	return slices.Contains(d.Operations, kind.Normalize())
}

// IsIdentifier reports whether a constraint key addresses the identifier.
func (d *Definition) IsIdentifier(key string) bool {
	if d.IdentifierField == "" {
		return false
	}
	return key == d.IdentifierField || slices.Contains(d.IdentifierAliases, key)
}

// ItemPath returns the documented item path template.
func (d *Definition) ItemPath() string {
	if d.IdentifierField == "" {
		return ""
	}
	return d.CollectionPath + "/{" + d.IdentifierField + "}"
}

// Validate checks that the definition is internally consistent.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity name not specified")
	}
	if !strings.HasPrefix(d.CollectionPath, "/") {
		return fmt.Errorf("entity %s: collection path must start with '/'", d.Name)
	}
	if len(d.Operations) == 0 {
		return fmt.Errorf("entity %s: no operations declared", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s: field without name", d.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("entity %s: duplicate field %s", d.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if d.IdentifierField != "" {
		f, ok := d.Field(d.IdentifierField)
		if !ok || !f.UsableInQueryConstraint {
			return fmt.Errorf("entity %s: identifier %s must be a query constraint field", d.Name, d.IdentifierField)
		}
	}
	if d.OutputField != "" {
		f, ok := d.Field(d.OutputField)
		if !ok || !f.UsableInActionOutput {
			return fmt.Errorf("entity %s: output field %s must be an action output field", d.Name, d.OutputField)
		}
	}
	return nil
}
