package core

// FieldType describes how a field is represented on the wire.
type FieldType string

// Field types.
const (
	FieldString FieldType = "string"
	FieldDate   FieldType = "date"
	FieldObject FieldType = "object"
	FieldList   FieldType = "list"
)

// DateLayout is the timestamp format agreed with the remote API for date fields.
const DateLayout = "2006-01-02T15:04:05.000Z"

// FieldRule describes how one field of an entity type may be used.
// Rules are declared once per entity type and never change afterwards.
type FieldRule struct {
	Name string
	Type FieldType

	UsableInQueryConstraint bool
	UsableInQuerySelect     bool
	UsableInActionInput     bool
	UsableInActionOutput    bool
	RequiredInActionInput   bool

	// Fields describes the element shape of object and list fields.
	Fields []FieldRule
}

// Field returns a string field with the engine's default usage: usable
// everywhere, not required.
func Field(name string) FieldRule {
	return FieldRule{
		Name:                    name,
		Type:                    FieldString,
		UsableInQueryConstraint: true,
		UsableInQuerySelect:     true,
		UsableInActionInput:     true,
		UsableInActionOutput:    true,
	}
}

// DateField returns a date field with default usage.
func DateField(name string) FieldRule {
	f := Field(name)
	f.Type = FieldDate
	return f
}

// ObjectField returns a nested object field with default usage.
func ObjectField(name string, fields ...FieldRule) FieldRule {
	f := Field(name)
	f.Type = FieldObject
	f.Fields = fields
	return f
}

// ListField returns a nested sequence field with default usage.
func ListField(name string, fields ...FieldRule) FieldRule {
	f := Field(name)
	f.Type = FieldList
	f.Fields = fields
	return f
}

// Required marks the field as required on action input.
func (f FieldRule) Required() FieldRule {
	f.RequiredInActionInput = true
	return f
}

// ConstraintOnly restricts the field to query constraints.
func (f FieldRule) ConstraintOnly() FieldRule {
	f.UsableInQueryConstraint = true
	f.UsableInQuerySelect = false
	f.UsableInActionInput = false
	f.UsableInActionOutput = false
	f.RequiredInActionInput = false
	return f
}

// OutputOnly restricts the field to query results and action output.
func (f FieldRule) OutputOnly() FieldRule {
	f.UsableInQueryConstraint = false
	f.UsableInActionInput = false
	f.RequiredInActionInput = false
	return f
}

// Readable reports whether the field is copied from wire payloads.
func (f FieldRule) Readable() bool {
	return f.UsableInActionOutput || f.UsableInQuerySelect
}
