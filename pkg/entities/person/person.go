// Package person defines the Person entity of the iCIMS people API.
//
// Paths, relative to the connection's base URL:
//
//	collection: /customers/{customerId}/people
//	item:       /customers/{customerId}/people/{id}
//
// The identifier is supplied as the "id" query constraint ("peopleId" is
// accepted too). Create posts to the collection and stores the returned
// Location in the "location" output field.
package person

import (
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
)

// Name is the entity type name.
const Name = "Person"

// Field names.
const (
	FieldID        = "id"
	FieldFirstName = "firstname"
	FieldLastName  = "lastname"
	FieldEmail     = "email"
	FieldFolder    = "folder"
	FieldLinks     = "links"
	FieldLocation  = "location"
)

// Definition returns a fresh Person definition.
func Definition() *entity.Definition {
	return &entity.Definition{
		Name:        Name,
		Description: "A person record (candidate, contact or employee)",
		Fields: []core.FieldRule{
			core.Field(FieldFirstName),
			core.ObjectField(FieldFolder,
				core.Field("id"),
				core.Field("formattedvalue"),
				core.Field("value"),
			),
			core.ListField(FieldLinks,
				core.Field("rel"),
				core.Field("title"),
				core.Field("url"),
			),
			core.Field(FieldEmail),
			core.Field(FieldLastName),
			core.Field(FieldID).ConstraintOnly(),
			core.Field(FieldLocation).OutputOnly(),
		},
		CollectionPath:    "/customers/{customerId}/people",
		IdentifierField:   FieldID,
		IdentifierAliases: []string{"peopleId"},
		OutputField:       FieldLocation,
		Operations:        []core.OperationKind{core.OperationQuery, core.OperationCreate},
	}
}
