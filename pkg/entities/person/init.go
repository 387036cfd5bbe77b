package person

import "github.com/leapstack-labs/leapconnect/pkg/entity"

func init() {
	entity.Register(Definition())
}
