package dispatch

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Entry describes one request sent to the remote API.
type Entry struct {
	ConnectionID string
	EntityType   string
	Operation    core.OperationKind
	Method       string
	URL          string
	Status       int
	Err          error
	Duration     time.Duration
	StartedAt    time.Time
}

// Journal records dispatched requests. Implementations must be safe for
// concurrent use.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}
