package directory

import (
	"context"
	"errors"
)

// ErrUnknownHandle marks a handle with no registered user behind it.
var ErrUnknownHandle = errors.New("directory: unknown handle")

// Resolver maps public handles to stable participant ids. Session records
// always store the id, never the handle.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (string, error)
}
