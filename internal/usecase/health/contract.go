package health

import "context"

// Pinger checks that a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}
