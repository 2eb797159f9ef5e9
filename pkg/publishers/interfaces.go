package publishers

import "context"

// Publisher sends events to a downstream sink (SQS, HTTP webhook).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
