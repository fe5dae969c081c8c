package queue

import "context"

// Client delivers pipeline trigger messages to a queue backend. Send
// must not block beyond the context; triggers run on request paths.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
