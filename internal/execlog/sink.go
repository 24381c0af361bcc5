package execlog

import "context"

// Sink consumes batches of log entries. Implementations must be safe for
// repeated calls, honor ctx deadlines, and may be invoked concurrently with
// Close.
type Sink interface {
	Append(ctx context.Context, batch []Entry) error
	Close(ctx context.Context) error
}
