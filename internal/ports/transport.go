package ports

import "context"

// SignalSink receives integer keys from a connection's read loop.
// Push must not block.
type SignalSink interface {
	Push(key int32)
}

// Transport dials one bridge connection at a time. Each received key is
// pushed into out, in arrival order, until the connection ends.
type Transport interface {
	Connect(ctx context.Context, host string, out SignalSink) (Connection, error)
	Protocol() string
}

// Connection is one live physical link to the bridge.
type Connection interface {
	Send(channel string, value int32) error
	// Done is closed once the read loop has stopped for any reason.
	Done() <-chan struct{}
	// Err reports why the read loop stopped; nil after a local Close.
	Err() error
	// Close tears down the link and blocks until the read loop has returned.
	Close() error
}

// Publisher emits outbound signals on a named channel.
type Publisher interface {
	Publish(channel string, value int32) error
}
