package kioskbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ghalamif/kioskbridge/internal/adapters/resolver"
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

const LoopbackProtocol = "loopback"

// LoopbackTransport is an in-process bridge. Keys passed to Inject reach the
// runtime exactly as if they arrived over the wire, and outbound signals are
// handed to the onSend callback. Useful for tests, demos and embedding the
// orchestrator behind a bus the caller already owns.
type LoopbackTransport struct {
	onSend func(channel string, value int32)

	mu   sync.Mutex
	conn *loopbackConn
}

// NewLoopbackTransport returns a transport whose outbound signals are passed
// to onSend. onSend may be nil.
func NewLoopbackTransport(onSend func(channel string, value int32)) *LoopbackTransport {
	return &LoopbackTransport{onSend: onSend}
}

func (t *LoopbackTransport) Protocol() string { return LoopbackProtocol }

// Connect accepts any non-blank host and replaces the current connection.
func (t *LoopbackTransport) Connect(ctx context.Context, host string, out ports.SignalSink) (ports.Connection, error) {
	if strings.TrimSpace(host) == "" {
		return nil, &domain.ConnectError{
			Protocol: LoopbackProtocol,
			Endpoint: host,
			Err:      fmt.Errorf("%w: blank host", domain.ErrInvalidEndpoint),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.ConnectError{Protocol: LoopbackProtocol, Endpoint: host, Err: err}
	}

	c := &loopbackConn{
		transport: t,
		out:       out,
		done:      make(chan struct{}),
	}
	t.mu.Lock()
	prev := t.conn
	t.conn = c
	t.mu.Unlock()
	if prev != nil {
		prev.end(nil)
	}
	return c, nil
}

// Inject delivers key through the live connection.
func (t *LoopbackTransport) Inject(key int32) error {
	c := t.current()
	if c == nil {
		return domain.ErrNotConnected
	}
	return c.deliver(key)
}

// Drop ends the live connection as if the peer went away with err.
func (t *LoopbackTransport) Drop(err error) {
	if err == nil {
		err = domain.ErrConnectionClosed
	}
	if c := t.current(); c != nil {
		c.end(err)
	}
}

// Connected reports whether a connection is open.
func (t *LoopbackTransport) Connected() bool {
	return t.current() != nil
}

func (t *LoopbackTransport) current() *loopbackConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || t.conn.isDone() {
		return nil
	}
	return t.conn
}

type loopbackConn struct {
	transport *LoopbackTransport
	out       ports.SignalSink
	done      chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func (c *loopbackConn) Send(channel string, value int32) error {
	if c.isDone() {
		return domain.ErrConnectionClosed
	}
	if fn := c.transport.onSend; fn != nil {
		fn(channel, value)
	}
	return nil
}

func (c *loopbackConn) Done() <-chan struct{} { return c.done }

func (c *loopbackConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *loopbackConn) Close() error {
	c.end(nil)
	return nil
}

func (c *loopbackConn) deliver(key int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectionClosed
	}
	c.out.Push(key)
	return nil
}

func (c *loopbackConn) end(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}

func (c *loopbackConn) isDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MemResolver is an in-memory catalog that can be swapped at runtime.
type MemResolver = resolver.MemResolver

// NewMemResolver builds a catalog from entries. The last entry for a key wins.
func NewMemResolver(entries ...ResolvedEntry) *MemResolver {
	return resolver.NewMemResolver(entries...)
}

var (
	_ ports.Transport  = (*LoopbackTransport)(nil)
	_ ports.Connection = (*loopbackConn)(nil)
)
