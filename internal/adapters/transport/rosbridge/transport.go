package rosbridge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/kioskbridge/internal/adapters/transport"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/topics"
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

const Protocol = "rosbridge"

// Config captures the rosbridge websocket endpoint and topic details.
type Config struct {
	Port         int           `yaml:"port"`
	Path         string        `yaml:"path"`
	InboundTopic string        `yaml:"inbound_topic"`
	MessageType  string        `yaml:"message_type"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 9090
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.InboundTopic == "" {
		c.InboundTopic = "/video_key"
	}
	if c.MessageType == "" {
		c.MessageType = "std_msgs/Int32"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.InboundTopic == "" {
		return errors.New("inbound_topic is required")
	}
	if c.MessageType == "" {
		return errors.New("message_type is required")
	}
	return nil
}

// Transport speaks the rosbridge JSON envelope protocol over a websocket.
type Transport struct {
	cfg    Config
	obs    ports.Observability
	dialer *websocket.Dialer
}

func NewTransport(cfg Config, obs ports.Observability) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, errors.New("rosbridge: observability is required")
	}
	return &Transport{
		cfg:    cfg,
		obs:    obs,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
	}, nil
}

func (t *Transport) Protocol() string { return Protocol }

// Connect dials ws://host:port/path, subscribes to the inbound topic and
// starts the read loop.
func (t *Transport) Connect(ctx context.Context, host string, out ports.SignalSink) (ports.Connection, error) {
	addr, err := transport.ResolveHostPort(host, t.cfg.Port)
	if err != nil {
		return nil, &domain.ConnectError{Protocol: Protocol, Endpoint: host, Err: err}
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: t.cfg.Path}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	ws, resp, err := t.dialer.DialContext(dialCtx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &domain.ConnectError{Protocol: Protocol, Endpoint: u.String(), Err: err}
	}

	c := &conn{
		ws:       ws,
		cfg:      t.cfg,
		obs:      t.obs,
		endpoint: u.String(),
		done:     make(chan struct{}),
	}
	c.topics = topics.New(c.writeAdvertise)

	frame, err := subscribeFrame(t.cfg.InboundTopic, t.cfg.MessageType)
	if err == nil {
		err = c.writeFrame(frame)
	}
	if err != nil {
		_ = ws.Close()
		return nil, &domain.ConnectError{Protocol: Protocol, Endpoint: u.String(), Err: fmt.Errorf("subscribe %s: %w", t.cfg.InboundTopic, err)}
	}
	t.obs.LogInfo("rosbridge_subscribed",
		ports.Field{Key: "endpoint", Value: c.endpoint},
		ports.Field{Key: "topic", Value: t.cfg.InboundTopic})

	c.wg.Add(1)
	go c.readLoop(out)
	return c, nil
}

type conn struct {
	ws       *websocket.Conn
	cfg      Config
	obs      ports.Observability
	endpoint string
	topics   *topics.Registry

	writeMu sync.Mutex
	wg      sync.WaitGroup
	done    chan struct{}

	mu        sync.Mutex
	err       error
	closed    bool
	closeOnce sync.Once
}

func (c *conn) Send(channel string, value int32) error {
	if c.isClosed() {
		return domain.ErrConnectionClosed
	}
	if err := c.topics.Advertise(channel); err != nil {
		return fmt.Errorf("advertise %s: %w", channel, err)
	}
	frame, err := publishFrame(channel, value)
	if err != nil {
		return err
	}
	if err := c.writeFrame(frame); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	c.obs.LogDebug("rosbridge_published",
		ports.Field{Key: "topic", Value: channel},
		ports.Field{Key: "value", Value: value})
	return nil
}

func (c *conn) Done() <-chan struct{} { return c.done }

func (c *conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		deadline := time.Now().Add(c.cfg.WriteTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
	})
	c.wg.Wait()
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}

func (c *conn) readLoop(out ports.SignalSink) {
	defer c.wg.Done()
	defer close(c.done)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.err = err
			}
			c.mu.Unlock()
			return
		}

		key, reason, err := decodeDelivery(data, c.cfg.InboundTopic)
		if reason != "" {
			c.obs.RecordDroppedFrame(Protocol, reason, err)
			continue
		}
		out.Push(key)
	}
}

func (c *conn) writeAdvertise(channel string) error {
	frame, err := advertiseFrame(channel, c.cfg.MessageType)
	if err != nil {
		return err
	}
	if err := c.writeFrame(frame); err != nil {
		return err
	}
	c.obs.LogInfo("rosbridge_advertised", ports.Field{Key: "topic", Value: channel})
	return nil
}

func (c *conn) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ ports.Transport  = (*Transport)(nil)
	_ ports.Connection = (*conn)(nil)
)
