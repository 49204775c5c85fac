package line

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/kioskbridge/internal/adapters/transport"
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

const Protocol = "line"

// MaxLineBytes bounds one inbound line. Longer lines are discarded up to the
// next newline and the connection stays open.
const MaxLineBytes = 64 * 1024

// Reasons reported when an inbound line is dropped.
const (
	ReasonEmptyLine   = "empty_line"
	ReasonNonInteger  = "non_integer_line"
	ReasonLineTooLong = "line_too_long"
)

type Config struct {
	Port         int           `yaml:"port"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5000
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
	return nil
}

// Transport exchanges newline terminated decimal integers over TCP. There is
// no topic concept on the wire, so Send ignores its channel argument.
type Transport struct {
	cfg Config
	obs ports.Observability
}

func NewTransport(cfg Config, obs ports.Observability) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, errors.New("line: observability is required")
	}
	return &Transport{cfg: cfg, obs: obs}, nil
}

func (t *Transport) Protocol() string { return Protocol }

func (t *Transport) Connect(ctx context.Context, host string, out ports.SignalSink) (ports.Connection, error) {
	addr, err := transport.ResolveHostPort(host, t.cfg.Port)
	if err != nil {
		return nil, &domain.ConnectError{Protocol: Protocol, Endpoint: host, Err: err}
	}

	d := net.Dialer{Timeout: t.cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &domain.ConnectError{Protocol: Protocol, Endpoint: addr, Err: err}
	}

	c := &conn{
		nc:   nc,
		w:    bufio.NewWriter(nc),
		cfg:  t.cfg,
		obs:  t.obs,
		done: make(chan struct{}),
	}
	t.obs.LogInfo("line_connected", ports.Field{Key: "endpoint", Value: addr})

	c.wg.Add(1)
	go c.readLoop(out)
	return c, nil
}

type conn struct {
	nc  net.Conn
	cfg Config
	obs ports.Observability

	writeMu sync.Mutex
	w       *bufio.Writer

	wg   sync.WaitGroup
	done chan struct{}

	mu        sync.Mutex
	err       error
	closed    bool
	closeOnce sync.Once
}

func (c *conn) Send(_ string, value int32) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return domain.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if _, err := c.w.WriteString(strconv.FormatInt(int64(value), 10) + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
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
		err = c.nc.Close()
	})
	c.wg.Wait()
	return err
}

func (c *conn) readLoop(out ports.SignalSink) {
	defer c.wg.Done()
	defer close(c.done)

	r := bufio.NewReaderSize(c.nc, MaxLineBytes)
	var err error
	for {
		var line []byte
		line, err = r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			c.obs.RecordDroppedFrame(Protocol, ReasonLineTooLong, fmt.Errorf("line exceeds %d bytes", MaxLineBytes))
			if err = skipLine(r); err != nil {
				break
			}
			continue
		}
		if err == nil || (errors.Is(err, io.EOF) && len(line) > 0) {
			c.handleLine(line, out)
		}
		if err != nil {
			break
		}
	}

	if errors.Is(err, io.EOF) {
		err = domain.ErrConnectionClosed
	}
	c.mu.Lock()
	if !c.closed {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *conn) handleLine(line []byte, out ports.SignalSink) {
	text := strings.TrimSpace(string(line))
	if text == "" {
		c.obs.RecordDroppedFrame(Protocol, ReasonEmptyLine, nil)
		return
	}
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		c.obs.RecordDroppedFrame(Protocol, ReasonNonInteger, err)
		return
	}
	out.Push(int32(v))
}

// skipLine consumes input up to and including the next newline.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

var (
	_ ports.Transport  = (*Transport)(nil)
	_ ports.Connection = (*conn)(nil)
)
