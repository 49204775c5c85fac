package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/looplab/fsm"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

const (
	StateIdle               = "idle"
	StateConnecting         = "connecting"
	StateConnected          = "connected"
	StateReconnectScheduled = "reconnect_scheduled"

	eventDial        = "dial"
	eventEstablished = "established"
	eventFail        = "fail"
	eventGiveUp      = "give_up"
	eventDisconnect  = "disconnect"
)

// Hooks are invoked outside the supervisor lock. Any of them may be nil.
type Hooks struct {
	OnConnected func(protocol, host string)
	OnLost      func(err error)
	OnGaveUp    func(err error)
}

// Supervisor keeps one transport connection alive for a single bridge
// endpoint. A failed or dropped connection arms exactly one reconnect timer;
// Disconnect cancels it and is terminal for the instance.
type Supervisor struct {
	transport ports.Transport
	host      string
	sink      ports.SignalSink
	obs       ports.Observability
	policy    Policy
	hooks     Hooks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	machine *fsm.FSM
	bo      backoff.BackOff
	timer   *time.Timer
	conn    ports.Connection
	stopped bool
}

func New(t ports.Transport, host string, sink ports.SignalSink, policy Policy, obs ports.Observability, hooks Hooks) (*Supervisor, error) {
	if t == nil {
		return nil, errors.New("supervisor: transport is required")
	}
	if sink == nil {
		return nil, errors.New("supervisor: signal sink is required")
	}
	if obs == nil {
		return nil, errors.New("supervisor: observability is required")
	}
	policy.ApplyDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		transport: t,
		host:      host,
		sink:      sink,
		obs:       obs,
		policy:    policy,
		hooks:     hooks,
		ctx:       ctx,
		cancel:    cancel,
		bo:        policy.NewBackOff(),
	}
	s.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventDial, Src: []string{StateIdle, StateReconnectScheduled}, Dst: StateConnecting},
			{Name: eventEstablished, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: eventFail, Src: []string{StateConnecting, StateConnected}, Dst: StateReconnectScheduled},
			{Name: eventGiveUp, Src: []string{StateConnecting, StateConnected}, Dst: StateIdle},
			{Name: eventDisconnect, Src: []string{StateConnecting, StateConnected, StateReconnectScheduled}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				connected := 0.0
				if e.Dst == StateConnected {
					connected = 1
				}
				s.obs.SetGauge(ports.GaugeBridgeConnected, connected)
				s.obs.LogDebug("supervisor_transition",
					ports.Field{Key: "event", Value: e.Event},
					ports.Field{Key: "from", Value: e.Src},
					ports.Field{Key: "to", Value: e.Dst})
			},
		},
	)
	return s, nil
}

// Start begins the first connection attempt. Calling it on a running
// supervisor is a no-op.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ErrSupervisorStopped
	}
	if !s.machine.Is(StateIdle) {
		return nil
	}
	s.bo.Reset()
	s.fireLocked(eventDial)
	s.wg.Add(1)
	go s.attempt()
	return nil
}

// Disconnect cancels any pending reconnect, closes the live connection and
// waits for background work to finish. The supervisor cannot be restarted.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	if !s.machine.Is(StateIdle) {
		s.fireLocked(eventDisconnect)
	}
	s.cancel()
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.wg.Wait()
	s.obs.LogInfo("bridge_disconnected", ports.Field{Key: "host", Value: s.host})
	return err
}

// Publish sends value on channel over the live connection.
func (s *Supervisor) Publish(channel string, value int32) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	return conn.Send(channel, value)
}

func (s *Supervisor) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// PendingTimers reports how many reconnect timers are armed (0 or 1).
func (s *Supervisor) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return 1
	}
	return 0
}

func (s *Supervisor) Host() string { return s.host }

func (s *Supervisor) attempt() {
	defer s.wg.Done()

	conn, err := s.transport.Connect(s.ctx, s.host, s.sink)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEndpoint) {
			s.fireLocked(eventGiveUp)
			s.mu.Unlock()
			s.obs.LogCritical("bridge_endpoint_invalid", err, ports.Field{Key: "host", Value: s.host})
			if s.hooks.OnGaveUp != nil {
				s.hooks.OnGaveUp(err)
			}
			return
		}
		s.obs.LogError("bridge_connect_failed", err,
			ports.Field{Key: "protocol", Value: s.transport.Protocol()},
			ports.Field{Key: "host", Value: s.host})
		gaveUp := s.scheduleLocked()
		s.mu.Unlock()
		if gaveUp && s.hooks.OnGaveUp != nil {
			s.hooks.OnGaveUp(err)
		}
		return
	}

	s.conn = conn
	s.bo.Reset()
	s.fireLocked(eventEstablished)
	s.wg.Add(1)
	go s.watch(conn)
	s.mu.Unlock()

	s.obs.LogInfo("bridge_connected",
		ports.Field{Key: "protocol", Value: s.transport.Protocol()},
		ports.Field{Key: "host", Value: s.host})
	if s.hooks.OnConnected != nil {
		s.hooks.OnConnected(s.transport.Protocol(), s.host)
	}
}

func (s *Supervisor) watch(conn ports.Connection) {
	defer s.wg.Done()
	<-conn.Done()

	s.mu.Lock()
	if s.stopped || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()

	// the read loop has already returned, so Close does not block
	_ = conn.Close()
	err := conn.Err()
	if err == nil {
		err = domain.ErrConnectionClosed
	}
	s.obs.LogError("bridge_connection_lost", err, ports.Field{Key: "host", Value: s.host})
	if s.hooks.OnLost != nil {
		s.hooks.OnLost(err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	gaveUp := s.scheduleLocked()
	s.mu.Unlock()
	if gaveUp && s.hooks.OnGaveUp != nil {
		s.hooks.OnGaveUp(err)
	}
}

// scheduleLocked arms the reconnect timer unless one is already pending.
// It reports true when the policy has run out of attempts.
func (s *Supervisor) scheduleLocked() bool {
	if s.timer != nil {
		s.obs.LogDebug("reconnect_coalesced", ports.Field{Key: "host", Value: s.host})
		return false
	}
	delay := s.bo.NextBackOff()
	if delay == backoff.Stop {
		s.fireLocked(eventGiveUp)
		s.obs.LogError("reconnect_exhausted", nil,
			ports.Field{Key: "host", Value: s.host},
			ports.Field{Key: "max_attempts", Value: s.policy.MaxAttempts})
		return true
	}
	if !s.machine.Is(StateReconnectScheduled) {
		s.fireLocked(eventFail)
	}
	s.timer = time.AfterFunc(delay, s.retry)
	s.obs.LogInfo("reconnect_scheduled",
		ports.Field{Key: "host", Value: s.host},
		ports.Field{Key: "delay", Value: delay.String()})
	return false
}

func (s *Supervisor) retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.timer == nil {
		return
	}
	s.timer = nil
	s.fireLocked(eventDial)
	s.obs.IncCounter(ports.MetricReconnectAttempts, 1)
	s.wg.Add(1)
	go s.attempt()
}

func (s *Supervisor) fireLocked(event string) {
	if err := s.machine.Event(context.Background(), event); err != nil {
		s.obs.LogError("supervisor_transition_failed", err, ports.Field{Key: "event", Value: event})
	}
}

var _ ports.Publisher = (*Supervisor)(nil)
