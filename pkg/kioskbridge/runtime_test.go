package kioskbridge

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Bridge.Host = "kiosk"
	cfg.Resolver.Source = "memory"
	cfg.Settings.Path = filepath.Join(t.TempDir(), "settings.yaml")
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Playback.SimulatedClip = 20 * time.Millisecond
	cfg.Playback.SimulatedWordsPerSecond = 1000
	return cfg
}

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	tr := NewLoopbackTransport(nil)
	res := NewMemResolver()
	obs := &stubObservability{}
	settings := &stubSettings{}
	notifier := NewCallbackNotifier(nil)

	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithResolver(res),
		WithObservability(obs),
		WithSettings(settings),
		WithNotifier(notifier),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	if rt.transport != tr {
		t.Fatalf("expected custom transport to be used")
	}
	if rt.resolver != res {
		t.Fatalf("expected custom resolver to be used")
	}
	if rt.obs != obs {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.settings != settings {
		t.Fatalf("expected custom settings store to be used")
	}
	if rt.notifier != notifier {
		t.Fatalf("expected custom notifier to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil for the memory resolver")
	}
	if len(rt.watchers) != 0 {
		t.Fatalf("expected no catalog watchers, got %d", len(rt.watchers))
	}
}

func TestNewRuntimeRejectsInvalidConfig(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	cfg := testConfig(t)
	cfg.Bridge.Protocol = "carrier-pigeon"
	if _, err := NewRuntime(cfg, WithObservability(&stubObservability{})); err == nil {
		t.Fatalf("expected protocol validation error")
	}
}

func TestRuntimeAnnouncesPlaysAndResumes(t *testing.T) {
	cfg := testConfig(t)

	sent := make(chan sentSignal, 4)
	tr := NewLoopbackTransport(func(channel string, value int32) {
		sent <- sentSignal{channel, value}
	})
	notifier, notices, closeNotices := NewChannelNotifier(32)
	defer closeNotices()

	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithResolver(NewMemResolver(ResolvedEntry{Key: 7, Description: "the lobby", AssetRef: "lobby.mp4"})),
		WithObservability(&stubObservability{}),
		WithSettings(&stubSettings{}),
		WithNotifier(notifier),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			t.Fatalf("Shutdown returned error: %v", err)
		}
	}()

	if err := rt.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	select {
	case n := <-notices:
		if n.Kind != NoticeConnected || n.Text != "kiosk" {
			t.Fatalf("expected connected notice for kiosk, got %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connected notice")
	}
	if err := tr.Inject(7); err != nil {
		t.Fatalf("Inject returned error: %v", err)
	}

	select {
	case got := <-sent:
		if got.channel != "/start_movement" || got.value != 1 {
			t.Fatalf("unexpected resume signal: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resume signal")
	}

	eventually(t, func() bool {
		s := rt.Session()
		return s.Phase == PhaseIdle && !s.HasActive
	})

	want := []NoticeKind{NoticeCaptionShown, NoticeCaptionCleared}
	for _, kind := range want {
		select {
		case n := <-notices:
			if n.Kind != kind {
				t.Fatalf("expected notice %s, got %s", kind, n.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notice %s", kind)
		}
	}
}

func TestRuntimeWithoutHostStaysIdle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Host = ""

	tr := NewLoopbackTransport(nil)
	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithObservability(&stubObservability{}),
		WithSettings(&stubSettings{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer rt.Shutdown(context.Background())

	if tr.Connected() {
		t.Fatalf("expected no connection without a host")
	}
	if got := rt.BridgeState(); got != "idle" {
		t.Fatalf("expected idle bridge state, got %s", got)
	}
	if err := rt.Publish("/start_movement", 1); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestRuntimeUsesPersistedHost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Host = ""

	tr := NewLoopbackTransport(nil)
	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithObservability(&stubObservability{}),
		WithSettings(&stubSettings{host: "10.0.0.5"}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer rt.Shutdown(context.Background())

	eventually(t, func() bool { return rt.BridgeState() == "connected" })
	if !tr.Connected() {
		t.Fatalf("expected loopback connection to be open")
	}
}

func TestRuntimeReconfigureSwitchesHost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Host = "first"

	tr := &recordingLoopback{LoopbackTransport: NewLoopbackTransport(nil)}
	settings := &stubSettings{}
	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithObservability(&stubObservability{}),
		WithSettings(settings),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if err := rt.Reconfigure("  "); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint for blank host, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer rt.Shutdown(context.Background())
	eventually(t, tr.Connected)

	if err := rt.Reconfigure("second"); err != nil {
		t.Fatalf("Reconfigure returned error: %v", err)
	}
	eventually(t, func() bool { return tr.Connected() && tr.lastHost() == "second" })

	if got, _ := settings.LoadHost(); got != "second" {
		t.Fatalf("expected host to be persisted, got %q", got)
	}
	if hosts := tr.hostList(); len(hosts) != 2 || hosts[0] != "first" {
		t.Fatalf("expected dials to first then second, got %v", hosts)
	}
}

func TestReconfigureAfterShutdownDoesNotDial(t *testing.T) {
	cfg := testConfig(t)

	tr := &recordingLoopback{LoopbackTransport: NewLoopbackTransport(nil)}
	settings := &stubSettings{}
	rt, err := NewRuntime(cfg,
		WithTransport(tr),
		WithObservability(&stubObservability{}),
		WithSettings(settings),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	eventually(t, tr.Connected)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if err := rt.Reconfigure("other"); !errors.Is(err, ErrRuntimeStopped) {
		t.Fatalf("expected ErrRuntimeStopped, got %v", err)
	}
	if err := rt.Start(context.Background()); !errors.Is(err, ErrRuntimeStopped) {
		t.Fatalf("expected ErrRuntimeStopped from Start, got %v", err)
	}
	if hosts := tr.hostList(); len(hosts) != 1 || hosts[0] != "kiosk" {
		t.Fatalf("expected a single dial to kiosk, got %v", hosts)
	}
	if tr.Connected() {
		t.Fatalf("expected no live connection after shutdown")
	}
	if got := rt.BridgeState(); got != "idle" {
		t.Fatalf("expected idle bridge state, got %s", got)
	}
	if got, _ := settings.LoadHost(); got != "" {
		t.Fatalf("a stopped runtime must not persist hosts, got %q", got)
	}
}

type sentSignal struct {
	channel string
	value   int32
}

type recordingLoopback struct {
	*LoopbackTransport

	mu    sync.Mutex
	hosts []string
}

func (r *recordingLoopback) Connect(ctx context.Context, host string, out SignalSink) (Connection, error) {
	r.mu.Lock()
	r.hosts = append(r.hosts, host)
	r.mu.Unlock()
	return r.LoopbackTransport.Connect(ctx, host, out)
}

func (r *recordingLoopback) hostList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hosts...)
}

func (r *recordingLoopback) lastHost() string {
	hosts := r.hostList()
	if len(hosts) == 0 {
		return ""
	}
	return hosts[len(hosts)-1]
}

type stubSettings struct {
	mu   sync.Mutex
	host string
}

func (s *stubSettings) LoadHost() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host, nil
}

func (s *stubSettings) SaveHost(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = host
	return nil
}

type stubObservability struct{}

func (s *stubObservability) LogDebug(string, ...Field)                {}
func (s *stubObservability) LogInfo(string, ...Field)                 {}
func (s *stubObservability) LogError(string, error, ...Field)         {}
func (s *stubObservability) LogCritical(string, error, ...Field)      {}
func (s *stubObservability) IncCounter(string, float64)               {}
func (s *stubObservability) ObserveLatency(string, float64)           {}
func (s *stubObservability) SetGauge(string, float64)                 {}
func (s *stubObservability) RecordDroppedFrame(string, string, error) {}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
