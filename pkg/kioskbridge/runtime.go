package kioskbridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ghalamif/kioskbridge/internal/adapters/observability"
	"github.com/ghalamif/kioskbridge/internal/adapters/resolver"
	"github.com/ghalamif/kioskbridge/internal/adapters/settings"
	"github.com/ghalamif/kioskbridge/internal/adapters/surface"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/line"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/rosbridge"
	"github.com/ghalamif/kioskbridge/internal/app/config"
	"github.com/ghalamif/kioskbridge/internal/app/dispatch"
	"github.com/ghalamif/kioskbridge/internal/app/orchestrator"
	"github.com/ghalamif/kioskbridge/internal/app/supervisor"
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/logger"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	transport     Transport
	resolver      KeyResolver
	speech        SpeechSurface
	playback      PlaybackSurface
	notifier      Notifier
	observability Observability
	settings      SettingsStore
	logger        *zap.Logger
}

// WithTransport injects a custom bridge transport (loopback, simulators, other buses).
func WithTransport(t Transport) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transport = t
	}
}

// WithResolver replaces the configured catalog source.
func WithResolver(r KeyResolver) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.resolver = r
	}
}

func WithSpeech(s SpeechSurface) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.speech = s
	}
}

func WithPlayback(p PlaybackSurface) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.playback = p
	}
}

// WithNotifier routes notices to the caller's presentation layer.
func WithNotifier(n Notifier) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.notifier = n
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

func WithSettings(s SettingsStore) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.settings = s
	}
}

// WithLogger overrides the zap logger built from the logging config. It only
// affects the default observability backend.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// Runtime wires transport → dispatcher → orchestrator → surfaces and exposes
// lifecycle hooks for embedding the kiosk bridge inside any Go service.
type Runtime struct {
	cfg        *Config
	log        *zap.Logger
	obs        ports.Observability
	transport  ports.Transport
	resolver   ports.KeyResolver
	watchers   []func(context.Context) error
	speech     ports.SpeechSurface
	player     ports.PlaybackSurface
	notifier   ports.Notifier
	settings   ports.SettingsStore
	dispatcher *dispatch.Dispatcher
	orch       *orchestrator.Orchestrator
	db         *sql.DB
	metricsSrv *http.Server

	reconfigMu sync.Mutex
	mu         sync.Mutex
	sup        *supervisor.Supervisor
	started    bool
	stopped    bool
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// NewRuntime bootstraps the default adapters (transport for the configured
// protocol, catalog resolver, surfaces, settings file, Prometheus
// observability). Options override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{cfg: cfg}

	rt.log = overrides.logger
	if rt.log == nil {
		rt.log = logger.New(cfg.Logging)
	}
	rt.obs = overrides.observability
	if rt.obs == nil {
		rt.obs = observability.NewPromObs(rt.log)
	}

	var err error
	if rt.transport, err = rt.buildTransport(overrides.transport); err != nil {
		return nil, err
	}
	if err := rt.buildResolver(overrides.resolver); err != nil {
		return nil, err
	}
	if rt.speech, err = rt.buildSpeech(overrides.speech); err != nil {
		return nil, err
	}
	if rt.player, err = rt.buildPlayback(overrides.playback); err != nil {
		return nil, err
	}

	rt.notifier = overrides.notifier
	if rt.notifier == nil {
		rt.notifier = &logNotifier{obs: rt.obs}
	}

	rt.settings = overrides.settings
	if rt.settings == nil {
		rt.settings, err = settings.NewFileStore(cfg.Settings.Path)
		if err != nil {
			return nil, err
		}
	}

	rt.dispatcher = dispatch.New(cfg.Queue.MaxBatch, rt.obs)
	rt.orch, err = orchestrator.New(orchestrator.Config{
		IdleAsset:     cfg.Playback.IdleAsset,
		SpeakingAsset: cfg.Playback.SpeakingAsset,
		ResumeChannel: cfg.Bridge.ResumeTopic,
		ResumeValue:   cfg.Bridge.ResumeValue,
	}, orchestrator.Deps{
		Resolver:  rt.resolver,
		Speech:    rt.speech,
		Player:    rt.player,
		Publisher: rt,
		Notifier:  rt.notifier,
		Obs:       rt.obs,
		Poster:    rt.dispatcher,
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) buildTransport(override Transport) (ports.Transport, error) {
	if override != nil {
		return override, nil
	}
	switch r.cfg.Bridge.Protocol {
	case config.ProtocolLine:
		return line.NewTransport(r.cfg.Bridge.Line(), r.obs)
	default:
		return rosbridge.NewTransport(r.cfg.Bridge.Rosbridge(), r.obs)
	}
}

func (r *Runtime) buildResolver(override KeyResolver) error {
	if override != nil {
		r.resolver = override
		return nil
	}

	rc := r.cfg.Resolver
	switch rc.Source {
	case config.SourceMemory:
		r.resolver = resolver.NewMemResolver()
	case config.SourcePostgres:
		db, err := sql.Open("postgres", rc.ConnString)
		if err != nil {
			return err
		}
		res, err := resolver.NewSQLResolver(db, rc.Table, r.obs)
		if err != nil {
			_ = db.Close()
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := res.Reload(ctx); err != nil {
			// the periodic reload picks the catalog up once the database is reachable
			r.obs.LogError("catalog_initial_load_failed", err, ports.Field{Key: "table", Value: rc.Table})
		}
		r.db = db
		r.resolver = res
		r.watchers = append(r.watchers, func(ctx context.Context) error {
			return res.Watch(ctx, rc.ReloadInterval)
		})
	default:
		res, err := resolver.NewFileResolver(rc.CatalogPath, r.obs)
		if err != nil {
			return err
		}
		r.resolver = res
		r.watchers = append(r.watchers, res.Watch)
	}
	return nil
}

func (r *Runtime) buildSpeech(override SpeechSurface) (ports.SpeechSurface, error) {
	if override != nil {
		return override, nil
	}
	pc := r.cfg.Playback
	if pc.Speech == config.SurfaceExec {
		return surface.NewExecSpeech(pc.SpeechCommand, r.obs)
	}
	return surface.NewSimSpeech(pc.SimulatedWordsPerSecond, r.obs), nil
}

func (r *Runtime) buildPlayback(override PlaybackSurface) (ports.PlaybackSurface, error) {
	if override != nil {
		return override, nil
	}
	pc := r.cfg.Playback
	if pc.Player == config.SurfaceExec {
		return surface.NewExecPlayback(pc.PlayerCommand, r.obs)
	}
	return surface.NewSimPlayback(pc.SimulatedClip, r.obs), nil
}

// Start launches the dispatcher, catalog watchers, metrics server and the
// bridge connection. It returns immediately; call Run to block on a context.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRuntimeStopped
	}
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	r.group = g
	r.mu.Unlock()

	r.dispatcher.Post(r.orch.Start)
	g.Go(func() error {
		return r.dispatcher.Run(gctx, r.orch.HandleSignal)
	})
	for _, w := range r.watchers {
		w := w
		g.Go(func() error {
			// a dead watcher only stops hot reload; the last catalog stays in use
			if err := w(gctx); err != nil {
				r.obs.LogError("catalog_watch_stopped", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		r.recordQueueGauge(gctx, time.Second)
		return nil
	})
	r.startMetrics()

	host, err := r.initialHost()
	if err != nil {
		r.obs.LogError("settings_load_failed", err)
	}
	if host == "" {
		r.obs.LogError("bridge_host_missing", ErrInvalidEndpoint)
		return nil
	}
	return r.connect(host)
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown disconnects from the bridge, stops background loops, the metrics
// server, playback and the DB connection. The runtime cannot be restarted or
// reconfigured afterwards.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	r.mu.Lock()
	r.stopped = true
	sup := r.sup
	r.sup = nil
	cancel := r.cancel
	group := r.group
	r.mu.Unlock()

	if sup != nil {
		if err := sup.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if group != nil {
		done := make(chan error, 1)
		go func() { done <- group.Wait() }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.player != nil && r.player.IsPlaying() {
		if err := r.player.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	_ = r.log.Sync()
	return errors.Join(errs...)
}

// Reconfigure points the runtime at a new bridge host. The host is persisted,
// the current connection is torn down for good and a fresh supervisor is
// started. The playback session is left untouched.
func (r *Runtime) Reconfigure(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("%w: blank host", ErrInvalidEndpoint)
	}

	r.reconfigMu.Lock()
	defer r.reconfigMu.Unlock()

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return ErrRuntimeStopped
	}

	if err := r.settings.SaveHost(host); err != nil {
		r.obs.LogError("settings_save_failed", err, ports.Field{Key: "host", Value: host})
	}

	r.mu.Lock()
	old := r.sup
	r.sup = nil
	started := r.started
	r.mu.Unlock()

	if old != nil {
		if err := old.Disconnect(); err != nil {
			r.obs.LogError("bridge_close_failed", err, ports.Field{Key: "host", Value: old.Host()})
		}
	}
	r.obs.LogInfo("bridge_reconfigured", ports.Field{Key: "host", Value: host})
	if !started {
		r.cfg.Bridge.Host = host
		return nil
	}
	return r.connect(host)
}

// Publish sends value on channel over the current bridge connection.
func (r *Runtime) Publish(channel string, value int32) error {
	r.mu.Lock()
	sup := r.sup
	r.mu.Unlock()
	if sup == nil {
		return ErrNotConnected
	}
	return sup.Publish(channel, value)
}

// Session returns the current playback session snapshot.
func (r *Runtime) Session() PlaybackSession {
	return r.orch.Session()
}

// BridgeState reports the reconnect supervisor state, or "idle" when no
// bridge host is configured.
func (r *Runtime) BridgeState() string {
	r.mu.Lock()
	sup := r.sup
	r.mu.Unlock()
	if sup == nil {
		return supervisor.StateIdle
	}
	return sup.State()
}

func (r *Runtime) initialHost() (string, error) {
	if h := strings.TrimSpace(r.cfg.Bridge.Host); h != "" {
		return h, nil
	}
	return r.settings.LoadHost()
}

func (r *Runtime) connect(host string) error {
	sup, err := supervisor.New(r.transport, host, r.dispatcher, r.cfg.Bridge.Reconnect, r.obs, supervisor.Hooks{
		OnConnected: func(protocol, host string) {
			r.notify(domain.NoticeConnected, host)
		},
		OnLost: func(err error) {
			r.notify(domain.NoticeDisconnected, errText(err))
		},
		OnGaveUp: func(err error) {
			r.notify(domain.NoticeDisconnected, errText(err))
		},
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRuntimeStopped
	}
	r.sup = sup
	r.mu.Unlock()
	return sup.Start()
}

func (r *Runtime) notify(kind domain.NoticeKind, text string) {
	r.notifier.Notify(domain.Notice{Kind: kind, Text: text, At: time.Now()})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.BridgeState()))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err, ports.Field{Key: "addr", Value: r.cfg.Metrics.Addr})
		}
	}()
}

func (r *Runtime) recordQueueGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.obs.SetGauge(ports.GaugeQueueLength, float64(r.dispatcher.Len()))
		}
	}
}

var _ ports.Publisher = (*Runtime)(nil)
