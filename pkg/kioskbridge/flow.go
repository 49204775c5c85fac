package kioskbridge

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Inbound → Outbound
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// InboundOption configures the bridge side: transport, settings, observability.
type InboundOption func(*Flow)

// OutboundOption configures the playback side: catalog, surfaces, notices.
type OutboundOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values for advanced scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Inbound records bridge-side overrides.
func (f *Flow) Inbound(opts ...InboundOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Outbound records playback-side overrides and builds a Runtime ready to run.
func (f *Flow) Outbound(opts ...OutboundOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for Outbound + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...OutboundOption) error {
	rt, err := f.Outbound(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// InboundTransport injects a custom transport (other buses, simulators).
func InboundTransport(t Transport) InboundOption {
	return func(f *Flow) {
		if f != nil && t != nil {
			f.appendOptions(WithTransport(t))
		}
	}
}

// InboundLoopback swaps the network transport for an in-process one. If the
// config carries no host, a placeholder host is set so the runtime connects.
func InboundLoopback(t *LoopbackTransport) InboundOption {
	return func(f *Flow) {
		if f == nil || t == nil {
			return
		}
		if f.cfg.Bridge.Host == "" {
			f.cfg.Bridge.Host = LoopbackProtocol
		}
		f.appendOptions(WithTransport(t))
	}
}

func InboundSettings(s SettingsStore) InboundOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSettings(s))
		}
	}
}

// InboundObservability overrides the default Prometheus-based observability stack.
func InboundObservability(obs Observability) InboundOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// OutboundResolver injects a custom key resolver.
func OutboundResolver(r KeyResolver) OutboundOption {
	return func(f *Flow) {
		if f != nil && r != nil {
			f.appendOptions(WithResolver(r))
		}
	}
}

// OutboundCatalog installs an in-memory catalog built from entries.
func OutboundCatalog(entries ...ResolvedEntry) OutboundOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithResolver(NewMemResolver(entries...)))
		}
	}
}

func OutboundSpeech(s SpeechSurface) OutboundOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSpeech(s))
		}
	}
}

func OutboundPlayback(p PlaybackSurface) OutboundOption {
	return func(f *Flow) {
		if f != nil && p != nil {
			f.appendOptions(WithPlayback(p))
		}
	}
}

// OutboundNotifier routes notices to n.
func OutboundNotifier(n Notifier) OutboundOption {
	return func(f *Flow) {
		if f != nil && n != nil {
			f.appendOptions(WithNotifier(n))
		}
	}
}

// OutboundCallback installs a notifier built from a simple callback function.
func OutboundCallback(fn NoticeFunc) OutboundOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithNotifier(NewCallbackNotifier(fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
