package kioskbridge

import (
	base "github.com/ghalamif/kioskbridge/pkg/kioskbridge"
)

// Re-exported errors for convenience.
var (
	ErrInvalidEndpoint  = base.ErrInvalidEndpoint
	ErrNotConnected     = base.ErrNotConnected
	ErrConnectionClosed = base.ErrConnectionClosed
	ErrAlreadyStarted   = base.ErrAlreadyStarted
	ErrRuntimeStopped   = base.ErrRuntimeStopped
)

// Type aliases so consumers can import github.com/ghalamif/kioskbridge directly.
type (
	Config            = base.Config
	BridgeConfig      = base.BridgeConfig
	ReconnectPolicy   = base.ReconnectPolicy
	PlaybackConfig    = base.PlaybackConfig
	ResolverConfig    = base.ResolverConfig
	SettingsConfig    = base.SettingsConfig
	QueueConfig       = base.QueueConfig
	MetricsConfig     = base.MetricsConfig
	LoggingConfig     = base.LoggingConfig
	Flow              = base.Flow
	FlowOption        = base.FlowOption
	InboundOption     = base.InboundOption
	OutboundOption    = base.OutboundOption
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	Signal            = base.Signal
	ResolvedEntry     = base.ResolvedEntry
	PlaybackSession   = base.PlaybackSession
	Phase             = base.Phase
	Notice            = base.Notice
	NoticeKind        = base.NoticeKind
	NoticeFunc        = base.NoticeFunc
	Transport         = base.Transport
	Connection        = base.Connection
	SignalSink        = base.SignalSink
	KeyResolver       = base.KeyResolver
	SpeechSurface     = base.SpeechSurface
	SpeechCallbacks   = base.SpeechCallbacks
	PlaybackSurface   = base.PlaybackSurface
	Notifier          = base.Notifier
	SettingsStore     = base.SettingsStore
	Observability     = base.Observability
	Field             = base.Field
	ConnectError      = base.ConnectError
	LoopbackTransport = base.LoopbackTransport
	MemResolver       = base.MemResolver
)

const (
	PhaseIdle       = base.PhaseIdle
	PhaseAnnouncing = base.PhaseAnnouncing
	PhasePlaying    = base.PhasePlaying

	NoticeCaptionShown   = base.NoticeCaptionShown
	NoticeCaptionCleared = base.NoticeCaptionCleared
	NoticeNoAsset        = base.NoticeNoAsset
	NoticeUnresolved     = base.NoticeUnresolved
	NoticePlaybackFailed = base.NoticePlaybackFailed
	NoticeConnected      = base.NoticeConnected
	NoticeDisconnected   = base.NoticeDisconnected
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func InboundTransport(t Transport) InboundOption {
	return base.InboundTransport(t)
}

func InboundLoopback(t *LoopbackTransport) InboundOption {
	return base.InboundLoopback(t)
}

func InboundSettings(s SettingsStore) InboundOption {
	return base.InboundSettings(s)
}

func InboundObservability(obs Observability) InboundOption {
	return base.InboundObservability(obs)
}

func OutboundResolver(r KeyResolver) OutboundOption {
	return base.OutboundResolver(r)
}

func OutboundCatalog(entries ...ResolvedEntry) OutboundOption {
	return base.OutboundCatalog(entries...)
}

func OutboundSpeech(s SpeechSurface) OutboundOption {
	return base.OutboundSpeech(s)
}

func OutboundPlayback(p PlaybackSurface) OutboundOption {
	return base.OutboundPlayback(p)
}

func OutboundNotifier(n Notifier) OutboundOption {
	return base.OutboundNotifier(n)
}

func OutboundCallback(fn NoticeFunc) OutboundOption {
	return base.OutboundCallback(fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithTransport(t Transport) RuntimeOption {
	return base.WithTransport(t)
}

func WithResolver(r KeyResolver) RuntimeOption {
	return base.WithResolver(r)
}

func WithSpeech(s SpeechSurface) RuntimeOption {
	return base.WithSpeech(s)
}

func WithPlayback(p PlaybackSurface) RuntimeOption {
	return base.WithPlayback(p)
}

func WithNotifier(n Notifier) RuntimeOption {
	return base.WithNotifier(n)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithSettings(s SettingsStore) RuntimeOption {
	return base.WithSettings(s)
}

// Notice adapters.
func NewCallbackNotifier(fn NoticeFunc) Notifier {
	return base.NewCallbackNotifier(fn)
}

func NewChannelNotifier(buffer int) (Notifier, <-chan Notice, func()) {
	return base.NewChannelNotifier(buffer)
}

// In-process bridge and catalog.
func NewLoopbackTransport(onSend func(channel string, value int32)) *LoopbackTransport {
	return base.NewLoopbackTransport(onSend)
}

func NewMemResolver(entries ...ResolvedEntry) *MemResolver {
	return base.NewMemResolver(entries...)
}
