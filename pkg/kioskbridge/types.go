package kioskbridge

import (
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// Signal is one integer key received from the bridge.
type Signal = domain.Signal

// ResolvedEntry is what a KeyResolver returns for a key: an optional spoken
// description and an optional media asset.
type ResolvedEntry = domain.ResolvedEntry

// PlaybackSession is a snapshot of the orchestrator state.
type PlaybackSession = domain.PlaybackSession

type Phase = domain.Phase

const (
	PhaseIdle       = domain.PhaseIdle
	PhaseAnnouncing = domain.PhaseAnnouncing
	PhasePlaying    = domain.PhasePlaying
)

// Notice is a user-facing event (captions, missing assets, link state).
type Notice = domain.Notice

type NoticeKind = domain.NoticeKind

const (
	NoticeCaptionShown   = domain.NoticeCaptionShown
	NoticeCaptionCleared = domain.NoticeCaptionCleared
	NoticeNoAsset        = domain.NoticeNoAsset
	NoticeUnresolved     = domain.NoticeUnresolved
	NoticePlaybackFailed = domain.NoticePlaybackFailed
	NoticeConnected      = domain.NoticeConnected
	NoticeDisconnected   = domain.NoticeDisconnected
)

// Transport opens bridge connections (rosbridge, line, or your own).
type Transport = ports.Transport

// Connection is one live bridge link.
type Connection = ports.Connection

// SignalSink receives keys from a connection's read loop.
type SignalSink = ports.SignalSink

// KeyResolver maps signal keys to entries.
type KeyResolver = ports.KeyResolver

type (
	SpeechSurface   = ports.SpeechSurface
	SpeechCallbacks = ports.SpeechCallbacks
	PlaybackSurface = ports.PlaybackSurface
)

// Notifier receives notices; implementations must not block.
type Notifier = ports.Notifier

// SettingsStore persists the bridge host chosen by the operator.
type SettingsStore = ports.SettingsStore

// Observability emits logs and metrics.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field
