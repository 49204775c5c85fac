package ports

import "github.com/ghalamif/kioskbridge/internal/domain"

// SpeechCallbacks are invoked asynchronously, from any goroutine.
// A superseded utterance may stay silent.
type SpeechCallbacks struct {
	OnStart func()
	OnDone  func()
	OnError func(error)
}

// SpeechSurface is a single-slot synthesizer: a new Speak flushes any
// unfinished utterance.
type SpeechSurface interface {
	Speak(utteranceID, text string, cb SpeechCallbacks) error
}

// PlaybackSurface plays one asset at a time. Looping assets restart on their
// own and never report completion; a new Play replaces the current asset.
type PlaybackSurface interface {
	Play(assetRef string, loop bool, onCompletion func()) error
	Stop() error
	IsPlaying() bool
}

// KeyResolver maps a signal key to its entry. Lookups return a copy.
type KeyResolver interface {
	Lookup(key int32) (domain.ResolvedEntry, bool)
}

// Notifier receives user-facing notices. Notify must not block.
type Notifier interface {
	Notify(n domain.Notice)
}

// SettingsStore persists the last-used bridge host.
type SettingsStore interface {
	LoadHost() (string, error)
	SaveHost(host string) error
}
