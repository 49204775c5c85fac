package domain

import (
	"strings"
	"time"
)

// Signal is one integer key received from the bridge. Seq is assigned in
// arrival order by the dispatcher and never reused within a process.
type Signal struct {
	Key        int32     `json:"key"`
	Seq        uint64    `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
}

// ResolvedEntry is the lookup result for a signal key. Empty strings mean
// the field is absent.
type ResolvedEntry struct {
	Key         int32  `json:"key" yaml:"key"`
	Description string `json:"description,omitempty" yaml:"description"`
	AssetRef    string `json:"asset,omitempty" yaml:"asset"`
}

func (e ResolvedEntry) HasDescription() bool { return strings.TrimSpace(e.Description) != "" }
func (e ResolvedEntry) HasAsset() bool       { return strings.TrimSpace(e.AssetRef) != "" }

// Phase of the process-wide playback session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnnouncing
	PhasePlaying
)

func (p Phase) String() string {
	switch p {
	case PhaseAnnouncing:
		return "announcing"
	case PhasePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// PlaybackSession is a snapshot of the orchestrator state. HasActive is true
// iff Phase != PhaseIdle.
type PlaybackSession struct {
	ActiveKey  int32
	HasActive  bool
	Phase      Phase
	Generation uint64
}
