package domain

import "time"

// NoticeKind classifies user-facing notices emitted on the side channel.
type NoticeKind string

const (
	NoticeCaptionShown   NoticeKind = "caption_shown"
	NoticeCaptionCleared NoticeKind = "caption_cleared"
	NoticeNoAsset        NoticeKind = "no_asset"
	NoticeUnresolved     NoticeKind = "unresolved"
	NoticePlaybackFailed NoticeKind = "playback_failed"
	NoticeConnected      NoticeKind = "connected"
	NoticeDisconnected   NoticeKind = "disconnected"
)

// Notice is a non-fatal, user-visible event for the presentation layer.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Key  int32      `json:"key,omitempty"`
	Text string     `json:"text,omitempty"`
	At   time.Time  `json:"at"`
}
