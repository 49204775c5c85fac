package surface

import (
	"sync"
	"time"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

// SimPlayback plays nothing. One-shot assets "finish" after a fixed clip
// length; looping assets run until replaced or stopped.
type SimPlayback struct {
	clip time.Duration
	obs  ports.Observability

	mu      sync.Mutex
	current string
	playing bool
	cancel  chan struct{}
}

func NewSimPlayback(clip time.Duration, obs ports.Observability) *SimPlayback {
	if clip <= 0 {
		clip = 3 * time.Second
	}
	return &SimPlayback{clip: clip, obs: obs}
}

func (p *SimPlayback) Play(assetRef string, loop bool, onCompletion func()) error {
	p.mu.Lock()
	p.stopLocked()
	cancel := make(chan struct{})
	p.cancel = cancel
	p.current = assetRef
	p.playing = true
	p.mu.Unlock()

	p.obs.LogInfo("playback_started",
		ports.Field{Key: "asset", Value: assetRef},
		ports.Field{Key: "loop", Value: loop})

	if loop {
		return nil
	}
	go func() {
		t := time.NewTimer(p.clip)
		defer t.Stop()
		select {
		case <-cancel:
			return
		case <-t.C:
		}

		p.mu.Lock()
		if p.cancel != cancel {
			p.mu.Unlock()
			return
		}
		p.cancel = nil
		p.playing = false
		p.mu.Unlock()

		if onCompletion != nil {
			onCompletion()
		}
	}()
	return nil
}

func (p *SimPlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *SimPlayback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Current returns the asset last passed to Play while it is still playing.
func (p *SimPlayback) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return ""
	}
	return p.current
}

func (p *SimPlayback) stopLocked() {
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
	p.playing = false
}

var _ ports.PlaybackSurface = (*SimPlayback)(nil)
