package surface

import (
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

// SimSpeech pretends to speak: it reports start at once and completion after
// a duration proportional to the word count. Useful on kiosks without audio
// and in demos.
type SimSpeech struct {
	wordsPerSecond float64
	obs            ports.Observability

	mu     sync.Mutex
	cancel chan struct{}
}

func NewSimSpeech(wordsPerSecond float64, obs ports.Observability) *SimSpeech {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	return &SimSpeech{wordsPerSecond: wordsPerSecond, obs: obs}
}

func (s *SimSpeech) Speak(utteranceID, text string, cb ports.SpeechCallbacks) error {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	d := time.Duration(float64(words) / s.wordsPerSecond * float64(time.Second))

	s.mu.Lock()
	if s.cancel != nil {
		close(s.cancel)
	}
	cancel := make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	s.obs.LogDebug("speech_started",
		ports.Field{Key: "utterance", Value: utteranceID},
		ports.Field{Key: "duration", Value: d.String()})

	go func() {
		select {
		case <-cancel:
			return
		default:
		}
		if cb.OnStart != nil {
			cb.OnStart()
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-cancel:
			return
		case <-t.C:
		}
		if !s.finish(cancel) {
			return
		}
		if cb.OnDone != nil {
			cb.OnDone()
		}
	}()
	return nil
}

// finish clears the slot if cancel still owns it.
func (s *SimSpeech) finish(cancel chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != cancel {
		return false
	}
	s.cancel = nil
	return true
}

var _ ports.SpeechSurface = (*SimSpeech)(nil)
