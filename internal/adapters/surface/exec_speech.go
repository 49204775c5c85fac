package surface

import (
	"errors"
	"os/exec"
	"sync"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

// ExecSpeech runs an external synthesizer (espeak-ng by default) with the
// text as its last argument. Starting a new utterance kills the previous
// process, which then reports nothing.
type ExecSpeech struct {
	command []string
	obs     ports.Observability

	mu      sync.Mutex
	current *exec.Cmd
}

func NewExecSpeech(command []string, obs ports.Observability) (*ExecSpeech, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("surface: speech command is required")
	}
	return &ExecSpeech{command: append([]string(nil), command...), obs: obs}, nil
}

func (s *ExecSpeech) Speak(utteranceID, text string, cb ports.SpeechCallbacks) error {
	args := append(append([]string(nil), s.command[1:]...), text)
	cmd := exec.Command(s.command[0], args...)

	s.mu.Lock()
	if prev := s.current; prev != nil && prev.Process != nil {
		_ = prev.Process.Kill()
	}
	if err := cmd.Start(); err != nil {
		s.current = nil
		s.mu.Unlock()
		return err
	}
	s.current = cmd
	s.mu.Unlock()

	s.obs.LogDebug("speech_process_started",
		ports.Field{Key: "utterance", Value: utteranceID},
		ports.Field{Key: "pid", Value: cmd.Process.Pid})

	go func() {
		if cb.OnStart != nil {
			cb.OnStart()
		}
		err := cmd.Wait()

		s.mu.Lock()
		superseded := s.current != cmd
		if !superseded {
			s.current = nil
		}
		s.mu.Unlock()
		if superseded {
			return
		}

		if err != nil {
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}
		if cb.OnDone != nil {
			cb.OnDone()
		}
	}()
	return nil
}

var _ ports.SpeechSurface = (*ExecSpeech)(nil)
