package surface

import (
	"errors"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

func TestSimSpeechReportsStartThenDone(t *testing.T) {
	s := NewSimSpeech(1000, nopObs{})
	events := make(chan string, 4)

	err := s.Speak("u1", "hello there", ports.SpeechCallbacks{
		OnStart: func() { events <- "start" },
		OnDone:  func() { events <- "done" },
	})
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	for _, want := range []string{"start", "done"} {
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestSimSpeechSupersededStaysSilent(t *testing.T) {
	s := NewSimSpeech(1, nopObs{}) // one word per second
	var oldDone atomic.Bool
	newDone := make(chan struct{})

	_ = s.Speak("old", "a long sentence that takes a while", ports.SpeechCallbacks{
		OnDone: func() { oldDone.Store(true) },
	})
	s.wordsPerSecond = 1000
	_ = s.Speak("new", "hi", ports.SpeechCallbacks{
		OnDone: func() { close(newDone) },
	})

	select {
	case <-newDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("new utterance never finished")
	}
	time.Sleep(20 * time.Millisecond)
	if oldDone.Load() {
		t.Fatalf("superseded utterance must not report completion")
	}
}

func TestSimPlaybackOneShotCompletes(t *testing.T) {
	p := NewSimPlayback(10*time.Millisecond, nopObs{})
	done := make(chan struct{})

	if err := p.Play("/v5.mp4", false, func() { close(done) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !p.IsPlaying() || p.Current() != "/v5.mp4" {
		t.Fatalf("expected /v5.mp4 to be playing")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("one-shot asset never completed")
	}
	if p.IsPlaying() {
		t.Fatalf("player should be idle after completion")
	}
}

func TestSimPlaybackReplaceAndLoop(t *testing.T) {
	p := NewSimPlayback(10*time.Millisecond, nopObs{})
	var replaced atomic.Bool

	_ = p.Play("/v5.mp4", false, func() { replaced.Store(true) })
	_ = p.Play("idle.mp4", true, nil)

	time.Sleep(40 * time.Millisecond)
	if replaced.Load() {
		t.Fatalf("replaced asset must not complete")
	}
	if !p.IsPlaying() || p.Current() != "idle.mp4" {
		t.Fatalf("loop should keep playing, current=%q", p.Current())
	}

	_ = p.Stop()
	if p.IsPlaying() {
		t.Fatalf("stop should end playback")
	}
}

func TestExecSpeechReportsExitStatus(t *testing.T) {
	requireBinary(t, "true")
	requireBinary(t, "false")

	ok, _ := NewExecSpeech([]string{"true"}, nopObs{})
	done := make(chan struct{})
	if err := ok.Speak("u1", "hi", ports.SpeechCallbacks{OnDone: func() { close(done) }}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected OnDone")
	}

	bad, _ := NewExecSpeech([]string{"false"}, nopObs{})
	failed := make(chan error, 1)
	_ = bad.Speak("u2", "hi", ports.SpeechCallbacks{OnError: func(err error) { failed <- err }})
	select {
	case err := <-failed:
		if err == nil {
			t.Fatalf("expected an exit error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected OnError")
	}
}

func TestExecSpeechMissingBinary(t *testing.T) {
	s, _ := NewExecSpeech([]string{"kiosk-no-such-synth"}, nopObs{})
	err := s.Speak("u1", "hi", ports.SpeechCallbacks{})
	if err == nil || !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound, got %v", err)
	}
}

func TestExecPlaybackOneShotAndStop(t *testing.T) {
	requireBinary(t, "true")
	requireBinary(t, "sleep")

	p, _ := NewExecPlayback([]string{"true"}, nopObs{})
	done := make(chan struct{})
	if err := p.Play("/v5.mp4", false, func() { close(done) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected completion")
	}

	// "sleep <asset>" keeps running until killed
	loop, _ := NewExecPlayback([]string{"sleep"}, nopObs{})
	if err := loop.Play("30", true, nil); err != nil {
		t.Fatalf("play loop: %v", err)
	}
	if !loop.IsPlaying() {
		t.Fatalf("loop should be playing")
	}
	_ = loop.Stop()
	if loop.IsPlaying() {
		t.Fatalf("stop should end the loop")
	}
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

type nopObs struct{}

func (nopObs) LogDebug(string, ...ports.Field)           {}
func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
func (nopObs) RecordDroppedFrame(string, string, error)  {}
