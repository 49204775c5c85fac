package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

const (
	idleAsset     = "assets/idle.mp4"
	speakingAsset = "assets/speaking.mp4"
)

func TestSequencingLaw(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 5, Description: "Welcome", AssetRef: "/v5.mp4"})

	h.signal(5)
	h.speech.start()
	h.speech.done()
	h.player.complete()

	h.expectEvents(
		"play " + idleAsset + " loop",
		"speak Welcome",
		"play " + speakingAsset + " loop",
		"stop",
		"play /v5.mp4 once",
		"publish /start_movement 1",
		"play " + idleAsset + " loop",
	)
	h.expectNotices(domain.NoticeCaptionShown, domain.NoticeCaptionCleared)
	if s := h.orch.Session(); s.Phase != domain.PhaseIdle || s.HasActive {
		t.Fatalf("expected idle session, got %+v", s)
	}
	if h.obs.counters[ports.MetricResumeSignals] != 1 {
		t.Fatalf("expected one resume signal counted")
	}
}

func TestDuplicateKeyIsDroppedWhileInFlight(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 5, Description: "Welcome", AssetRef: "/v5.mp4"})

	h.signal(5)
	h.signal(5)
	h.speech.start()
	h.speech.done()
	h.signal(5)

	if n := h.count("speak "); n != 1 {
		t.Fatalf("expected a single announcement, got %d", n)
	}
	if n := h.count("play /v5.mp4"); n != 1 {
		t.Fatalf("expected a single media play, got %d", n)
	}
	if h.obs.counters[ports.MetricDuplicateSignals] != 2 {
		t.Fatalf("expected 2 duplicates, got %v", h.obs.counters[ports.MetricDuplicateSignals])
	}

	// once idle the same key may play again
	h.player.complete()
	h.signal(5)
	if n := h.count("speak "); n != 2 {
		t.Fatalf("expected a second announcement after returning to idle, got %d", n)
	}
}

func TestNoDescriptionSkipsSpeech(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 6, Description: "   ", AssetRef: "/v6.mp4"})

	h.signal(6)
	if s := h.orch.Session(); s.Phase != domain.PhasePlaying || s.ActiveKey != 6 {
		t.Fatalf("expected playing 6, got %+v", s)
	}
	h.player.complete()

	h.expectEvents(
		"play "+idleAsset+" loop",
		"play /v6.mp4 once",
		"publish /start_movement 1",
		"play "+idleAsset+" loop",
	)
	h.expectNotices()
}

func TestNoAssetReturnsToIdleWithoutResume(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 7, Description: "Only words"})

	h.signal(7)
	h.speech.start()
	h.speech.done()

	h.expectEvents(
		"play "+idleAsset+" loop",
		"speak Only words",
		"play "+speakingAsset+" loop",
		"stop",
		"play "+idleAsset+" loop",
	)
	h.expectNotices(domain.NoticeCaptionShown, domain.NoticeCaptionCleared, domain.NoticeNoAsset)
	if h.orch.Session().Phase != domain.PhaseIdle {
		t.Fatalf("expected idle")
	}
}

func TestUnresolvedKey(t *testing.T) {
	h := newHarness(t)

	h.signal(42)
	h.expectEvents("play " + idleAsset + " loop")
	h.expectNotices(domain.NoticeUnresolved)
	if h.obs.counters[ports.MetricResolutionMisses] != 1 {
		t.Fatalf("expected a resolution miss")
	}
}

func TestArrivalOrderWithDuplicates(t *testing.T) {
	h := newHarness(t,
		domain.ResolvedEntry{Key: 7, Description: "seven", AssetRef: "/v7.mp4"},
		domain.ResolvedEntry{Key: 9, Description: "nine", AssetRef: "/v9.mp4"},
	)

	for _, k := range []int32{7, 7, 9, 7} {
		h.signal(k)
	}

	var spoken []string
	for _, e := range h.events {
		if strings.HasPrefix(e, "speak ") {
			spoken = append(spoken, strings.TrimPrefix(e, "speak "))
		}
	}
	if fmt.Sprint(spoken) != "[seven nine seven]" {
		t.Fatalf("expected three sequences in arrival order, got %v", spoken)
	}
	if h.obs.counters[ports.MetricSequencesStarted] != 3 {
		t.Fatalf("expected 3 sequences, got %v", h.obs.counters[ports.MetricSequencesStarted])
	}
}

func TestSupersededSequenceNeverResumes(t *testing.T) {
	h := newHarness(t,
		domain.ResolvedEntry{Key: 5, Description: "Welcome", AssetRef: "/v5.mp4"},
		domain.ResolvedEntry{Key: 6, AssetRef: "/v6.mp4"},
		domain.ResolvedEntry{Key: 8, AssetRef: "/v8.mp4"},
	)

	h.signal(5)
	h.speech.start()
	stale := h.speech.last
	h.signal(6)

	// the superseded utterance finishes late
	stale.OnDone()
	h.drain()
	if n := h.count("play /v5.mp4"); n != 0 {
		t.Fatalf("stale speech completion must not start media for 5")
	}

	oldMedia := h.player.lastDone
	h.signal(8)
	oldMedia()
	h.drain()
	if n := h.count("publish"); n != 0 {
		t.Fatalf("stale media completion must not publish, events=%v", h.events)
	}

	h.player.complete()
	if n := h.count("publish"); n != 1 {
		t.Fatalf("expected exactly one resume, got %d", n)
	}
	h.expectNotices(domain.NoticeCaptionShown, domain.NoticeCaptionCleared)
}

func TestSpeechErrorCountsAsCompletion(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 5, Description: "Welcome", AssetRef: "/v5.mp4"})

	h.signal(5)
	h.speech.fail(errors.New("engine gone"))
	if h.orch.Session().Phase != domain.PhasePlaying {
		t.Fatalf("expected to move on to media after a synthesis error")
	}
	if h.count("stop") != 0 {
		t.Fatalf("speaking loop was never started, nothing to stop")
	}
}

func TestSpeakRejectedSynchronously(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 5, Description: "Welcome", AssetRef: "/v5.mp4"})
	h.speech.rejectWith = errors.New("busy")

	h.signal(5)
	if n := h.count("play /v5.mp4"); n != 1 {
		t.Fatalf("expected media to play after rejected speech, events=%v", h.events)
	}
}

func TestPlaybackFailure(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 6, AssetRef: "/missing.mp4"})
	h.player.failOn = "/missing.mp4"

	h.signal(6)
	h.expectNotices(domain.NoticePlaybackFailed)
	if h.count("publish") != 0 {
		t.Fatalf("failed playback must not resume")
	}
	if h.orch.Session().Phase != domain.PhaseIdle {
		t.Fatalf("expected idle after playback failure")
	}
}

func TestResumeFailureStillReturnsToIdle(t *testing.T) {
	h := newHarness(t, domain.ResolvedEntry{Key: 6, AssetRef: "/v6.mp4"})
	h.pub.err = domain.ErrNotConnected

	h.signal(6)
	h.player.complete()

	if h.orch.Session().Phase != domain.PhaseIdle {
		t.Fatalf("expected idle after resume failure")
	}
	if h.obs.counters[ports.MetricResumeFailures] != 1 || h.obs.counters[ports.MetricResumeSignals] != 0 {
		t.Fatalf("unexpected counters %v", h.obs.counters)
	}
}

// harness wires fakes that share one event log. Callbacks are queued on a
// manual poster and drained explicitly, like the dispatcher goroutine would.
type harness struct {
	t       *testing.T
	orch    *Orchestrator
	events  []string
	notices []domain.NoticeKind
	queue   []func()
	speech  *fakeSpeech
	player  *fakePlayer
	pub     *fakePublisher
	obs     *fakeObs
}

func newHarness(t *testing.T, entries ...domain.ResolvedEntry) *harness {
	t.Helper()
	h := &harness{t: t, obs: &fakeObs{counters: map[string]float64{}}}
	h.speech = &fakeSpeech{h: h}
	h.player = &fakePlayer{h: h}
	h.pub = &fakePublisher{h: h}

	res := mapResolver{}
	for _, e := range entries {
		res[e.Key] = e
	}
	orch, err := New(Config{IdleAsset: idleAsset, SpeakingAsset: speakingAsset}, Deps{
		Resolver:  res,
		Speech:    h.speech,
		Player:    h.player,
		Publisher: h.pub,
		Notifier:  noticeRecorder{h: h},
		Obs:       h.obs,
		Poster:    h,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	h.orch = orch
	orch.Start()
	return h
}

func (h *harness) Post(fn func()) { h.queue = append(h.queue, fn) }

func (h *harness) drain() {
	for len(h.queue) > 0 {
		fn := h.queue[0]
		h.queue = h.queue[1:]
		fn()
	}
}

func (h *harness) signal(key int32) {
	h.orch.HandleSignal(domain.Signal{Key: key})
	h.drain()
}

func (h *harness) count(prefix string) int {
	n := 0
	for _, e := range h.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (h *harness) expectEvents(want ...string) {
	h.t.Helper()
	if fmt.Sprint(h.events) != fmt.Sprint(want) {
		h.t.Fatalf("events mismatch\n got: %q\nwant: %q", h.events, want)
	}
}

func (h *harness) expectNotices(want ...domain.NoticeKind) {
	h.t.Helper()
	if fmt.Sprint(h.notices) != fmt.Sprint(want) {
		h.t.Fatalf("notices mismatch\n got: %v\nwant: %v", h.notices, want)
	}
}

type fakeSpeech struct {
	h          *harness
	last       ports.SpeechCallbacks
	rejectWith error
}

func (f *fakeSpeech) Speak(_ string, text string, cb ports.SpeechCallbacks) error {
	if f.rejectWith != nil {
		return f.rejectWith
	}
	f.h.events = append(f.h.events, "speak "+text)
	f.last = cb
	return nil
}

func (f *fakeSpeech) start() { f.last.OnStart(); f.h.drain() }
func (f *fakeSpeech) done()  { f.last.OnDone(); f.h.drain() }

func (f *fakeSpeech) fail(err error) { f.last.OnError(err); f.h.drain() }

type fakePlayer struct {
	h        *harness
	playing  bool
	lastDone func()
	failOn   string
}

func (f *fakePlayer) Play(asset string, loop bool, onCompletion func()) error {
	if asset == f.failOn {
		return errors.New("no such file")
	}
	mode := "once"
	if loop {
		mode = "loop"
	}
	f.h.events = append(f.h.events, "play "+asset+" "+mode)
	f.playing = true
	if !loop {
		f.lastDone = onCompletion
	}
	return nil
}

func (f *fakePlayer) Stop() error {
	f.h.events = append(f.h.events, "stop")
	f.playing = false
	return nil
}

func (f *fakePlayer) IsPlaying() bool { return f.playing }

func (f *fakePlayer) complete() {
	f.lastDone()
	f.h.drain()
}

type fakePublisher struct {
	h   *harness
	err error
}

func (f *fakePublisher) Publish(channel string, value int32) error {
	if f.err != nil {
		return f.err
	}
	f.h.events = append(f.h.events, fmt.Sprintf("publish %s %d", channel, value))
	return nil
}

type noticeRecorder struct{ h *harness }

func (n noticeRecorder) Notify(no domain.Notice) { n.h.notices = append(n.h.notices, no.Kind) }

type mapResolver map[int32]domain.ResolvedEntry

func (m mapResolver) Lookup(key int32) (domain.ResolvedEntry, bool) {
	e, ok := m[key]
	return e, ok
}

type fakeObs struct {
	counters map[string]float64
}

func (f *fakeObs) LogDebug(string, ...ports.Field)           {}
func (f *fakeObs) LogInfo(string, ...ports.Field)            {}
func (f *fakeObs) LogError(string, error, ...ports.Field)    {}
func (f *fakeObs) LogCritical(string, error, ...ports.Field) {}
func (f *fakeObs) IncCounter(name string, v float64)         { f.counters[name] += v }
func (f *fakeObs) ObserveLatency(string, float64)            {}
func (f *fakeObs) SetGauge(string, float64)                  {}
func (f *fakeObs) RecordDroppedFrame(string, string, error)  {}
