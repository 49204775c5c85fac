package orchestrator

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// Config names the default assets and the outbound resume signal.
type Config struct {
	IdleAsset     string
	SpeakingAsset string
	ResumeChannel string
	ResumeValue   int32
}

func (c *Config) ApplyDefaults() {
	if c.ResumeChannel == "" {
		c.ResumeChannel = "/start_movement"
	}
	if c.ResumeValue == 0 {
		c.ResumeValue = 1
	}
}

// Poster runs fn on the serialized context that owns the orchestrator.
type Poster interface {
	Post(fn func())
}

// Orchestrator sequences announcement, media playback and the resume signal
// for each signal key. Every method except Session must run on the Poster's
// goroutine; surface callbacks are re-posted there before touching state.
type Orchestrator struct {
	cfg       Config
	resolver  ports.KeyResolver
	speech    ports.SpeechSurface
	player    ports.PlaybackSurface
	publisher ports.Publisher
	notifier  ports.Notifier
	obs       ports.Observability
	poster    Poster
	now       func() time.Time

	phase        domain.Phase
	activeKey    int32
	gen          uint64
	playToken    uint64
	speakingLoop bool
	idleLooping  bool
	startedAt    time.Time

	snapshot atomic.Pointer[domain.PlaybackSession]
}

type Deps struct {
	Resolver  ports.KeyResolver
	Speech    ports.SpeechSurface
	Player    ports.PlaybackSurface
	Publisher ports.Publisher
	Notifier  ports.Notifier
	Obs       ports.Observability
	Poster    Poster
}

func New(cfg Config, d Deps) (*Orchestrator, error) {
	switch {
	case d.Resolver == nil:
		return nil, errors.New("orchestrator: resolver is required")
	case d.Speech == nil:
		return nil, errors.New("orchestrator: speech surface is required")
	case d.Player == nil:
		return nil, errors.New("orchestrator: playback surface is required")
	case d.Publisher == nil:
		return nil, errors.New("orchestrator: publisher is required")
	case d.Notifier == nil:
		return nil, errors.New("orchestrator: notifier is required")
	case d.Obs == nil:
		return nil, errors.New("orchestrator: observability is required")
	case d.Poster == nil:
		return nil, errors.New("orchestrator: poster is required")
	}
	cfg.ApplyDefaults()

	o := &Orchestrator{
		cfg:       cfg,
		resolver:  d.Resolver,
		speech:    d.Speech,
		player:    d.Player,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		obs:       d.Obs,
		poster:    d.Poster,
		now:       time.Now,
	}
	o.publishSnapshot()
	return o, nil
}

// Start puts the idle loop on screen.
func (o *Orchestrator) Start() {
	o.enterIdle()
}

// Session returns the latest session snapshot. Safe from any goroutine.
func (o *Orchestrator) Session() domain.PlaybackSession {
	return *o.snapshot.Load()
}

// HandleSignal applies the dedup guard and starts a sequence for sig.Key.
func (o *Orchestrator) HandleSignal(sig domain.Signal) {
	if o.phase != domain.PhaseIdle && o.activeKey == sig.Key {
		o.obs.IncCounter(ports.MetricDuplicateSignals, 1)
		o.obs.LogDebug("signal_duplicate",
			ports.Field{Key: "key", Value: sig.Key},
			ports.Field{Key: "phase", Value: o.phase.String()})
		return
	}

	if o.phase != domain.PhaseIdle {
		o.obs.LogInfo("sequence_superseded",
			ports.Field{Key: "previous_key", Value: o.activeKey},
			ports.Field{Key: "key", Value: sig.Key})
		if o.phase == domain.PhaseAnnouncing {
			o.notify(domain.NoticeCaptionCleared, o.activeKey, "")
		}
	}

	o.gen++
	o.activeKey = sig.Key
	o.startedAt = o.now()

	entry, ok := o.resolver.Lookup(sig.Key)
	hasDesc := ok && entry.HasDescription()
	hasAsset := ok && entry.HasAsset()

	if !hasDesc && !hasAsset {
		o.obs.IncCounter(ports.MetricResolutionMisses, 1)
		o.obs.LogInfo("signal_unresolved", ports.Field{Key: "key", Value: sig.Key})
		o.notify(domain.NoticeUnresolved, sig.Key, "")
		o.enterIdle()
		return
	}

	o.obs.IncCounter(ports.MetricSequencesStarted, 1)
	o.obs.LogInfo("sequence_started",
		ports.Field{Key: "key", Value: sig.Key},
		ports.Field{Key: "seq", Value: sig.Seq},
		ports.Field{Key: "announce", Value: hasDesc},
		ports.Field{Key: "asset", Value: entry.AssetRef})

	if hasDesc {
		o.announce(o.gen, entry)
		return
	}
	o.playMedia(o.gen, entry)
}

func (o *Orchestrator) announce(gen uint64, entry domain.ResolvedEntry) {
	o.setPhase(domain.PhaseAnnouncing)
	o.notify(domain.NoticeCaptionShown, entry.Key, entry.Description)

	cb := ports.SpeechCallbacks{
		OnStart: func() { o.poster.Post(func() { o.onSpeechStart(gen) }) },
		OnDone:  func() { o.poster.Post(func() { o.onSpeechEnd(gen, entry, nil) }) },
		OnError: func(err error) { o.poster.Post(func() { o.onSpeechEnd(gen, entry, err) }) },
	}
	if err := o.speech.Speak(uuid.NewString(), entry.Description, cb); err != nil {
		o.onSpeechEnd(gen, entry, err)
	}
}

func (o *Orchestrator) onSpeechStart(gen uint64) {
	if gen != o.gen || o.phase != domain.PhaseAnnouncing || o.speakingLoop {
		return
	}
	o.playToken++
	if err := o.player.Play(o.cfg.SpeakingAsset, true, nil); err != nil {
		o.obs.LogError("speaking_loop_failed", err, ports.Field{Key: "asset", Value: o.cfg.SpeakingAsset})
		return
	}
	o.speakingLoop = true
	o.idleLooping = false
}

// onSpeechEnd handles both normal completion and synthesis failure.
func (o *Orchestrator) onSpeechEnd(gen uint64, entry domain.ResolvedEntry, err error) {
	if gen != o.gen || o.phase != domain.PhaseAnnouncing {
		return
	}
	if err != nil {
		o.obs.LogError("speech_failed", err, ports.Field{Key: "key", Value: entry.Key})
	}
	o.notify(domain.NoticeCaptionCleared, entry.Key, "")

	if o.speakingLoop {
		if err := o.player.Stop(); err != nil {
			o.obs.LogError("speaking_loop_stop_failed", err)
		}
		o.speakingLoop = false
	}

	if !entry.HasAsset() {
		o.obs.LogInfo("asset_missing", ports.Field{Key: "key", Value: entry.Key})
		o.notify(domain.NoticeNoAsset, entry.Key, "")
		o.enterIdle()
		return
	}
	o.playMedia(gen, entry)
}

func (o *Orchestrator) playMedia(gen uint64, entry domain.ResolvedEntry) {
	o.setPhase(domain.PhasePlaying)
	o.speakingLoop = false
	o.idleLooping = false

	o.playToken++
	token := o.playToken
	onDone := func() { o.poster.Post(func() { o.onMediaDone(gen, token) }) }
	if err := o.player.Play(entry.AssetRef, false, onDone); err != nil {
		o.obs.LogError("playback_failed", err,
			ports.Field{Key: "key", Value: entry.Key},
			ports.Field{Key: "asset", Value: entry.AssetRef})
		o.notify(domain.NoticePlaybackFailed, entry.Key, err.Error())
		o.enterIdle()
	}
}

func (o *Orchestrator) onMediaDone(gen, token uint64) {
	if gen != o.gen || token != o.playToken || o.phase != domain.PhasePlaying {
		return
	}

	if err := o.publisher.Publish(o.cfg.ResumeChannel, o.cfg.ResumeValue); err != nil {
		o.obs.IncCounter(ports.MetricResumeFailures, 1)
		o.obs.LogError("resume_send_failed", err,
			ports.Field{Key: "key", Value: o.activeKey},
			ports.Field{Key: "channel", Value: o.cfg.ResumeChannel})
	} else {
		o.obs.IncCounter(ports.MetricResumeSignals, 1)
		o.obs.LogInfo("resume_sent",
			ports.Field{Key: "key", Value: o.activeKey},
			ports.Field{Key: "channel", Value: o.cfg.ResumeChannel})
	}
	o.obs.ObserveLatency(ports.HistSequenceDuration, o.now().Sub(o.startedAt).Seconds())
	o.enterIdle()
}

func (o *Orchestrator) enterIdle() {
	o.speakingLoop = false
	o.setPhase(domain.PhaseIdle)
	if o.idleLooping {
		return
	}
	o.playToken++
	if err := o.player.Play(o.cfg.IdleAsset, true, nil); err != nil {
		o.obs.LogError("idle_loop_failed", err, ports.Field{Key: "asset", Value: o.cfg.IdleAsset})
		return
	}
	o.idleLooping = true
}

func (o *Orchestrator) setPhase(p domain.Phase) {
	o.phase = p
	o.publishSnapshot()
}

func (o *Orchestrator) publishSnapshot() {
	s := domain.PlaybackSession{
		Phase:      o.phase,
		Generation: o.gen,
	}
	if o.phase != domain.PhaseIdle {
		s.ActiveKey = o.activeKey
		s.HasActive = true
	}
	o.snapshot.Store(&s)
}

func (o *Orchestrator) notify(kind domain.NoticeKind, key int32, text string) {
	o.notifier.Notify(domain.Notice{Kind: kind, Key: key, Text: text, At: o.now()})
}
