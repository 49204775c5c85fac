package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ghalamif/kioskbridge/internal/adapters/queue"
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// Handler receives signals on the dispatcher goroutine.
type Handler func(domain.Signal)

type item struct {
	sig domain.Signal
	fn  func()
}

// Dispatcher moves signal keys off transport read loops onto one serialized
// goroutine. Posted closures share the same queue, so anything that mutates
// orchestrator state runs in arrival order and never concurrently.
type Dispatcher struct {
	q        *queue.FIFO[item]
	obs      ports.Observability
	maxBatch int
	seq      atomic.Uint64
	running  atomic.Bool
}

func New(maxBatch int, obs ports.Observability) *Dispatcher {
	if maxBatch <= 0 {
		maxBatch = 64
	}
	return &Dispatcher{
		q:        queue.NewFIFO[item](maxBatch),
		obs:      obs,
		maxBatch: maxBatch,
	}
}

// Push implements ports.SignalSink. It never blocks.
func (d *Dispatcher) Push(key int32) {
	sig := domain.Signal{
		Key:        key,
		Seq:        d.seq.Add(1),
		ReceivedAt: time.Now(),
	}
	d.q.Push(item{sig: sig})
	d.obs.IncCounter(ports.MetricSignalsReceived, 1)
	d.obs.LogDebug("signal_received",
		ports.Field{Key: "key", Value: key},
		ports.Field{Key: "seq", Value: sig.Seq})
}

// Post schedules fn on the dispatcher goroutine after everything already queued.
func (d *Dispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	d.q.Push(item{fn: fn})
}

func (d *Dispatcher) Len() int { return d.q.Len() }

// Run drains the queue until ctx is cancelled. Only one Run may be active.
func (d *Dispatcher) Run(ctx context.Context, handle Handler) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	for {
		batch := d.q.DequeueBatch(d.maxBatch)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-d.q.Ready():
			}
			continue
		}

		for _, it := range batch {
			if it.fn != nil {
				it.fn()
				continue
			}
			handle(it.sig)
		}
		d.obs.SetGauge(ports.GaugeQueueLength, float64(d.q.Len()))

		if ctx.Err() != nil {
			return nil
		}
	}
}

var _ ports.SignalSink = (*Dispatcher)(nil)
