package kioskbridge

import (
	"sync"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// NoticeFunc receives every notice emitted by the runtime. It is called on
// the dispatcher goroutine and must return quickly.
type NoticeFunc func(Notice)

// NewCallbackNotifier adapts a NoticeFunc into a Notifier so callers can plug
// plain functions without defining structs. A nil fn discards notices.
func NewCallbackNotifier(fn NoticeFunc) Notifier {
	return &callbackNotifier{fn: fn}
}

// NewChannelNotifier exposes notices via a channel; it returns the notifier,
// the read-only channel, and a close function that the caller should invoke
// during shutdown. Notices are dropped when the buffer is full or the notifier
// is closed, so a slow reader never stalls playback.
func NewChannelNotifier(buffer int) (Notifier, <-chan Notice, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Notice, buffer)
	n := &channelNotifier{ch: ch}
	return n, ch, n.close
}

type callbackNotifier struct {
	fn NoticeFunc
}

func (n *callbackNotifier) Notify(notice domain.Notice) {
	if n.fn == nil {
		return
	}
	n.fn(notice)
}

type channelNotifier struct {
	mu     sync.Mutex
	ch     chan Notice
	closed bool
}

func (n *channelNotifier) Notify(notice domain.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.ch <- notice:
	default:
	}
}

func (n *channelNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}

// logNotifier is the default when no notifier is configured.
type logNotifier struct {
	obs ports.Observability
}

func (n *logNotifier) Notify(notice domain.Notice) {
	fields := []ports.Field{{Key: "kind", Value: string(notice.Kind)}}
	if notice.Key != 0 {
		fields = append(fields, ports.Field{Key: "key", Value: notice.Key})
	}
	if notice.Text != "" {
		fields = append(fields, ports.Field{Key: "text", Value: notice.Text})
	}
	n.obs.LogInfo("notice", fields...)
}

var (
	_ ports.Notifier = (*callbackNotifier)(nil)
	_ ports.Notifier = (*channelNotifier)(nil)
	_ ports.Notifier = (*logNotifier)(nil)
)
