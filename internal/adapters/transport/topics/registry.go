package topics

import "sync"

// AdvertiseFunc performs the protocol-specific advertise side effect.
type AdvertiseFunc func(channel string) error

// Registry tracks which outbound channels were declared on one connection.
// A channel is advertised at most once; a new connection gets a new Registry,
// since advertisements do not survive a reconnect.
type Registry struct {
	mu         sync.Mutex
	advertised map[string]struct{}
	advertise  AdvertiseFunc
}

// New returns an empty registry. A nil fn makes Advertise bookkeeping only.
func New(fn AdvertiseFunc) *Registry {
	return &Registry{
		advertised: make(map[string]struct{}),
		advertise:  fn,
	}
}

// Advertise runs the side effect the first time channel is seen. The channel
// stays unmarked if the side effect fails, so the next call retries it.
func (r *Registry) Advertise(channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.advertised[channel]; ok {
		return nil
	}
	if r.advertise != nil {
		if err := r.advertise(channel); err != nil {
			return err
		}
	}
	r.advertised[channel] = struct{}{}
	return nil
}

func (r *Registry) IsAdvertised(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.advertised[channel]
	return ok
}
