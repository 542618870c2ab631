package stream

import (
	"log/slog"
	"sync"
)

// inlet is the upstream side of an operator that pulls one event at a time.
type inlet struct {
	mu  sync.Mutex
	sub Subscription
}

// attach keeps s and requests the first event. An operator has a single
// upstream: a second subscription is cancelled.
func (in *inlet) attach(s Subscription, logger *slog.Logger, node string) {
	in.mu.Lock()
	if in.sub != nil {
		in.mu.Unlock()
		logger.Warn("second upstream refused",
			slog.String("node", node),
			slog.String("error", ErrAlreadySubscribed.Error()),
		)
		s.Cancel()
		return
	}
	in.sub = s
	in.mu.Unlock()
	s.Request(1)
}

// next requests one more event from upstream.
func (in *inlet) next() {
	in.mu.Lock()
	s := in.sub
	in.mu.Unlock()
	if s != nil {
		s.Request(1)
	}
}

// cancel detaches from upstream. It does not propagate further.
func (in *inlet) cancel() {
	in.mu.Lock()
	s := in.sub
	in.sub = nil
	in.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}
