package cluegame

import (
	"context"
	"time"
)

// DefaultBoundaryInterval is how often the live key is re-resolved.
const DefaultBoundaryInterval = time.Minute

// WaitForBoundary re-resolves the live key every interval and returns the
// first key that differs from current. ok is false if ctx ends first.
func WaitForBoundary(ctx context.Context, r Resolver, now func() time.Time, interval time.Duration, current Key) (next Key, ok bool) {
	if interval <= 0 {
		interval = DefaultBoundaryInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return Key{}, false
		case <-t.C:
			if ctx.Err() != nil {
				return Key{}, false
			}
			if k := r.Resolve(now()); k != current {
				return k, true
			}
		}
	}
}

// Watch starts the boundary watcher for this session. When the live key moves
// past the session's clue set the session is invalidated and notify, if set,
// receives the new key. The watcher stops when the session is closed. Only the
// first call has an effect.
func (s *Session) Watch(interval time.Duration, notify func(Key)) {
	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return
	}
	s.watching = true
	current := s.set.Key
	s.mu.Unlock()

	if current == (Key{}) {
		current = s.engine.resolver.Resolve(s.engine.now())
	}

	go func() {
		next, ok := WaitForBoundary(s.ctx, s.engine.resolver, s.engine.now, interval, current)
		if !ok {
			return
		}
		s.Invalidate(context.Background())
		if notify != nil {
			notify(next)
		}
	}()
}
