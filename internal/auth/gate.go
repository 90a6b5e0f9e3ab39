package auth

import "sync"

// Gate reduces session changes to the binary signal the navigation root
// consumes: authenticated or not. It carries no error state; if the
// provider stream dies the gate fails closed and reports unauthenticated.
type Gate struct {
	provider Provider
}

func NewGate(provider Provider) *Gate {
	return &Gate{provider: provider}
}

// StateSubscription is one open authenticated/unauthenticated stream.
type StateSubscription struct {
	C <-chan bool

	ch   chan bool
	done chan struct{}
	once sync.Once
}

// Close stops the observation. Each Observe call owns its subscription;
// the gate itself is restartable for every navigation-root mount.
func (s *StateSubscription) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *StateSubscription) emit(authenticated bool) {
	for {
		select {
		case s.ch <- authenticated:
			return
		case <-s.done:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Observe starts a fresh authenticated-state stream. The current state is
// delivered first, then one value per session change.
func (g *Gate) Observe() *StateSubscription {
	ch := make(chan bool, 1)
	sub := &StateSubscription{C: ch, ch: ch, done: make(chan struct{})}
	src := g.provider.Subscribe()

	go func() {
		defer src.Close()
		sub.emit(g.provider.Current() != nil)
		for {
			select {
			case <-sub.done:
				return
			case <-src.Done():
				// provider stream torn down: fail closed
				sub.emit(false)
				return
			case sess := <-src.C:
				sub.emit(sess != nil)
			}
		}
	}()
	return sub
}
