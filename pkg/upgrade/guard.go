package upgrade

import "sync"

// guard admits one attempt per module at a time.
type guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newGuard() *guard {
	return &guard{busy: map[string]struct{}{}}
}

// acquire takes module's token. The returned release must be called once the
// attempt is over; ok is false when the module is already upgrading.
func (g *guard) acquire(module string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.busy[module]; taken {
		return nil, false
	}
	g.busy[module] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, module)
			g.mu.Unlock()
		})
	}, true
}
