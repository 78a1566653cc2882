package main

import (
	"sync"
	"time"
)

// PresenceBroadcaster pushes the connected-client count to everyone on
// each registration and unregistration. With an interval set, updates are
// coalesced to at most one broadcast per tick, which keeps high
// connect/disconnect churn from turning into a broadcast storm. A client
// that misses an update just gets the next one.
type PresenceBroadcaster struct {
	registry *Registry
	interval time.Duration

	mu     sync.Mutex
	dirty  bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newPresenceBroadcaster(registry *Registry, interval time.Duration) *PresenceBroadcaster {
	p := &PresenceBroadcaster{
		registry: registry,
		interval: interval,
		stopCh:   make(chan struct{}),
	}

	if interval > 0 {
		p.wg.Add(1)
		go p.loop()
	}

	return p
}

// update signals that the count changed. Immediate mode broadcasts right
// away; coalesced mode marks the count dirty for the next tick.
func (p *PresenceBroadcaster) update() {
	if p.interval <= 0 {
		p.broadcast()
		return
	}

	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()
}

func (p *PresenceBroadcaster) broadcast() {
	p.registry.broadcast("online_count", OnlineCount{
		Count: p.registry.count(),
	})
}

func (p *PresenceBroadcaster) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			pending := p.dirty
			p.dirty = false
			p.mu.Unlock()

			if pending {
				p.broadcast()
			}
		case <-p.stopCh:
			return
		}
	}
}

func (p *PresenceBroadcaster) stop() {
	if p.interval > 0 {
		close(p.stopCh)
		p.wg.Wait()
	}
}
