package main

import (
	"sync"
	"time"
)

// Hub wires the registry, waiting queue and session store together. The
// queue and session store are only ever touched while holding mu, which
// makes each pop-or-enqueue sequence atomic: two simultaneous searchers
// can never both claim the same waiting peer, and can never both end up
// waiting when they could have matched each other.
type Hub struct {
	cfg      *Config
	registry *Registry
	presence *PresenceBroadcaster
	geo      *GeoResolver

	mu       sync.Mutex
	queue    *WaitingQueue
	sessions *SessionStore

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newHub(cfg *Config) *Hub {
	registry := newRegistry()

	h := &Hub{
		cfg:      cfg,
		registry: registry,
		presence: newPresenceBroadcaster(registry, cfg.presenceInterval),
		queue:    newWaitingQueue(),
		sessions: newSessionStore(),
		stopCh:   make(chan struct{}),
	}

	if cfg.geoLookups {
		h.geo = newGeoResolver()
	}

	if cfg.waitTimeout > 0 {
		h.wg.Add(1)
		go h.reaperLoop()
	}

	return h
}

func (h *Hub) stop() {
	close(h.stopCh)
	h.wg.Wait()
	h.presence.stop()
}

// disconnect restores all invariants when a client's transport closes.
// The registry claim makes it run exactly once even if the transport
// fires both a close and an error for the same event.
func (h *Hub) disconnect(clientID string) {
	c := h.registry.remove(clientID)
	if c == nil {
		return
	}

	h.mu.Lock()
	h.queue.remove(clientID)
	session := h.sessions.byParticipant(clientID)
	if session != nil {
		h.sessions.delete(session.ID)
	}
	h.mu.Unlock()

	if session != nil {
		peer, _ := session.other(clientID)
		if h.registry.isLive(peer) {
			h.registry.send(peer, "player_disconnected", PlayerDisconnected{
				PlayerID: clientID,
			})
		}
		logf(h.cfg, "GAMES: Session %s ended, %s disconnected", session.ID, clientID)
	}

	h.presence.update()

	logf(h.cfg, "CONN: Client %s disconnected", clientID)
}

// reaperLoop periodically drops searchers that have been queued longer
// than the wait timeout, telling them matchmaking timed out. Purely a
// hygiene measure; by default players may wait forever.
func (h *Hub) reaperLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.waitTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.reapStaleWaiters()
		case <-h.stopCh:
			return
		}
	}
}

func (h *Hub) reapStaleWaiters() {
	cutoff := time.Now().Add(-h.cfg.waitTimeout)

	h.mu.Lock()
	stale := h.queue.stale(cutoff)
	for _, entry := range stale {
		h.queue.remove(entry.ClientID)
	}
	h.mu.Unlock()

	for _, entry := range stale {
		h.registry.send(entry.ClientID, "matchmaking_status", MatchmakingStatus{
			Status:   "timeout",
			GameType: entry.GameType,
		})
		logf(h.cfg, "MATCH: Dropped %s from %s queue after %s", entry.ClientID, entry.GameType, h.cfg.waitTimeout)
	}
}

// stats reports the counters surfaced by the /status endpoint.
func (h *Hub) stats() (connections, sessions, waiting int) {
	h.mu.Lock()
	sessions = h.sessions.len()
	waiting = h.queue.len()
	h.mu.Unlock()

	return h.registry.count(), sessions, waiting
}
