package main

// The original client defaults to battleships when no game type is given.
const defaultGameType = "battleships"

// findMatch drives a client from "requested match" to either a session or
// the waiting queue. The decision (pop-or-enqueue plus session creation)
// happens in one critical section; notifications go out after it, so a
// slow send can never hold up matching.
func (h *Hub) findMatch(clientID, gameType string) error {
	if gameType == "" {
		gameType = defaultGameType
	}

	h.mu.Lock()

	if h.sessions.byParticipant(clientID) != nil {
		h.mu.Unlock()
		return ErrAlreadyInSession
	}
	if h.queue.contains(clientID) {
		h.mu.Unlock()
		return ErrAlreadyQueued
	}

	peer, found := h.queue.popOldestCompatible(gameType, clientID, h.registry.isLive)
	if !found {
		_ = h.queue.enqueue(gameType, clientID)
		h.mu.Unlock()

		h.registry.send(clientID, "matchmaking_status", MatchmakingStatus{
			Status:   "waiting",
			GameType: gameType,
		})
		logf(h.cfg, "MATCH: Client %s waiting for %s", clientID, gameType)

		return nil
	}

	session := h.sessions.create(peer, clientID, gameType)
	h.mu.Unlock()

	h.notifyMatched(session)

	logf(h.cfg, "MATCH: Session %s matched %s (host) with %s for %s",
		session.ID, session.Host, session.Guest, gameType)

	return nil
}

// notifyMatched tells both participants about their new session. Opponent
// country is whatever the registration-time lookup produced by now; it is
// never waited for. A failed send means that participant is already gone,
// which the disconnect handler resolves.
func (h *Hub) notifyMatched(session *Session) {
	hostCountry := ""
	guestCountry := ""
	if c := h.registry.get(session.Host); c != nil {
		hostCountry = c.getCountry()
	}
	if c := h.registry.get(session.Guest); c != nil {
		guestCountry = c.getCountry()
	}

	hostOK := h.registry.send(session.Host, "game_matched", GameMatched{
		GameID:          session.ID,
		IsHost:          true,
		OpponentID:      session.Guest,
		OpponentCountry: guestCountry,
	})

	guestOK := h.registry.send(session.Guest, "game_matched", GameMatched{
		GameID:          session.ID,
		IsHost:          false,
		OpponentID:      session.Host,
		OpponentCountry: hostCountry,
	})

	// Failure cleanup only after both sends, so the surviving side sees
	// game_matched before player_disconnected. The extra teardown covers a
	// peer whose disconnect was processed before the session existed, which
	// the claim-based handler cannot see.
	if !hostOK {
		h.disconnect(session.Host)
		h.teardownSession(session.ID, session.Host)
	}
	if !guestOK {
		h.disconnect(session.Guest)
		h.teardownSession(session.ID, session.Guest)
	}
}

// teardownSession deletes the session if it still exists and notifies the
// participant opposite departed. Idempotent.
func (h *Hub) teardownSession(sessionID, departed string) {
	h.mu.Lock()
	session := h.sessions.get(sessionID)
	if session != nil {
		h.sessions.delete(sessionID)
	}
	h.mu.Unlock()

	if session == nil {
		return
	}

	peer, _ := session.other(departed)
	if h.registry.isLive(peer) {
		h.registry.send(peer, "player_disconnected", PlayerDisconnected{
			PlayerID: departed,
		})
	}
}

// cancelMatch removes the client's waiting entry, if any. A cancel racing
// with an in-flight match resolves in favor of the match: the entry is
// already gone, the cancel becomes a no-op, and the client has (or will)
// receive game_matched instead.
func (h *Hub) cancelMatch(clientID string) {
	h.mu.Lock()
	removed := h.queue.remove(clientID)
	h.mu.Unlock()

	if removed {
		logf(h.cfg, "MATCH: Client %s cancelled search", clientID)
	}
}
