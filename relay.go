package main

import (
	"encoding/json"
)

// The relay forwards opaque payloads between the two participants of a
// session and nothing else; it never inspects game semantics. A failed
// send to the peer is treated as a disconnect that simply hasn't been
// processed yet.

// relayGameState caches the payload on the session (last-write-wins, no
// merge) and forwards it byte-for-byte to the other participant.
func (h *Hub) relayGameState(clientID, gameID string, payload json.RawMessage) error {
	h.mu.Lock()
	session := h.sessions.get(gameID)
	if session == nil {
		h.mu.Unlock()
		return ErrNotInSession
	}
	peer, member := session.other(clientID)
	if !member {
		h.mu.Unlock()
		return ErrNotInSession
	}
	session.State = payload
	h.mu.Unlock()

	if !h.registry.send(peer, "game_state", payload) && h.registry.isLive(peer) {
		h.disconnect(peer)
	}

	return nil
}

// relayChat forwards a chat line to the other participant only. The
// sender gets no echo; the client renders its own outgoing messages.
func (h *Hub) relayChat(clientID, gameID, message string) error {
	peer, err := h.peerOf(clientID, gameID)
	if err != nil {
		return err
	}

	if !h.registry.send(peer, "chat", ChatEvent{
		Sender:  clientID,
		Message: message,
	}) && h.registry.isLive(peer) {
		h.disconnect(peer)
	}

	return nil
}

// relaySignal forwards connection-negotiation payloads (the site's
// audio/video chat rides the same channel as game traffic). Never cached.
func (h *Hub) relaySignal(clientID, gameID string, payload json.RawMessage) error {
	peer, err := h.peerOf(clientID, gameID)
	if err != nil {
		return err
	}

	if !h.registry.send(peer, "signal", payload) && h.registry.isLive(peer) {
		h.disconnect(peer)
	}

	return nil
}

// endGame tears the session down on an explicit finish and tells the
// other participant. Both sides stay connected for a rematch.
func (h *Hub) endGame(clientID, gameID string) error {
	h.mu.Lock()
	session := h.sessions.get(gameID)
	if session == nil {
		h.mu.Unlock()
		return ErrNotInSession
	}
	peer, member := session.other(clientID)
	if !member {
		h.mu.Unlock()
		return ErrNotInSession
	}
	h.sessions.delete(gameID)
	h.mu.Unlock()

	h.registry.send(peer, "game_end", GameEnd{
		GameID: gameID,
	})

	logf(h.cfg, "GAMES: Session %s ended by %s", gameID, clientID)

	return nil
}

// peerOf resolves the other participant of gameID, failing when clientID
// is not a current member or no such session exists.
func (h *Hub) peerOf(clientID, gameID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session := h.sessions.get(gameID)
	if session == nil {
		return "", ErrNotInSession
	}

	peer, member := session.other(clientID)
	if !member {
		return "", ErrNotInSession
	}

	return peer, nil
}
