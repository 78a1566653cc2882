package main

import (
	"encoding/json"
)

// All traffic is JSON envelopes of the shape {"type": ..., "data": {...}}.
// Data stays a raw blob until a handler needs a field from it, so relayed
// payloads pass through untouched.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Messages coming from clients
type MatchmakingRequest struct {
	GameType string `json:"gameType"` // e.g. "battleships", "tictactoe"
	Action   string `json:"action"`   // "find_match" or "cancel"
}

// SessionRequest is the part of game_state/chat/signal/game_end payloads
// the server actually reads; everything else is opaque.
type SessionRequest struct {
	GameID  string `json:"gameId"`
	Message string `json:"message,omitempty"` // chat only
}

// Messages sent to clients
type ConnectionEstablished struct {
	ClientID string `json:"clientId"`
}

type OnlineCount struct {
	Count int `json:"count"`
}

type MatchmakingStatus struct {
	Status   string `json:"status"` // "waiting" or "timeout"
	GameType string `json:"gameType,omitempty"`
}

type GameMatched struct {
	GameID          string `json:"gameId"`
	IsHost          bool   `json:"isHost"`
	OpponentID      string `json:"opponentId"`
	OpponentCountry string `json:"opponentCountry,omitempty"`
}

type ChatEvent struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type PlayerDisconnected struct {
	PlayerID string `json:"playerId"`
}

type GameEnd struct {
	GameID string `json:"gameId"`
}

// marshalEvent wraps an outbound payload in the wire envelope.
func marshalEvent(kind string, data any) ([]byte, error) {
	if data == nil {
		return json.Marshal(Envelope{Type: kind})
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Type: kind, Data: raw})
}
