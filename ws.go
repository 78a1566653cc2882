package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	// Allow slow clients one full write before giving up on them.
	writeWait = 10 * time.Second

	// Protocol pings every 54s keep intermediaries with 60s idle timeouts
	// from cutting the connection; the pong resets the read deadline.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the connection, registers the client, and runs its
// read loop until the transport closes.
func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := newClient(conn, realIP(r))
		hub.registry.add(client)

		go client.writePump()

		hub.registry.send(client.id, "connection_established", ConnectionEstablished{
			ClientID: client.id,
		})
		hub.presence.update()

		logf(cfg, "CONN: Client %s connected from %s", client.id, client.remoteAddr)

		if hub.geo != nil {
			go func() {
				if country := hub.geo.lookup(client.remoteAddr); country != "" {
					client.setCountry(country)
				}
			}()
		}

		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.disconnect(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// A malformed message is the client's problem, not grounds
			// for closing the connection.
			logf(h.cfg, "CONN: Dropping malformed message from %s: %v", c.id, err)
			continue
		}

		h.handleMessage(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound envelope. Unknown types are
// ignored; protocol errors are logged and swallowed so one client's
// stale or forged message never disturbs anyone else.
func (h *Hub) handleMessage(c *Client, env Envelope) {
	switch env.Type {
	case "ping":
		h.registry.send(c.id, "pong", nil)

	case "matchmaking":
		var req MatchmakingRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			logf(h.cfg, "MATCH: Dropping malformed matchmaking request from %s: %v", c.id, err)
			return
		}

		switch req.Action {
		case "find_match", "":
			if err := h.findMatch(c.id, req.GameType); err != nil {
				// Duplicate searches are idempotent no-ops.
				logf(h.cfg, "MATCH: Ignoring request from %s: %v", c.id, err)
			}
		case "cancel":
			h.cancelMatch(c.id)
		}

	case "game_state":
		var req SessionRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			logf(h.cfg, "RELAY: Dropping malformed game_state from %s: %v", c.id, err)
			return
		}
		if err := h.relayGameState(c.id, req.GameID, env.Data); err != nil {
			logf(h.cfg, "RELAY: Dropping game_state from %s for %q: %v", c.id, req.GameID, err)
		}

	case "chat":
		var req SessionRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			logf(h.cfg, "RELAY: Dropping malformed chat from %s: %v", c.id, err)
			return
		}
		if err := h.relayChat(c.id, req.GameID, req.Message); err != nil {
			logf(h.cfg, "RELAY: Dropping chat from %s for %q: %v", c.id, req.GameID, err)
		}

	case "signal":
		var req SessionRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			logf(h.cfg, "RELAY: Dropping malformed signal from %s: %v", c.id, err)
			return
		}
		if err := h.relaySignal(c.id, req.GameID, env.Data); err != nil {
			logf(h.cfg, "RELAY: Dropping signal from %s for %q: %v", c.id, req.GameID, err)
		}

	case "game_end":
		var req SessionRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			logf(h.cfg, "GAMES: Dropping malformed game_end from %s: %v", c.id, err)
			return
		}
		if err := h.endGame(c.id, req.GameID); err != nil {
			logf(h.cfg, "GAMES: Dropping game_end from %s for %q: %v", c.id, req.GameID, err)
		}

	default:
		// ignore unknown types
	}
}
