package main

import (
	"crypto/rand"
	"encoding/json"
	"time"
)

// Session is an active pairing of exactly two clients. The host is the
// player who was already waiting; the label only seeds game logic (who
// moves first) and carries no authority over the relay.
type Session struct {
	ID        string
	Host      string
	Guest     string
	GameType  string
	State     json.RawMessage // last relayed payload, for reconnect rehydration only
	CreatedAt time.Time
}

// other returns the opposite participant, or false if clientID is not a
// participant at all.
func (s *Session) other(clientID string) (string, bool) {
	switch clientID {
	case s.Host:
		return s.Guest, true
	case s.Guest:
		return s.Host, true
	}
	return "", false
}

// SessionStore holds the active sessions plus a participant index. Like
// WaitingQueue, all access is serialized by the Hub's matchmaking mutex.
type SessionStore struct {
	sessions map[string]*Session
	byClient map[string]string // clientID -> sessionID
}

func newSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		byClient: make(map[string]string),
	}
}

func (st *SessionStore) create(host, guest, gameType string) *Session {
	session := &Session{
		ID:        st.newSessionID(),
		Host:      host,
		Guest:     guest,
		GameType:  gameType,
		CreatedAt: time.Now(),
	}

	st.sessions[session.ID] = session
	st.byClient[host] = session.ID
	st.byClient[guest] = session.ID

	return session
}

func (st *SessionStore) get(sessionID string) *Session {
	return st.sessions[sessionID]
}

func (st *SessionStore) byParticipant(clientID string) *Session {
	sessionID, exists := st.byClient[clientID]
	if !exists {
		return nil
	}
	return st.sessions[sessionID]
}

// delete removes the session and both participant index entries, so a
// session never lingers with one side.
func (st *SessionStore) delete(sessionID string) {
	session, exists := st.sessions[sessionID]
	if !exists {
		return
	}

	delete(st.byClient, session.Host)
	delete(st.byClient, session.Guest)
	delete(st.sessions, sessionID)
}

func (st *SessionStore) len() int {
	return len(st.sessions)
}

// newSessionID generates a crypto-random 8-char ID and ensures it doesn't
// collide with an existing session.
func (st *SessionStore) newSessionID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := st.sessions[id]; !exists {
			return id
		}
	}
}
