package main

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live websocket connection. The transport handle is owned
// by the Registry entry; everything else talks to the client through
// Registry.send.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	mu      sync.Mutex
	country string
	closed  bool
}

func newClient(conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, 32),
		remoteAddr: remoteAddr,
	}
}

func (c *Client) setCountry(country string) {
	c.mu.Lock()
	c.country = country
	c.mu.Unlock()
}

func (c *Client) getCountry() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.country
}

// enqueue hands a marshaled message to the write pump. Returns false when
// the client is gone or its buffer is full; a full buffer is treated the
// same as a closed transport.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Registry maps clientId -> live connection and answers liveness queries.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

func (reg *Registry) add(c *Client) {
	reg.mu.Lock()
	reg.clients[c.id] = c
	reg.mu.Unlock()
}

// remove claims the connection. The first caller gets the *Client back and
// becomes responsible for cleanup; later callers get nil, which is how a
// close and an error firing for the same disconnect are deduplicated.
func (reg *Registry) remove(clientID string) *Client {
	reg.mu.Lock()
	c, exists := reg.clients[clientID]
	if exists {
		delete(reg.clients, clientID)
	}
	reg.mu.Unlock()

	if !exists {
		return nil
	}

	c.closeSend()
	if c.conn != nil {
		_ = c.conn.Close()
	}

	return c
}

func (reg *Registry) get(clientID string) *Client {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.clients[clientID]
}

func (reg *Registry) isLive(clientID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, exists := reg.clients[clientID]
	return exists
}

func (reg *Registry) count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.clients)
}

// send marshals and delivers an event to a single client, best-effort.
func (reg *Registry) send(clientID, kind string, data any) bool {
	raw, err := marshalEvent(kind, data)
	if err != nil {
		return false
	}

	reg.mu.RLock()
	c, exists := reg.clients[clientID]
	reg.mu.RUnlock()

	if !exists {
		return false
	}

	return c.enqueue(raw)
}

// broadcast fans an event out to every live client. Clients whose buffers
// are full just miss this one; they will get the next update.
func (reg *Registry) broadcast(kind string, data any) {
	raw, err := marshalEvent(kind, data)
	if err != nil {
		return
	}

	reg.mu.RLock()
	clients := make([]*Client, 0, len(reg.clients))
	for _, c := range reg.clients {
		clients = append(clients, c)
	}
	reg.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(raw)
	}
}
