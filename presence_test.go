package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPresenceImmediateBroadcast(t *testing.T) {
	reg := newRegistry()
	a := newClient(nil, "203.0.113.9:40000")
	b := newClient(nil, "203.0.113.9:40001")
	reg.add(a)
	reg.add(b)

	p := newPresenceBroadcaster(reg, 0)
	defer p.stop()

	p.update()

	for _, c := range []*Client{a, b} {
		count := decodeEvent[OnlineCount](t, nextEventOfType(t, c, "online_count"))
		assert.Equal(t, 2, count.Count)
	}
}

func TestPresenceCoalescesUpdates(t *testing.T) {
	reg := newRegistry()
	a := newClient(nil, "203.0.113.9:40000")
	reg.add(a)

	p := newPresenceBroadcaster(reg, 50*time.Millisecond)
	defer p.stop()

	// A burst of updates within one tick produces a single broadcast.
	for i := 0; i < 10; i++ {
		p.update()
	}

	nextEventOfType(t, a, "online_count")
	expectNoEvent(t, a)
}

func TestPresenceQuietWhenClean(t *testing.T) {
	reg := newRegistry()
	a := newClient(nil, "203.0.113.9:40000")
	reg.add(a)

	p := newPresenceBroadcaster(reg, 20*time.Millisecond)
	defer p.stop()

	// Ticks without an update in between stay silent.
	expectNoEvent(t, a)
}
