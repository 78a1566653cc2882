package main

import (
	"container/list"
	"time"
)

// WaitingEntry is one queued matchmaking request.
type WaitingEntry struct {
	ClientID   string
	GameType   string
	EnqueuedAt time.Time
}

// WaitingQueue keeps a FIFO of searchers per game type, with O(1)
// removal by client for cancellation. It is not safe for concurrent use
// on its own; the Hub serializes all access under its matchmaking mutex.
type WaitingQueue struct {
	queues  map[string]*list.List    // gameType -> *WaitingEntry values
	entries map[string]*list.Element // clientID -> its element
}

func newWaitingQueue() *WaitingQueue {
	return &WaitingQueue{
		queues:  make(map[string]*list.List),
		entries: make(map[string]*list.Element),
	}
}

// enqueue appends the client to the FIFO for gameType. A client may only
// search for one game at a time, regardless of type.
func (q *WaitingQueue) enqueue(gameType, clientID string) error {
	if _, exists := q.entries[clientID]; exists {
		return ErrAlreadyQueued
	}

	queue, exists := q.queues[gameType]
	if !exists {
		queue = list.New()
		q.queues[gameType] = queue
	}

	q.entries[clientID] = queue.PushBack(&WaitingEntry{
		ClientID:   clientID,
		GameType:   gameType,
		EnqueuedAt: time.Now(),
	})

	return nil
}

// popOldestCompatible returns and removes the earliest-enqueued client for
// gameType, never returning the requester itself. Entries whose connection
// has died are discarded as a side effect of the scan, so the queue heals
// itself instead of accumulating stale entries.
func (q *WaitingQueue) popOldestCompatible(gameType, excluding string, isLive func(string) bool) (string, bool) {
	queue, exists := q.queues[gameType]
	if !exists {
		return "", false
	}

	for elem := queue.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*WaitingEntry)

		if entry.ClientID != excluding && !isLive(entry.ClientID) {
			queue.Remove(elem)
			delete(q.entries, entry.ClientID)
			elem = next
			continue
		}

		if entry.ClientID == excluding {
			elem = next
			continue
		}

		queue.Remove(elem)
		delete(q.entries, entry.ClientID)

		return entry.ClientID, true
	}

	return "", false
}

// remove drops the client's entry if present; idempotent.
func (q *WaitingQueue) remove(clientID string) bool {
	elem, exists := q.entries[clientID]
	if !exists {
		return false
	}

	entry := elem.Value.(*WaitingEntry)
	q.queues[entry.GameType].Remove(elem)
	delete(q.entries, clientID)

	return true
}

func (q *WaitingQueue) contains(clientID string) bool {
	_, exists := q.entries[clientID]
	return exists
}

func (q *WaitingQueue) len() int {
	return len(q.entries)
}

// stale returns every entry enqueued before cutoff, oldest first within
// each game type. Used by the optional wait-timeout reaper.
func (q *WaitingQueue) stale(cutoff time.Time) []*WaitingEntry {
	var out []*WaitingEntry

	for _, queue := range q.queues {
		for elem := queue.Front(); elem != nil; elem = elem.Next() {
			entry := elem.Value.(*WaitingEntry)
			if entry.EnqueuedAt.Before(cutoff) {
				out = append(out, entry)
			}
		}
	}

	return out
}
