package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tastefun/core/events"
)

const eventStreamHistoryLimit = 2048

// StreamEvent is a committed event as delivered to stream subscribers.
type StreamEvent struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"timestamp"`
}

func cloneStreamEvent(evt StreamEvent) StreamEvent {
	cloned := evt
	if evt.Attributes != nil {
		cloned.Attributes = make(map[string]string, len(evt.Attributes))
		for k, v := range evt.Attributes {
			cloned.Attributes[k] = v
		}
	}
	return cloned
}

func (n *Node) publishEvent(evt events.Event) {
	if n == nil || evt == nil {
		return
	}
	typed := events.ToTypes(evt).Clone()
	update := StreamEvent{Type: typed.Type, Attributes: typed.Attributes, Timestamp: n.now()}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan StreamEvent)
	}
	n.streamSeq++
	update.Sequence = n.streamSeq
	update.Cursor = strconv.FormatUint(update.Sequence, 10)
	n.streamHistory = append(n.streamHistory, cloneStreamEvent(update))
	if len(n.streamHistory) > eventStreamHistoryLimit {
		excess := len(n.streamHistory) - eventStreamHistoryLimit
		trimmed := make([]StreamEvent, eventStreamHistoryLimit)
		copy(trimmed, n.streamHistory[excess:])
		n.streamHistory = trimmed
	}
	subscribers := make([]chan StreamEvent, 0, len(n.streamSubs))
	for _, ch := range n.streamSubs {
		subscribers = append(subscribers, ch)
	}
	// Sends happen under the lock so a concurrent cancel cannot close a
	// channel mid-send. They never block.
	for _, ch := range subscribers {
		select {
		case ch <- cloneStreamEvent(update):
		default:
		}
	}
	n.streamMu.Unlock()
}

// SubscribeEvents registers a subscriber for committed events published
// after the supplied cursor. The backlog holds retained history newer than
// the cursor. Slow subscribers drop events rather than block commits.
func (n *Node) SubscribeEvents(ctx context.Context, cursor string) (<-chan StreamEvent, func(), []StreamEvent, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	updates := make(chan StreamEvent, 32)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan StreamEvent)
	}
	id := n.streamNextID
	n.streamNextID++
	n.streamSubs[id] = updates
	backlog := make([]StreamEvent, 0, len(n.streamHistory))
	for _, entry := range n.streamHistory {
		if entry.Sequence > since {
			backlog = append(backlog, cloneStreamEvent(entry))
		}
	}
	n.streamMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.streamMu.Lock()
			sub, ok := n.streamSubs[id]
			if ok {
				delete(n.streamSubs, id)
				close(sub)
			}
			n.streamMu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}
