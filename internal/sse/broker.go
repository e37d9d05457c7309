// Package sse implements a per-user Server-Sent Events broker for live note updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is a message addressed to one user's clients.
type Event struct {
	UserID string      `json:"-"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data"`
}

type subscription struct {
	userID string
	ch     chan []byte
}

type noteEventReq struct {
	userID string
	kind   string
	noteID string
}

type countReq struct {
	userID string
	resp   chan int
}

const heartbeatInterval = 25 * time.Second

// Broker fans events out to the SSE clients of each user.
//
// A single event loop goroutine owns the client sets and the per-user
// throttle timestamps. Public methods talk to it over channels.
type Broker struct {
	tagsMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. tagsThrottle is the minimum gap between two
// tags.updated events for the same user.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}

	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[string]map[chan []byte]struct{})
	owners := make(map[chan []byte]string)
	lastTags := make(map[string]time.Time)

	send := func(event Event) {
		set := clients[event.UserID]
		if len(set) == 0 {
			return
		}
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range set {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range owners {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			set, ok := clients[sub.userID]
			if !ok {
				set = make(map[chan []byte]struct{})
				clients[sub.userID] = set
			}
			set[sub.ch] = struct{}{}
			owners[sub.ch] = sub.userID

		case ch := <-b.unsubscribeCh:
			userID, ok := owners[ch]
			if !ok {
				continue
			}
			delete(owners, ch)
			delete(clients[userID], ch)
			if len(clients[userID]) == 0 {
				delete(clients, userID)
				delete(lastTags, userID)
			}
			close(ch)

		case event := <-b.publishCh:
			send(event)

		case req := <-b.noteEventCh:
			switch req.kind {
			case "created", "updated", "deleted":
				send(Event{
					UserID: req.userID,
					Type:   "note." + req.kind,
					Data:   map[string]string{"id": req.noteID},
				})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastTags[req.userID]) >= b.tagsMin {
				lastTags[req.userID] = now
				send(Event{UserID: req.userID, Type: "tags.updated", Data: map[string]string{}})
			}

		case req := <-b.countReqCh:
			if req.userID == "" {
				req.resp <- len(owners)
			} else {
				req.resp <- len(clients[req.userID])
			}
		}
	}
}

// Close stops the event loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client for userID and returns its channel.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{userID: userID, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of clients of userID, or of all users
// when userID is empty.
func (b *Broker) ClientCount(userID string) int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- countReq{userID: userID, resp: resp}:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the clients of event.UserID.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent sends note.<kind> to userID and a throttled tags.updated.
func (b *Broker) PublishNoteEvent(userID, kind, noteID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{userID: userID, kind: kind, noteID: noteID}:
	case <-b.stopped:
	}
}

// Serve streams userID's events to w until the request ends or the broker closes.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(userID)
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
