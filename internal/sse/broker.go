// Package sse streams block and document changes to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/smartblock/internal/events"
)

// Event is one SSE message: Type becomes the event name, Data the JSON payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Document event kinds reported by the vault watcher.
const (
	DocumentCreated = "created"
	DocumentUpdated = "updated"
	DocumentDeleted = "deleted"
)

// IndexUpdated is sent at most once per throttle interval after document
// changes, telling clients to refresh cross-document views.
const IndexUpdated = "index.updated"

type documentReq struct {
	kind string
	path string
}

// Broker fans events out to connected SSE clients.
//
// A single loop goroutine owns the client set and the throttle timestamp.
// Public methods talk to it over channels.
type Broker struct {
	indexMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	documentCh    chan documentReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. indexThrottle bounds how often IndexUpdated is
// sent; zero means two seconds.
func NewBroker(indexThrottle time.Duration) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}
	b := &Broker{
		indexMin:      indexThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		documentCh:    make(chan documentReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

// frame renders one SSE message.
func frame(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastIndex time.Time

	broadcast := func(e Event) {
		raw, err := frame(e)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			broadcast(e)

		case req := <-b.documentCh:
			switch req.kind {
			case DocumentCreated, DocumentUpdated, DocumentDeleted:
				broadcast(Event{Type: "document." + req.kind, Data: map[string]string{"path": req.path}})
			default:
				continue
			}
			if now := time.Now(); now.Sub(lastIndex) >= b.indexMin {
				lastIndex = now
				broadcast(Event{Type: IndexUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
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

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
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

// Publish sends e to all clients.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishDocumentEvent reports a watcher change; it matches
// index.EventCallback.
func (b *Broker) PublishDocumentEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.documentCh <- documentReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// Forward relays a bus event to clients. Subscribe it with
// bus.SubscribeAll(broker.Forward).
func (b *Broker) Forward(e events.Event) error {
	b.Publish(Event{Type: string(e.Type), Data: e})
	return nil
}

// ServeHTTP is the SSE endpoint (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
