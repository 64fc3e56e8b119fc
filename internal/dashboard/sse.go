package dashboard

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// Event represents a single Server-Sent Event payload
type Event struct {
	Type string `json:"type"`
	JSON []byte `json:"data"`
}

// Broker manages connected SSE clients and broadcasts events
type Broker struct {
	mu         sync.RWMutex
	clients    map[chan Event]bool
	buffer     int
	broadcast  chan Event
	register   chan chan Event
	unregister chan chan Event
	done       chan struct{}
	closeOnce  sync.Once
	stopped    chan struct{}
}

// NewBroker creates and starts a new SSE Broker. buffer sizes the broadcast
// queue and each client's queue.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 256
	}
	b := &Broker{
		clients:    make(map[chan Event]bool),
		buffer:     buffer,
		broadcast:  make(chan Event, buffer),
		register:   make(chan chan Event),
		unregister: make(chan chan Event),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go b.start()
	return b
}

func (b *Broker) start() {
	defer close(b.stopped)

	for {
		select {
		case <-b.done:
			b.mu.Lock()
			for ch := range b.clients {
				delete(b.clients, ch)
				close(ch)
			}
			b.mu.Unlock()
			return

		case ch := <-b.register:
			b.mu.Lock()
			b.clients[ch] = true
			total := len(b.clients)
			b.mu.Unlock()
			log.Printf("[sse] client connected (total: %d)", total)

		case ch := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[ch]; ok {
				delete(b.clients, ch)
				close(ch)
				log.Printf("[sse] client disconnected (total: %d)", len(b.clients))
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for ch := range b.clients {
				// Use non-blocking send to avoid slow clients blocking the broker
				select {
				case ch <- event:
				default:
					log.Printf("[sse] dropped event for slow client")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Subscribe adds a new client and returns a channel to listen for events.
// The channel is closed when the client unsubscribes or the broker closes.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, b.buffer)
	select {
	case b.register <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client
func (b *Broker) Unsubscribe(ch chan Event) {
	select {
	case b.unregister <- ch:
	case <-b.done:
	}
}

// Broadcast sends an event to all connected clients. Events are dropped once
// the broker is closed or its queue is full.
func (b *Broker) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[sse] failed to marshal event '%s': %v", eventType, err)
		return
	}

	select {
	case <-b.done:
	case b.broadcast <- Event{Type: eventType, JSON: data}:
	default:
		log.Printf("[sse] broadcast queue full, dropped '%s' event", eventType)
	}
}

// Close disconnects every client and stops the broker goroutine.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.stopped
}

// StreamHandler returns an HTTP handler for establishing SSE connections
func (b *Broker) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		ch := b.Subscribe()
		defer b.Unsubscribe(ch)

		fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.JSON)
				flusher.Flush()
			}
		}
	}
}
