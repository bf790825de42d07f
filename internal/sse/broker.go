// Package sse fans workspace change notifications out to Server-Sent Events
// clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/tracker/internal/models"
)

// Event names sent on the stream.
const (
	EventFileChange       = "file-change"
	EventError            = "error"
	EventWorkspaceUpdated = "workspace.updated"
)

// DefaultHeartbeat is the idle interval after which a comment line is sent
// to keep intermediaries from closing the stream.
const DefaultHeartbeat = 30 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the idle heartbeat interval. Non-positive values
// disable heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// Broker manages SSE client connections and broadcasts events.
//
// A single loop goroutine owns the client set and the per-area throttle
// state; public methods talk to it over channels.
//
// workspace.updated is throttled per area with a leading and a trailing
// edge: the first change in an area is announced at once, and further
// changes inside the window collapse into one announcement when it ends.
type Broker struct {
	treeMin   time.Duration
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan models.FileChangeEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. treeThrottle is the minimum interval
// between two workspace.updated events for the same area.
func NewBroker(treeThrottle time.Duration, opts ...Option) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}

	b := &Broker{
		treeMin:       treeThrottle,
		heartbeat:     DefaultHeartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan models.FileChangeEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// loop is the state owned by the broker goroutine.
type loop struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	lastTree map[models.Area]time.Time
	trailing map[models.Area]struct{}
	timer    *time.Timer
}

func (l *loop) broadcast(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	l.seq++
	raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", l.seq, event.Type, payload))

	for ch := range l.clients {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking the loop.
		}
	}
}

func (l *loop) announce(area models.Area, now time.Time) {
	l.lastTree[area] = now
	l.broadcast(Event{Type: EventWorkspaceUpdated, Data: map[string]string{"area": string(area)}})
}

// arm schedules the timer for the earliest pending trailing announcement.
func (l *loop) arm(window time.Duration, now time.Time) {
	var next time.Duration = -1
	for area := range l.trailing {
		wait := l.lastTree[area].Add(window).Sub(now)
		if next < 0 || wait < next {
			next = wait
		}
	}
	if next < 0 {
		return
	}
	if l.timer == nil {
		l.timer = time.NewTimer(next)
		return
	}
	l.timer.Stop()
	l.timer.Reset(next)
}

func (b *Broker) run() {
	defer close(b.stopped)

	l := &loop{
		clients:  make(map[chan []byte]struct{}),
		lastTree: make(map[models.Area]time.Time),
		trailing: make(map[models.Area]struct{}),
	}
	defer func() {
		if l.timer != nil {
			l.timer.Stop()
		}
	}()

	for {
		var timerC <-chan time.Time
		if l.timer != nil && len(l.trailing) > 0 {
			timerC = l.timer.C
		}

		select {
		case <-b.stopCh:
			for ch := range l.clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			l.clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := l.clients[ch]; ok {
				delete(l.clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			l.broadcast(event)

		case ev := <-b.changeCh:
			l.broadcast(Event{Type: EventFileChange, Data: ev})

			now := time.Now()
			if now.Sub(l.lastTree[ev.Area]) >= b.treeMin {
				l.announce(ev.Area, now)
				continue
			}
			if _, ok := l.trailing[ev.Area]; !ok {
				l.trailing[ev.Area] = struct{}{}
				l.arm(b.treeMin, now)
			}

		case now := <-timerC:
			for area := range l.trailing {
				if now.Sub(l.lastTree[area]) >= b.treeMin {
					delete(l.trailing, area)
					l.announce(area, now)
				}
			}
			l.arm(b.treeMin, now)

		case resp := <-b.countReqCh:
			resp <- len(l.clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFileChange broadcasts a watcher event and schedules the
// workspace.updated announcement for its area.
func (b *Broker) PublishFileChange(ev models.FileChangeEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- ev:
	case <-b.stopped:
	}
}

// PublishError reports a watcher failure to subscribers.
func (b *Broker) PublishError(err error) {
	if err == nil {
		return
	}
	b.Publish(Event{Type: EventError, Data: map[string]string{"message": err.Error()}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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
	_, _ = fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = fmt.Fprint(w, ": ping\n\n")
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
