package watcher

import (
	"sync"

	"github.com/starford/tracker/internal/models"
)

type item struct {
	event *models.FileChangeEvent
	err   error
}

// queue hands items from the event loop to the handler goroutine without
// ever blocking the producer.
type queue struct {
	mu     sync.Mutex
	items  []item
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (q *queue) push(it item) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) run(fn func(item)) {
	defer close(q.done)
	for {
		select {
		case <-q.quit:
			return
		case <-q.wake:
		}
		for {
			q.mu.Lock()
			if len(q.items) == 0 || q.closed {
				q.mu.Unlock()
				break
			}
			it := q.items[0]
			q.items[0] = item{}
			q.items = q.items[1:]
			q.mu.Unlock()
			fn(it)
		}
	}
}

// close discards undelivered items and waits for the handler goroutine.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	close(q.quit)
	<-q.done
}
