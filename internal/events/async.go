package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikhilkumar000/Intern/internal/logger"
)

// ErrClosed is returned by Publish once Close has been called.
var ErrClosed = errors.New("events: publisher closed")

// Async decouples request handling from the broker: Publish enqueues and a
// single goroutine forwards in order. A full queue drops the event.
type Async struct {
	next  Publisher
	queue chan Event
	log   *logrus.Logger
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next Publisher, size int, log *logrus.Logger) *Async {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = logger.Discard()
	}
	a := &Async{next: next, queue: make(chan Event, size), log: log, done: make(chan struct{})}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.next.Publish(ctx, ev); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"event":   ev.Name,
				"call_id": ev.CallID,
			}).Warn("event publish failed")
		}
		cancel()
	}
}

func (a *Async) Publish(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.WithField("event", ev.Name).Debug("publish after close, dropping")
		return ErrClosed
	}
	select {
	case a.queue <- ev:
	default:
		a.log.WithField("event", ev.Name).Warn("event queue full, dropping")
	}
	return nil
}

// Close drains queued events and closes the underlying publisher. Later
// calls are no-ops.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
