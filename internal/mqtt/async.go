package mqtt

import (
	"errors"
	"log"
	"sync"
)

// ErrQueueFull is returned when the async queue cannot take another message.
var ErrQueueFull = errors.New("mqtt: publish queue full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("mqtt: publisher closed")

type job struct {
	event  *Event
	system *SystemEvent
}

// AsyncPublisher moves publishing off the caller's goroutine. Publish and
// PublishSystem never block: when the queue is full the message is dropped
// and ErrQueueFull returned. The control loop relies on this to keep feeding
// the watchdog while the broker is slow or unreachable.
type AsyncPublisher struct {
	inner Publisher
	queue chan job
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewAsyncPublisher wraps inner with a queue of the given depth and starts the worker.
func NewAsyncPublisher(inner Publisher, depth int) *AsyncPublisher {
	if depth < 1 {
		depth = 1
	}
	a := &AsyncPublisher{
		inner: inner,
		queue: make(chan job, depth),
		done:  make(chan struct{}),
	}
	go a.worker()
	return a
}

func (a *AsyncPublisher) worker() {
	defer close(a.done)
	for j := range a.queue {
		switch {
		case j.event != nil:
			if err := a.inner.Publish(*j.event); err != nil {
				log.Printf("publish error: %v", err)
			}
		case j.system != nil:
			if err := a.inner.PublishSystem(*j.system); err != nil {
				log.Printf("publish system error: %v", err)
			}
		}
	}
}

// Publish queues a state-graph event.
func (a *AsyncPublisher) Publish(event Event) error {
	return a.enqueue(job{event: &event})
}

// PublishSystem queues a system event.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.enqueue(job{system: &event})
}

func (a *AsyncPublisher) enqueue(j job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- j:
		return nil
	default:
		a.dropped++
		return ErrQueueFull
	}
}

// Dropped returns the number of messages rejected because the queue was full.
func (a *AsyncPublisher) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// IsConnected reports the inner publisher's connection state, if it has one.
func (a *AsyncPublisher) IsConnected() bool {
	if cs, ok := a.inner.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close drains the queue, waits for the worker and closes the inner publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.inner.Close()
}
