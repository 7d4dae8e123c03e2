// Package ev provides the event queues that move work from reader
// goroutines onto the goroutine that runs the compositor.
package ev

import (
	"errors"

	"deedles.dev/xsync/cq"
)

// Queue collects events from any number of goroutines. The events are
// run, in the order they were added, by whoever flushes the queue.
type Queue struct {
	q *cq.BulkQueue[func() error, *Events]
}

func NewQueue() *Queue {
	return &Queue{
		q: cq.New(func(v []func() error) *Events {
			return &Events{
				events: v,
			}
		}),
	}
}

// Add adds ev to the queue. It blocks until the queue accepts the
// event or done is closed, and reports whether the event was added.
func (q *Queue) Add(done <-chan struct{}, ev func() error) bool {
	select {
	case <-done:
		return false
	case q.q.Add() <- ev:
		return true
	}
}

// Flush runs every event that is currently queued. It does not wait
// for new events to arrive.
func (q *Queue) Flush() error {
	select {
	case events := <-q.q.Get():
		return events.Flush()
	default:
		return nil
	}
}

// Stop stops the queue. Events that have not been flushed are dropped.
func (q *Queue) Stop() {
	q.q.Stop()
}

// Events represents a series of events from a Client's event queue.
type Events struct {
	events []func() error
}

// Flush processess all of the events represented by q.
func (q *Events) Flush() error {
	return errors.Join(Flush(q)...)
}

func Flush(queue *Events) (errs []error) {
	for _, ev := range queue.events {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	queue.events = nil
	return errs
}
