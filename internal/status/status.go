// Package status carries progress and failure reports from pipeline
// workers to whatever surface is showing them. Workers publish into a
// Queue without blocking; the UI loop drains it on its own goroutine.
package status

import (
	"sync/atomic"
	"time"
)

// State is the pipeline state an event was emitted in.
type State int

const (
	Idle State = iota
	Recording
	Processing
	Pasting
	AwaitingManualPaste
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Pasting:
		return "pasting"
	case AwaitingManualPaste:
		return "awaiting-manual-paste"
	default:
		return "idle"
	}
}

// Kind classifies an event for presentation.
type Kind int

const (
	Progress Kind = iota
	Done
	Warning
	Failure
)

func (k Kind) String() string {
	switch k {
	case Done:
		return "done"
	case Warning:
		return "warning"
	case Failure:
		return "failure"
	default:
		return "progress"
	}
}

// Event is one status report.
type Event struct {
	RunID   string
	State   State
	Kind    Kind
	Message string
	// Text is the final text of a finished run.
	Text string
	At   time.Time
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	return e.Kind != Progress
}

// Queue is a bounded event buffer that drops the oldest event when full.
type Queue struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

// Publish enqueues e, evicting the oldest event if the queue is full. It
// never blocks.
func (q *Queue) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	for {
		select {
		case q.ch <- e:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Events is the receive side, drained by the UI loop.
func (q *Queue) Events() <-chan Event { return q.ch }

// Dropped counts evicted events.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }
