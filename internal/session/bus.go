package session

import (
	"sync"
	"time"
)

// EventKind tells which fields of an Event are set.
type EventKind int

const (
	// LogEvent carries Text, one or more complete or partial log lines.
	LogEvent EventKind = iota
	// ProgressInit starts a progress bar: Text and Max.
	ProgressInit
	// ProgressSet moves the bar: Text and Value.
	ProgressSet
	// ProgressEnd finishes the bar with a final Text.
	ProgressEnd
	// StateEvent reports a workflow transition: State, and Target while patching.
	StateEvent
)

// Event is one notification for the presentation layer.
type Event struct {
	Kind   EventKind
	Text   string
	Value  int
	Max    int
	State  State
	Target string
}

// bus hands events to a single consumer without ever blocking the poster.
// Pending events wait for the flush delay so that bursts of log text arrive
// as one event; order is always preserved.
type bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	closed  bool
	delay   time.Duration
	out     chan Event
}

func newBus(delay time.Duration) *bus {
	b := &bus{delay: delay, out: make(chan Event)}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b
}

func (b *bus) post(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending = append(b.pending, ev)
	b.cond.Signal()
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Signal()
}

func (b *bus) run() {
	defer close(b.out)
	for {
		b.mu.Lock()
		for len(b.pending) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.pending) == 0 {
			b.mu.Unlock()
			return
		}
		closing := b.closed
		b.mu.Unlock()

		if !closing && b.delay > 0 {
			time.Sleep(b.delay)
		}

		b.mu.Lock()
		batch := coalesce(b.pending)
		b.pending = nil
		b.mu.Unlock()

		for _, ev := range batch {
			b.out <- ev
		}
	}
}

// coalesce joins adjacent log events and keeps only the last of adjacent
// progress updates.
func coalesce(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if n := len(out); n > 0 {
			last := &out[n-1]
			switch {
			case ev.Kind == LogEvent && last.Kind == LogEvent:
				last.Text += ev.Text
				continue
			case ev.Kind == ProgressSet && last.Kind == ProgressSet:
				*last = ev
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}
