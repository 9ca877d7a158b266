package main

import (
	"github.com/sasha-s/go-deadlock"
)

// traceFrames is how long a bullet trace stays visible
const traceFrames = 6

// Trace is the visible path of one shot
type Trace struct {
	X1 float64 `msgpack:"x1"`
	Y1 float64 `msgpack:"y1"`
	X2 float64 `msgpack:"x2"`
	Y2 float64 `msgpack:"y2"`

	expires uint64
}

// Effects buffers short-lived visuals for clients. Turrets, marines and
// zombies may add traces from different goroutines.
type Effects struct {
	mu     deadlock.Mutex
	traces []Trace
}

func NewEffects() *Effects {
	return &Effects{}
}

// AddTrace records a shot fired on frame
func (e *Effects) AddTrace(x1, y1, x2, y2 float64, frame uint64) {
	e.mu.Lock()
	e.traces = append(e.traces, Trace{
		X1: round1(x1), Y1: round1(y1), X2: round1(x2), Y2: round1(y2),
		expires: frame + traceFrames,
	})
	e.mu.Unlock()
}

// Expire drops traces that are past their lifetime
func (e *Effects) Expire(frame uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.traces[:0]
	for _, t := range e.traces {
		if t.expires > frame {
			kept = append(kept, t)
		}
	}
	e.traces = kept
}

// Traces returns a copy of the live traces
func (e *Effects) Traces() []Trace {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Trace, len(e.traces))
	copy(out, e.traces)
	return out
}

// Len returns the number of live traces
func (e *Effects) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.traces)
}
