// Package counter provides the sequence numbers used by attribute rules.
//
// Three flavours exist: ephemeral counters live for a single computation,
// State counters are backed by the saved state of a list run, and Service
// counters are versioned so changes can be written back as patches.
package counter

import "sync/atomic"

// Func yields the next value each time it is called.
type Func = func() int64

// NewEphemeral returns a counter starting at 1. Nothing is remembered
// between counters.
func NewEphemeral() Func {
	var n atomic.Int64
	return func() int64 {
		return n.Add(1)
	}
}
