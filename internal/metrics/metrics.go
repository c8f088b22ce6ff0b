package metrics

import (
	"sync"
	"sync/atomic"
)

// callStats holds counters for live-call lifecycle events.
// Kept simple/thread-safe for use from services and exposition.
type callStats struct {
	started uint64
	ended   uint64
	recalls uint64
}

var calls callStats

// IncCallStarted increments the started-call counter.
func IncCallStarted() { atomic.AddUint64(&calls.started, 1) }

// IncCallEnded increments the ended-call counter.
func IncCallEnded() { atomic.AddUint64(&calls.ended, 1) }

// IncCallRecalled increments the recalled-call counter.
func IncCallRecalled() { atomic.AddUint64(&calls.recalls, 1) }

// CallSnapshot returns a copy of the current call counters.
func CallSnapshot() (started, ended, recalls uint64) {
	return atomic.LoadUint64(&calls.started),
		atomic.LoadUint64(&calls.ended),
		atomic.LoadUint64(&calls.recalls)
}

// aiStats holds counters for outbound model calls, keyed by operation
// ("summarize", "manage_customer").
type aiStats struct {
	total    uint64
	mu       sync.Mutex
	byOp     map[string]uint64
	failures uint64
}

var ai aiStats

// IncAIRequest increments model-call counters for the given operation.
func IncAIRequest(op string) {
	if op == "" {
		op = "unknown"
	}
	atomic.AddUint64(&ai.total, 1)
	ai.mu.Lock()
	if ai.byOp == nil {
		ai.byOp = make(map[string]uint64)
	}
	ai.byOp[op]++
	ai.mu.Unlock()
}

// IncAIFailure increments the failed model-call counter.
func IncAIFailure() { atomic.AddUint64(&ai.failures, 1) }

// AISnapshot returns a copy of the current model-call counters.
func AISnapshot() (total, failures uint64, byOp map[string]uint64) {
	total = atomic.LoadUint64(&ai.total)
	failures = atomic.LoadUint64(&ai.failures)
	ai.mu.Lock()
	defer ai.mu.Unlock()
	byOp = make(map[string]uint64, len(ai.byOp))
	for k, v := range ai.byOp {
		byOp[k] = v
	}
	return total, failures, byOp
}
