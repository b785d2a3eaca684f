package gateway

import "sync"

type replayEntry struct {
	seq   int64
	frame []byte
}

// ReplayBuffer keeps the last frames of one session in a ring, for clients
// that reconnect and ask for what they missed.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	next    int
	count   int
}

// NewReplayBuffer creates a ring holding up to capacity frames.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = replayLength
	}
	return &ReplayBuffer{entries: make([]replayEntry, capacity)}
}

// Push stores frame under seq, evicting the oldest frame when full.
// seq must increase between calls.
func (rb *ReplayBuffer) Push(seq int64, frame []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries[rb.next] = replayEntry{seq: seq, frame: append([]byte(nil), frame...)}
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// Since returns frames with seq > after, oldest first.
func (rb *ReplayBuffer) Since(after int64) [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	var out [][]byte
	start := (rb.next - rb.count + len(rb.entries)) % len(rb.entries)
	for i := 0; i < rb.count; i++ {
		e := rb.entries[(start+i)%len(rb.entries)]
		if e.seq > after {
			out = append(out, e.frame)
		}
	}
	return out
}

// Len returns the number of frames held.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
