package agent

import "sync"

// Tail is a thread-safe ring buffer that keeps the most recent stderr
// output of the agent process. When a run fails without a terminal event,
// the tail is what gets classified into a coded error.
type Tail struct {
	data  []byte
	size  int
	start int
	end   int
	full  bool
	mu    sync.RWMutex
}

// NewTail creates a tail buffer holding at most size bytes.
func NewTail(size int) *Tail {
	return &Tail{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends data, evicting the oldest bytes once the buffer is full.
// It never fails, so it is safe to hand to exec.Cmd.Stderr directly.
func (t *Tail) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n = len(p)

	// Writes larger than the whole buffer only keep their last chunk.
	if n >= t.size {
		copy(t.data, p[n-t.size:])
		t.start = 0
		t.end = 0
		t.full = true
		return n, nil
	}

	for _, b := range p {
		t.data[t.end] = b
		t.end = (t.end + 1) % t.size

		if t.full {
			t.start = (t.start + 1) % t.size
		}

		if t.end == t.start {
			t.full = true
		}
	}

	return n, nil
}

// String returns the buffered output in write order.
func (t *Tail) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full && t.start == 0 {
		return string(t.data[:t.end])
	}

	out := make([]byte, 0, t.size)
	if t.full || t.end < t.start {
		out = append(out, t.data[t.start:]...)
		out = append(out, t.data[:t.end]...)
	} else {
		out = append(out, t.data[t.start:t.end]...)
	}
	return string(out)
}

// Len returns the number of buffered bytes.
func (t *Tail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.full {
		return t.size
	}
	if t.end >= t.start {
		return t.end - t.start
	}
	return t.size - t.start + t.end
}
