package driver

import "sync"

// InputLatch holds the single most recent key event, the shape the
// runtime register block resource (0x12) expects: an enable flag, a
// key-down flag, and a key code (spec §4.E resource 0x12, §4.K "input
// latch"). One event replaces the previous one; nothing queues.
type InputLatch struct {
	mu      sync.Mutex
	down    bool
	code    byte
	frameNo uint32
}

// Press latches a key-down event with the given code.
func (l *InputLatch) Press(code byte) {
	l.mu.Lock()
	l.down, l.code = true, code
	l.mu.Unlock()
}

// Release clears the key-down flag; the last code is kept around since
// the register block format has no "no key" sentinel of its own.
func (l *InputLatch) Release() {
	l.mu.Lock()
	l.down = false
	l.mu.Unlock()
}

// Snapshot returns the latch's current state for the tick about to
// run, and bumps the frame counter the register block also exposes.
func (l *InputLatch) Snapshot() (down bool, code byte, frame uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frameNo++
	return l.down, l.code, l.frameNo
}
