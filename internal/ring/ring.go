// ABOUTME: Lock-free SPSC ring buffer shared between the decode tick and the realtime sink callback
// ABOUTME: Capacity is a power of two; indices are monotonic counters masked on access
package ring

import "sync/atomic"

// Buffer is a fixed-capacity single-producer/single-consumer byte queue.
//
// Exactly one goroutine may call the Write side (WriteCapacity/Write) and
// exactly one goroutine may call the Read side (ReadCapacity/Read) at any
// instant; Flush additionally requires that neither side is active, which
// callers enforce with a StoppedToken (see Sink.Stop in package audio).
//
// The write index is published with a release (atomic store) after the
// bytes it describes have been written, and read with an acquire (atomic
// load) before the reader touches those bytes, and vice versa for the read
// index — this is the standard SPSC handshake and needs no mutex.
type Buffer struct {
	buf  []byte
	mask uint64

	writeIdx atomic.Uint64
	readIdx  atomic.Uint64
}

// New constructs a ring buffer of capacity 2^p bytes.
func New(p uint) *Buffer {
	capacity := uint64(1) << p
	return &Buffer{
		buf:  make([]byte, capacity),
		mask: capacity - 1,
	}
}

// Cap returns the buffer's total capacity in bytes.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// WriteCapacity returns a snapshot of how many bytes may currently be
// written. The snapshot may under-report (the reader may have advanced
// further by the time the caller acts on it), which is always safe.
func (b *Buffer) WriteCapacity() int {
	w := b.writeIdx.Load()
	r := b.readIdx.Load()
	return len(b.buf) - int(w-r)
}

// ReadCapacity returns a snapshot of how many bytes are currently available
// to read. Like WriteCapacity, it may under-report.
func (b *Buffer) ReadCapacity() int {
	w := b.writeIdx.Load()
	r := b.readIdx.Load()
	return int(w - r)
}

// Write copies up to min(len(src), WriteCapacity()) bytes into the ring and
// returns the number written. Called only from the producer side.
func (b *Buffer) Write(src []byte) int {
	w := b.writeIdx.Load()
	r := b.readIdx.Load()
	avail := len(b.buf) - int(w-r)
	if avail <= 0 {
		return 0
	}

	n := len(src)
	if n > avail {
		n = avail
	}

	for i := 0; i < n; i++ {
		b.buf[(w+uint64(i))&b.mask] = src[i]
	}

	b.writeIdx.Store(w + uint64(n))
	return n
}

// Read copies up to min(len(dst), ReadCapacity()) bytes out of the ring and
// returns the number read. Called only from the consumer side.
func (b *Buffer) Read(dst []byte) int {
	r := b.readIdx.Load()
	w := b.writeIdx.Load()
	avail := int(w - r)
	if avail <= 0 {
		return 0
	}

	n := len(dst)
	if n > avail {
		n = avail
	}

	for i := 0; i < n; i++ {
		dst[i] = b.buf[(r+uint64(i))&b.mask]
	}

	b.readIdx.Store(r + uint64(n))
	return n
}

// StoppedToken marks that the sink side of a ring buffer is not running,
// so Flush cannot race a live reader. Sink implementations hand one out
// from Stop once the realtime callback isn't running. The type does not
// enforce this by itself: NewStoppedToken is exported and the zero value
// can be written by any package.
type StoppedToken struct{ _ struct{} }

// NewStoppedToken is used by Sink implementations once they've confirmed
// their realtime callback isn't running.
func NewStoppedToken() StoppedToken { return StoppedToken{} }

// Flush empties the buffer. It is undefined behaviour to call this while
// either side is active; the StoppedToken parameter marks that the caller
// obtained it by stopping the sink first.
func (b *Buffer) Flush(_ StoppedToken) {
	b.readIdx.Store(0)
	b.writeIdx.Store(0)
}
