// ABOUTME: Byte stream accumulator for chunked network input
// ABOUTME: Buffers arbitrary-sized writes and serves exact-size reads
package stream

// Accumulator consumes byte chunks of any size and produces contiguous
// buffers of whatever size the caller asks for.
//
// Written chunks are owned by the accumulator; callers must not modify a
// chunk after passing it to Write. Not safe for concurrent use.
type Accumulator struct {
	chunks [][]byte
	head   int // index of the first unread chunk
	total  int // sum of len(chunks[head:])
}

// New creates an empty accumulator
func New() *Accumulator {
	return &Accumulator{}
}

// Count returns the number of buffered bytes
func (a *Accumulator) Count() int {
	return a.total
}

// Write appends a chunk to the stream
func (a *Accumulator) Write(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	a.chunks = append(a.chunks, chunk)
	a.total += len(chunk)
}

// Read removes exactly n bytes from the front of the stream.
// It returns ok=false, and consumes nothing, when fewer than n bytes are
// buffered; the caller should retry after more writes.
func (a *Accumulator) Read(n int) (buf []byte, ok bool) {
	if n < 0 || n > a.total {
		return nil, false
	}

	buf = make([]byte, n)
	read := 0
	for read < n {
		chunk := a.chunks[a.head]
		remaining := n - read
		if len(chunk) > remaining {
			// Split: the suffix stays at the front of the queue.
			copy(buf[read:], chunk[:remaining])
			a.chunks[a.head] = chunk[remaining:]
			read += remaining
		} else {
			copy(buf[read:], chunk)
			a.chunks[a.head] = nil
			a.head++
			read += len(chunk)
		}
	}
	a.total -= n
	a.compact()

	return buf, true
}

// Peek returns a copy of the first n bytes without consuming them
func (a *Accumulator) Peek(n int) ([]byte, bool) {
	if n < 0 || n > a.total {
		return nil, false
	}

	buf := make([]byte, n)
	read := 0
	for i := a.head; read < n; i++ {
		read += copy(buf[read:], a.chunks[i])
	}
	return buf, true
}

// Reset discards all buffered bytes
func (a *Accumulator) Reset() {
	a.chunks = nil
	a.head = 0
	a.total = 0
}

// compact drops consumed slots once they dominate the queue
func (a *Accumulator) compact() {
	if a.head == len(a.chunks) {
		a.chunks = a.chunks[:0]
		a.head = 0
		return
	}
	if a.head > 32 && a.head*2 > len(a.chunks) {
		n := copy(a.chunks, a.chunks[a.head:])
		for i := n; i < len(a.chunks); i++ {
			a.chunks[i] = nil
		}
		a.chunks = a.chunks[:n]
		a.head = 0
	}
}
