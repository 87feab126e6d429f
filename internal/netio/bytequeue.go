package netio

import "github.com/udisondev/la2go/internal/constants"

// ByteQueue is a single-producer/single-consumer circular byte buffer
// that autogrows to fit incoming data. It backs each NetState's inbound
// stream: raw socket reads are enqueued here and MessagePump's framing
// loop dequeues exactly one packet's worth at a time.
type ByteQueue struct {
	buf        []byte
	head, tail int
	size       int // bytes currently buffered
}

// NewByteQueue creates a queue with the default starting capacity (2048B).
func NewByteQueue() *ByteQueue {
	return &ByteQueue{buf: make([]byte, constants.ByteQueueInitialCapacity)}
}

// Len returns the number of buffered bytes.
func (q *ByteQueue) Len() int { return q.size }

// Cap returns the current backing capacity.
func (q *ByteQueue) Cap() int { return len(q.buf) }

// Enqueue copies n bytes from buf[off:off+n] into the ring, growing the
// backing array first if there isn't enough room.
func (q *ByteQueue) Enqueue(buf []byte, off, n int) {
	if n <= 0 {
		return
	}
	q.ensureCapacity(n)

	src := buf[off : off+n]
	for len(src) > 0 {
		chunk := len(q.buf) - q.tail
		if chunk > len(src) {
			chunk = len(src)
		}
		copy(q.buf[q.tail:], src[:chunk])
		q.tail = (q.tail + chunk) % len(q.buf)
		src = src[chunk:]
	}
	q.size += n
}

// ensureCapacity grows the ring to hold at least q.size+need bytes,
// rounding up to a 2048-byte alignment: (size + need + 2047) & ~2047.
func (q *ByteQueue) ensureCapacity(need int) {
	if q.size+need <= len(q.buf) {
		return
	}
	newCap := (q.size + need + constants.ByteQueueGrowAlignMask) &^ constants.ByteQueueGrowAlignMask

	grown := make([]byte, newCap)
	n := q.copyOut(grown, q.size)
	q.buf = grown
	q.head = 0
	q.tail = n // n < newCap always holds since newCap > q.size
}

// copyOut copies up to max bytes starting at head into dst[0:], without
// mutating head/tail/size. Returns the number of bytes copied.
func (q *ByteQueue) copyOut(dst []byte, max int) int {
	copied := 0
	pos := q.head
	for copied < max && copied < q.size {
		chunk := len(q.buf) - pos
		remaining := max - copied
		if chunk > remaining {
			chunk = remaining
		}
		n := copy(dst[copied:], q.buf[pos:pos+chunk])
		copied += n
		pos = (pos + n) % len(q.buf)
		if n == 0 {
			break
		}
	}
	return copied
}

// Dequeue copies up to n bytes into buf[off:off+n] and removes them from
// the ring. Returns the number of bytes actually copied. On full drain,
// head and tail reset to 0 (§4.2).
func (q *ByteQueue) Dequeue(buf []byte, off, n int) int {
	if n > q.size {
		n = q.size
	}
	if n <= 0 {
		return 0
	}

	copied := 0
	for copied < n {
		chunk := len(q.buf) - q.head
		remaining := n - copied
		if chunk > remaining {
			chunk = remaining
		}
		copy(buf[off+copied:], q.buf[q.head:q.head+chunk])
		q.head = (q.head + chunk) % len(q.buf)
		copied += chunk
	}
	q.size -= n

	if q.size == 0 {
		q.head, q.tail = 0, 0
	}
	return copied
}

// byteAt returns the byte at logical offset i within the buffered region
// without removing it. Caller must ensure i < q.size.
func (q *ByteQueue) byteAt(i int) byte {
	return q.buf[(q.head+i)%len(q.buf)]
}

// PeekPacketID returns the first buffered byte (the opcode), or 0xFF when
// the queue is empty (§4.2).
func (q *ByteQueue) PeekPacketID() byte {
	if q.size == 0 {
		return 0xFF
	}
	return q.byteAt(0)
}

// PeekBodyLength reads the big-endian u16 at logical offset 1 (the framed
// length field). Defined only once at least 3 bytes are buffered; returns
// 0 otherwise (§4.2).
func (q *ByteQueue) PeekBodyLength() uint16 {
	if q.size < 3 {
		return 0
	}
	hi := q.byteAt(1)
	lo := q.byteAt(2)
	return uint16(hi)<<8 | uint16(lo)
}
