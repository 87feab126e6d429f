package fileio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/bufpool"
)

// memSink is a fake WriterAt that records bytes into an in-memory buffer
// at arbitrary (possibly out-of-order) offsets, like a real file would.
type memSink struct {
	mu  sync.Mutex
	buf []byte
}

func (s *memSink) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := off + int64(len(p))
	if int64(len(s.buf)) < end {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[off:end], p)
	return len(p), nil
}

func (s *memSink) snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

func TestSynchronousWriteLandsAtCorrectOffsets(t *testing.T) {
	sink := &memSink{}
	pool := bufpool.New("fileio-test-sync", 4, 4)
	q := NewFileQueue(sink, pool, 4, 0)
	w := NewSequentialFileWriter(q)

	off1 := w.Write([]byte{1, 2, 3, 4})
	off2 := w.Write([]byte{5, 6})
	require.NoError(t, w.Flush())

	assert.Equal(t, int64(0), off1)
	assert.Equal(t, int64(4), off2)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, sink.snapshot())
}

func TestAsyncWritesCommitToCorrectOffsetsRegardlessOfCompletionOrder(t *testing.T) {
	sink := &memSink{}
	pool := bufpool.New("fileio-test-async", 4, 8)
	q := NewFileQueue(sink, pool, 4, 4)
	w := NewSequentialFileWriter(q)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	w.Write(data)
	require.NoError(t, w.Flush())

	assert.Equal(t, data, sink.snapshot())
}

func TestPositionAdvancesOnEnqueueBeforeFlush(t *testing.T) {
	sink := &memSink{}
	pool := bufpool.New("fileio-test-position", 4, 4)
	q := NewFileQueue(sink, pool, 4, 2)
	w := NewSequentialFileWriter(q)

	w.Write([]byte{1, 2, 3})
	assert.Equal(t, int64(3), w.Position())
	require.NoError(t, w.Flush())
}

func TestPendingSpilloverWhenConcurrencySlotsFull(t *testing.T) {
	sink := &memSink{}
	pool := bufpool.New("fileio-test-spillover", 2, 16)
	q := NewFileQueue(sink, pool, 2, 1) // one slot, many pages
	w := NewSequentialFileWriter(q)

	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	w.Write(data)
	require.NoError(t, w.Flush())
	assert.Equal(t, data, sink.snapshot())
}
