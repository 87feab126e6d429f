package sendqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	size int
}

func (p *fakePool) Acquire() []byte { return make([]byte, p.size) }
func (p *fakePool) Release([]byte)  {}

func TestEnqueueFillsBufferedBeforeSpilling(t *testing.T) {
	q := New(&fakePool{size: 4}, 4, 1024)
	require.NoError(t, q.Enqueue([]byte{1, 2, 3}, 0, 3))
	assert.Equal(t, 0, q.PendingBytes()) // still fits in the buffered gram

	require.NoError(t, q.Enqueue([]byte{4, 5}, 0, 2))
	assert.Equal(t, 4, q.PendingBytes()) // first page spilled
}

func TestCheckFlushReadyOnlyWhenNothingPending(t *testing.T) {
	q := New(&fakePool{size: 8}, 8, 1024)
	require.NoError(t, q.Enqueue([]byte{1, 2, 3}, 0, 3))

	g := q.CheckFlushReady()
	require.NotNil(t, g)
	assert.Equal(t, 3, g.Len)

	// Now something is pending; a second flush-ready before dequeue is nil.
	require.NoError(t, q.Enqueue([]byte{9}, 0, 1))
	assert.Nil(t, q.CheckFlushReady())
}

func TestDrainPendingViaPeekThenDequeueLosesNoData(t *testing.T) {
	q := New(&fakePool{size: 2}, 2, 1024)
	require.NoError(t, q.Enqueue([]byte{1, 2, 3, 4}, 0, 4)) // two full pages spilled in one call

	// CheckFlushReady only promotes buffered->pending when pending is
	// empty; here it's already non-empty, so it must return nil and the
	// caller falls back to PeekPending for the first gram to write.
	require.Nil(t, q.CheckFlushReady())

	first := q.PeekPending()
	require.NotNil(t, first)
	assert.Equal(t, []byte{1, 2}, first.Buf[:first.Len])

	// Only after "writing" first does the caller call Dequeue: it releases
	// the gram just written and hands back the next one, still intact.
	second := q.Dequeue()
	require.NotNil(t, second)
	assert.Equal(t, []byte{3, 4}, second.Buf[:second.Len])

	third := q.Dequeue()
	assert.Nil(t, third)
}

func TestEnqueueRejectsOverCapacity(t *testing.T) {
	q := New(&fakePool{size: 4}, 4, 4)
	require.NoError(t, q.Enqueue([]byte{1, 2, 3, 4}, 0, 4)) // exactly fills+spills one page

	err := q.Enqueue([]byte{5, 6, 7, 8}, 0, 4)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestClearReleasesEveryPage(t *testing.T) {
	q := New(&fakePool{size: 4}, 4, 1024)
	require.NoError(t, q.Enqueue([]byte{1, 2, 3, 4, 5}, 0, 5))
	q.Clear()
	assert.Equal(t, 0, q.PendingBytes())
	assert.Nil(t, q.CheckFlushReady())
}
