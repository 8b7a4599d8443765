package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceQueue(t *testing.T) {
	require := require.New(t)

	q := NewSliceQueue[string](4)
	require.True(q.IsEmpty())
	require.Equal(0, q.Length())

	_, ok := q.Dequeue()
	require.False(ok)
	_, ok = q.Peek()
	require.False(ok)

	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")
	require.Equal(3, q.Length())
	require.False(q.IsEmpty())

	head, ok := q.Peek()
	require.True(ok)
	require.Equal("a", head)
	require.Equal(3, q.Length())

	for _, want := range []string{"a", "b", "c"} {
		item, ok := q.Dequeue()
		require.True(ok)
		require.Equal(want, item)
	}
	require.True(q.IsEmpty())
}

func TestSliceQueueReset(t *testing.T) {
	require := require.New(t)

	q := NewSliceQueue[int](0)
	for i := 0; i < 10; i++ {
		q.Enqueue(i)
	}
	q.Reset()
	require.True(q.IsEmpty())

	q.Enqueue(42)
	item, ok := q.Dequeue()
	require.True(ok)
	require.Equal(42, item)
}
