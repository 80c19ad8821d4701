package peer

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/opd-ai/peerindex/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(data string) *wire.Message {
	return &wire.Message{Src: uuid.New(), Dst: uuid.New(), Data: data}
}

func TestInboundQueueFIFO(t *testing.T) {
	q := NewInboundQueue(0)
	for _, data := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(testMessage(data)))
	}
	assert.Equal(t, 3, q.Len())

	batch := q.Drain()
	require.Len(t, batch, 3)
	assert.Equal(t, "a", batch[0].Data)
	assert.Equal(t, "b", batch[1].Data)
	assert.Equal(t, "c", batch[2].Data)

	assert.Zero(t, q.Len())
	assert.Nil(t, q.Drain())
}

func TestInboundQueueCapacity(t *testing.T) {
	q := NewInboundQueue(2)
	require.NoError(t, q.Push(testMessage("first")))
	require.NoError(t, q.Push(testMessage("second")))

	err := q.Push(testMessage("third"))
	assert.ErrorIs(t, err, ErrQueueFull)

	batch := q.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, "first", batch[0].Data)
	assert.Equal(t, "second", batch[1].Data)

	assert.NoError(t, q.Push(testMessage("after drain")))
}

func TestInboundQueueNotify(t *testing.T) {
	q := NewInboundQueue(0)

	select {
	case <-q.Notify():
		t.Fatal("notification before any push")
	default:
	}

	require.NoError(t, q.Push(testMessage("a")))
	require.NoError(t, q.Push(testMessage("b")))

	select {
	case <-q.Notify():
	default:
		t.Fatal("expected a notification after push")
	}
	// Notifications coalesce.
	select {
	case <-q.Notify():
		t.Fatal("expected a single pending notification")
	default:
	}
}

func TestInboundQueueConcurrentPush(t *testing.T) {
	q := NewInboundQueue(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, q.Push(testMessage("x")))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), 800)
}
