package protocol

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	_, ok := q.TryRecv()
	require.False(t, ok)
	require.Nil(t, q.TryRecvAll())

	for i := range 5 {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())

	v, ok := q.TryRecv()
	require.True(t, ok)
	require.Equal(t, 0, v)
	require.Equal(t, []int{1, 2, 3, 4}, q.TryRecvAll())
	require.Zero(t, q.Len())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	const producers, each = 8, 250
	q := NewQueue[int]()
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				q.Push(p*each + i)
			}
		}()
	}

	seen := make(map[int]bool)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		for _, v := range q.TryRecvAll() {
			require.False(t, seen[v], "duplicate %d", v)
			seen[v] = true
		}
		select {
		case <-done:
			for _, v := range q.TryRecvAll() {
				seen[v] = true
			}
			require.Len(t, seen, producers*each)
			return
		case <-q.Ready():
		}
	}
}

func TestPipe_Directions(t *testing.T) {
	t.Parallel()

	client, server := NewPipe()
	id := NewFileID()

	client.Send(LoadFile{ID: id})
	client.Send(Stop{ID: id})
	require.Empty(t, client.TryRecvAll())

	got := server.TryRecvAll()
	require.Equal(t, []ClientMessage{LoadFile{ID: id}, Stop{ID: id}}, got)
	require.Empty(t, server.TryRecvAll())

	server.Send(Started{ID: id})
	select {
	case <-client.Ready():
	default:
		t.Fatal("expected client to be notified")
	}
	require.Equal(t, []ServerMessage{Started{ID: id}}, client.TryRecvAll())
}

func TestFileID(t *testing.T) {
	t.Parallel()

	id := NewFileID()
	_, err := uuid.Parse(string(id))
	require.NoError(t, err)
	require.NotEqual(t, id, NewFileID())

	name := DefaultFileName(id)
	require.Equal(t, FileName("bt_"+string(id)[:8]), name)
	require.Equal(t, FileName("bt_x"), DefaultFileName("x"))
}

func TestMessageKinds(t *testing.T) {
	t.Parallel()

	kinds := map[string]bool{}
	for _, m := range []ClientMessage{LoadFile{}, SaveFile{}, Run{}, Stop{}, ListFiles{}} {
		kinds[m.Kind()] = true
	}
	for _, m := range []ServerMessage{FileNames{}, File{}, FileSaved{}, Started{}, Stopped{}, Telemetry{}} {
		kinds[m.Kind()] = true
	}
	require.Len(t, kinds, 11)
}
