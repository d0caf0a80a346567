package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws/wstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(t *testing.T, r *Registry, roomID, connID string) (Outcome, error) {
	t.Helper()
	conn := wstest.NewConn(connID)
	return r.Update(roomID, CreateIfAbsent, func(room *Room) error {
		return room.AddMember(domain.NewMember(connID, 1, "user-"+connID, time.Now()), conn)
	})
}

func leave(r *Registry, roomID, connID string) (Outcome, error) {
	return r.Update(roomID, Existing, func(room *Room) error {
		if _, ok := room.RemoveMember(connID); !ok {
			return domain.ErrNotMember
		}
		return nil
	})
}

func TestUpdateCreatesAndDestroysRoom(t *testing.T) {
	r := New(Options{})

	outcome, err := join(t, r, "r1", "c1")
	require.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.False(t, outcome.Destroyed)

	snap, ok := r.Snapshot("r1")
	require.True(t, ok)
	assert.Len(t, snap.Members, 1)

	outcome, err = leave(r, "r1", "c1")
	require.NoError(t, err)
	assert.True(t, outcome.Destroyed)

	_, ok = r.Snapshot("r1")
	assert.False(t, ok)

	rooms, members := r.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, members)
}

func TestUpdateExistingMissingRoom(t *testing.T) {
	r := New(Options{})

	called := false
	_, err := r.Update("nope", Existing, func(*Room) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.False(t, called)
}

func TestFailedCreatingUpdateLeavesNoRoom(t *testing.T) {
	r := New(Options{})
	boom := errors.New("validation failed")

	outcome, err := r.Update("r1", CreateIfAbsent, func(*Room) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, outcome.Created)
	assert.False(t, outcome.Destroyed)
	assert.False(t, r.View("r1", func(*Room) {}))
}

func TestConnectionBelongsToOneRoom(t *testing.T) {
	r := New(Options{})

	_, err := join(t, r, "r1", "c1")
	require.NoError(t, err)

	_, err = join(t, r, "r1", "c1")
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = join(t, r, "r2", "c1")
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	assert.False(t, r.View("r2", func(*Room) {}), "rejected join must not leave an empty room")

	assert.Equal(t, 1, r.MemberCount("r1"))
	roomID, ok := r.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, "r1", roomID)

	_, err = leave(r, "r1", "c1")
	require.NoError(t, err)
	_, ok = r.RoomOf("c1")
	assert.False(t, ok)

	_, err = join(t, r, "r2", "c1")
	assert.NoError(t, err)
}

func TestConcurrentJoinsCreateOneRoom(t *testing.T) {
	r := New(Options{Shards: 4})
	const n = 64

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := join(t, r, "shared", fmt.Sprintf("c%d", i))
			assert.NoError(t, err)
			if outcome.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n, r.MemberCount("shared"))
	rooms, members := r.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, n, members)
}

func TestConcurrentLeavesDestroyOnce(t *testing.T) {
	r := New(Options{})
	const n = 32
	for i := 0; i < n; i++ {
		_, err := join(t, r, "r1", fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	destroyed := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := leave(r, "r1", fmt.Sprintf("c%d", i))
			assert.NoError(t, err)
			if outcome.Destroyed {
				mu.Lock()
				destroyed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, destroyed)
	assert.False(t, r.View("r1", func(*Room) {}))
}

func TestDestroyedRoomReportsFinalStrokes(t *testing.T) {
	r := New(Options{})
	_, err := join(t, r, "r1", "c1")
	require.NoError(t, err)

	_, err = r.Update("r1", Existing, func(room *Room) error {
		room.AppendStroke(domain.StrokeEvent{Data: map[string]any{"x": 1.0, "y": 2.0}, ConnectionID: "c1"})
		return nil
	})
	require.NoError(t, err)

	outcome, err := leave(r, "r1", "c1")
	require.NoError(t, err)
	require.True(t, outcome.Destroyed)
	require.Len(t, outcome.FinalStrokes, 1)
	assert.Equal(t, 1.0, outcome.FinalStrokes[0].Data["x"])
}

func TestRemove(t *testing.T) {
	r := New(Options{})
	_, err := join(t, r, "r1", "c1")
	require.NoError(t, err)

	assert.True(t, r.Remove("r1"))
	assert.False(t, r.Remove("r1"))
	assert.False(t, r.Remove("never-existed"))

	_, ok := r.RoomOf("c1")
	assert.False(t, ok)
}

func TestHistoriesAreBounded(t *testing.T) {
	r := New(Options{ChatHistoryCapacity: 2, StrokeHistoryCapacity: 3})
	_, err := join(t, r, "r1", "c1")
	require.NoError(t, err)

	_, err = r.Update("r1", Existing, func(room *Room) error {
		for i := 0; i < 5; i++ {
			room.AppendChat(domain.ChatEvent{Text: fmt.Sprintf("m%d", i)})
			room.AppendStroke(domain.StrokeEvent{Data: map[string]any{"i": i}})
		}
		return nil
	})
	require.NoError(t, err)

	snap, ok := r.Snapshot("r1")
	require.True(t, ok)
	require.Len(t, snap.ChatHistory, 2)
	assert.Equal(t, "m3", snap.ChatHistory[0].Text)
	assert.Equal(t, "m4", snap.ChatHistory[1].Text)
	require.Len(t, snap.Strokes, 3)
	assert.Equal(t, 2, snap.Strokes[0].Data["i"])
}

func TestMembersKeepJoinOrder(t *testing.T) {
	r := New(Options{})
	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := join(t, r, "r1", id)
		require.NoError(t, err)
	}
	_, err := leave(r, "r1", "c2")
	require.NoError(t, err)

	r.View("r1", func(room *Room) {
		members := room.Members()
		require.Len(t, members, 2)
		assert.Equal(t, "c1", members[0].ConnectionID)
		assert.Equal(t, "c3", members[1].ConnectionID)

		conns := room.Connections()
		assert.Equal(t, "c1", conns[0].ID())
		assert.Equal(t, "c3", conns[1].ID())
	})
}

func TestPanickingUpdateStillRemovesEmptyRoom(t *testing.T) {
	r := New(Options{})

	assert.Panics(t, func() {
		_, _ = r.Update("r1", CreateIfAbsent, func(*Room) error { panic("boom") })
	})

	assert.False(t, r.View("r1", func(*Room) {}))
	_, err := join(t, r, "r1", "c1")
	assert.NoError(t, err, "shard lock must have been released")
}

func TestRoomsContaining(t *testing.T) {
	r := New(Options{Shards: 4})
	_, err := join(t, r, "r1", "c1")
	require.NoError(t, err)
	_, err = join(t, r, "r2", "c2")
	require.NoError(t, err)

	assert.Equal(t, []string{"r1"}, r.RoomsContaining("c1"))
	assert.Empty(t, r.RoomsContaining("nobody"))
}

func TestNewRoomHistoriesHoldNoStorage(t *testing.T) {
	r := New(Options{})
	for i := 0; i < 100; i++ {
		_, err := join(t, r, fmt.Sprintf("r%d", i), fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}

	r.View("r0", func(room *Room) {
		assert.Zero(t, cap(room.chat.buf))
		assert.Zero(t, cap(room.strokes.buf))
		assert.Equal(t, DefaultChatHistoryCapacity, room.chat.Cap())
		assert.Equal(t, DefaultStrokeHistoryCapacity, room.strokes.Cap())
	})
}
