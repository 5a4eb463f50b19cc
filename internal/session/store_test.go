package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volnat/murmur/internal/core"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	store, err := NewStore(DriverMemory, WithDefaultModel("llama-3.1-8b-instant"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetCreatesDefaultSession(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Get(context.Background(), Key(1, 1))
	require.NoError(t, err)

	assert.Empty(t, sess.History)
	assert.Equal(t, "llama-3.1-8b-instant", sess.ModelID)
	assert.True(t, sess.VoiceEnabled, "voice replies default on")
	assert.Equal(t, FlowIdle, sess.PromptFlow)
}

func TestSystemPromptIsTurnZero(t *testing.T) {
	store := newTestStore(t)
	id := Key(1, 1)

	sess, err := store.Update(context.Background(), id, func(s *Session) error {
		s.SetSystemPrompt("be terse")
		return nil
	})
	require.NoError(t, err)

	require.Len(t, sess.History, 1)
	assert.Equal(t, core.SystemTurn("be terse"), sess.History[0])

	sess, err = store.Update(context.Background(), id, func(s *Session) error {
		s.ClearSystemPrompt()
		return nil
	})
	require.NoError(t, err)

	assert.Empty(t, sess.SystemPrompt)
	assert.Empty(t, sess.History)
}

func TestResetKeepsSystemTurn(t *testing.T) {
	store := newTestStore(t)
	id := Key(7, 7)
	ctx := context.Background()

	_, err := store.Update(ctx, id, func(s *Session) error {
		s.SetSystemPrompt("be helpful")
		return s.Append(core.UserTurn("hi"), core.AssistantTurn("hello"))
	})
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, id))

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, sess.History, 1)
	assert.Equal(t, core.RoleSystem, sess.History[0].Role)
}

func TestAppendRejectsSystemTurns(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Update(context.Background(), Key(2, 2), func(s *Session) error {
		return s.Append(core.SystemTurn("sneaky"))
	})
	assert.ErrorIs(t, err, ErrSystemTurnManaged)

	sess, err := store.Get(context.Background(), Key(2, 2))
	require.NoError(t, err)
	assert.Empty(t, sess.History, "failed update must not persist anything")
}

func TestConcurrentUpdatesSameSessionAreSerialized(t *testing.T) {
	store := newTestStore(t)
	id := Key(3, 3)
	ctx := context.Background()

	const workers = 64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, id, func(s *Session) error {
				return s.Append(core.UserTurn("x"))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, sess.History, workers, "no update may be lost")
}

func TestUpdatesOnDifferentSessionsDoNotBlock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	blocked := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = store.Update(ctx, Key(4, 4), func(s *Session) error {
			close(blocked)
			<-release
			return nil
		})
	}()

	<-blocked
	defer close(release)

	done := make(chan struct{})
	go func() {
		_, err := store.Update(ctx, Key(5, 5), func(s *Session) error {
			return s.Append(core.UserTurn("independent"))
		})
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update on an unrelated session blocked behind another session's update")
	}
}

func TestStoreUsableAfterClose(t *testing.T) {
	store, err := NewStore(DriverMemory, WithDefaultModel("llama-3.1-8b-instant"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Shutdown can race an in-flight turn; a late call must degrade to a
	// fresh session, not crash.
	sess, err := store.Update(context.Background(), Key(1, 1), func(s *Session) error {
		return s.Append(core.UserTurn("late"))
	})
	require.NoError(t, err)
	require.Len(t, sess.History, 1)

	sess, err = store.Get(context.Background(), Key(1, 1))
	require.NoError(t, err)
	assert.Len(t, sess.History, 1)
}

func TestSnapshotDoesNotAliasStoredHistory(t *testing.T) {
	store := newTestStore(t)
	id := Key(6, 6)
	ctx := context.Background()

	_, err := store.Update(ctx, id, func(s *Session) error {
		return s.Append(core.UserTurn("original"))
	})
	require.NoError(t, err)

	snapshot, err := store.Get(ctx, id)
	require.NoError(t, err)
	snapshot.History[0].Content = "mutated"

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.History[0].Content)
}
