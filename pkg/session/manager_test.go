package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(time.Hour, testLogger())

	created := m.Create()
	require.NotEmpty(t, created.ID)
	assert.True(t, created.ExpiresAt.After(created.CreatedAt))

	fetched, ok := m.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetExtendsExpiry(t *testing.T) {
	m := NewManager(time.Hour, testLogger())

	created := m.Create()
	time.Sleep(10 * time.Millisecond)

	fetched, ok := m.Get(created.ID)
	require.True(t, ok)
	assert.True(t, fetched.ExpiresAt.After(created.ExpiresAt))
	assert.True(t, fetched.LastActive.After(created.LastActive))
}

func TestManager_GetRemovesExpiredSession(t *testing.T) {
	m := NewManager(5*time.Millisecond, testLogger())

	created := m.Create()
	time.Sleep(20 * time.Millisecond)

	_, ok := m.Get(created.ID)
	assert.False(t, ok)
	assert.Zero(t, m.Count())
}

func TestManager_Validate(t *testing.T) {
	m := NewManager(time.Hour, testLogger())

	created := m.Create()
	assert.True(t, m.Validate(created.ID))
	assert.False(t, m.Validate("no-such-session"))
}

func TestManager_CleanupExpired(t *testing.T) {
	m := NewManager(5*time.Millisecond, testLogger())

	first := m.Create()
	second := m.Create()
	time.Sleep(20 * time.Millisecond)

	removed := m.CleanupExpired()
	assert.ElementsMatch(t, []string{first.ID, second.ID}, removed)
	assert.Zero(t, m.Count())

	// A second sweep finds nothing.
	assert.Empty(t, m.CleanupExpired())
}

func TestManager_CleanupNotifiesCallback(t *testing.T) {
	m := NewManager(5*time.Millisecond, testLogger())

	expired := make(chan []string, 1)
	m.OnExpired(func(ids []string) {
		expired <- ids
	})

	created := m.Create()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx, 10*time.Millisecond)
	defer m.Stop()

	select {
	case ids := <-expired:
		assert.Equal(t, []string{created.ID}, ids)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for expiry callback")
	}
}
