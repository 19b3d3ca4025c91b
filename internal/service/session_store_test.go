package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/BizPlanGen/internal/models"
)

func TestSessionStoreCreateStartsUnpaidWithDefaults(t *testing.T) {
	store := NewSessionStore()
	s := store.Create()

	assert.NotEmpty(t, s.ID)
	assert.False(t, s.Paid)
	assert.Equal(t, DefaultPlanRequest(), s.Fields)

	got, ok := store.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestSessionStorePaidFlagNeverResets(t *testing.T) {
	store := NewSessionStore()
	s := store.Create()

	_, err := store.MarkPaid(s.ID)
	require.NoError(t, err)

	updated, err := store.Update(s.ID, func(sess *models.Session) {
		sess.Paid = false
		sess.Fields.Idea = "new idea"
	})
	require.NoError(t, err)
	assert.True(t, updated.Paid)
	assert.Equal(t, "new idea", updated.Fields.Idea)
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	store := NewSessionStore()
	s := store.Create()
	s.Paid = true

	got, _ := store.Get(s.ID)
	assert.False(t, got.Paid)
}

func TestSessionStoreUnknownAndPrune(t *testing.T) {
	store := NewSessionStore()
	_, err := store.MarkPaid("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now := time.Now()
	store.now = func() time.Time { return now.Add(-48 * time.Hour) }
	old := store.Create()
	store.now = func() time.Time { return now }
	fresh := store.Create()

	assert.Equal(t, 1, store.Prune(24*time.Hour))
	_, ok := store.Get(old.ID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}
