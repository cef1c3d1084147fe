package services

import (
	"encoding/json"
	"testing"
	"time"

	"reward-collect-system/models"
	"reward-collect-system/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCooldown writes a cooldown state directly into the store, letting tests
// fabricate past or future expiries without waiting out real timers.
func seedCooldown(t *testing.T, store *storage.MemoryStore, userID string, expires map[models.ActionType]time.Time) {
	t.Helper()
	raw, err := json.Marshal(&models.CooldownState{ExpiresAt: expires})
	require.NoError(t, err)
	require.NoError(t, store.Set("cooldowns:"+userID, raw))
}

func TestCheckWithoutCooldownIsIdle(t *testing.T) {
	s := NewCooldownService(storage.NewMemoryStore())

	status := s.Check("u1", models.ActionCodeScan)
	assert.False(t, status.Active)
	assert.Equal(t, int64(0), status.RemainingMS)
	assert.NotEmpty(t, status.Message)
}

func TestSetCooldownActivates(t *testing.T) {
	s := NewCooldownService(storage.NewMemoryStore())

	s.SetCooldown("u1", models.ActionCodeScan)
	status := s.Check("u1", models.ActionCodeScan)

	assert.True(t, status.Active)
	assert.Greater(t, status.RemainingMS, int64(59000))
	assert.LessOrEqual(t, status.RemainingMS, int64(60000))
	assert.NotEmpty(t, status.Message)
}

func TestCooldownsIndependentPerAction(t *testing.T) {
	s := NewCooldownService(storage.NewMemoryStore())

	s.SetCooldown("u1", models.ActionCodeScan)
	assert.True(t, s.Check("u1", models.ActionCodeScan).Active)
	assert.False(t, s.Check("u1", models.ActionVideoWatch).Active)
	assert.False(t, s.Check("u1", models.ActionLocationCheckin).Active)
	assert.False(t, s.Check("u2", models.ActionCodeScan).Active, "independent per user too")
}

func TestPastExpiryEquivalentToNone(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCooldown(t, store, "u1", map[models.ActionType]time.Time{
		models.ActionCodeScan: time.Now().Add(-time.Second),
	})

	s := NewCooldownService(store)
	status := s.Check("u1", models.ActionCodeScan)
	assert.False(t, status.Active)
	assert.Equal(t, int64(0), status.RemainingMS)
}

func TestCooldownMonotonicity(t *testing.T) {
	store := storage.NewMemoryStore()

	// Just inside the window → active; just past it → idle
	seedCooldown(t, store, "u1", map[models.ActionType]time.Time{
		models.ActionVideoWatch: time.Now().Add(200 * time.Millisecond),
	})
	s := NewCooldownService(store)
	assert.True(t, s.Check("u1", models.ActionVideoWatch).Active)

	time.Sleep(250 * time.Millisecond)
	assert.False(t, s.Check("u1", models.ActionVideoWatch).Active)
}

func TestDailyLoginGatesByCalendarDay(t *testing.T) {
	store := storage.NewMemoryStore()

	// Collected a minute ago: still gated for the rest of the day
	seedCooldown(t, store, "u1", map[models.ActionType]time.Time{
		models.ActionDailyLogin: time.Now().Add(-time.Minute).Add(models.CooldownDailyLogin),
	})
	s := NewCooldownService(store)
	status := s.Check("u1", models.ActionDailyLogin)
	assert.True(t, status.Active)
	assert.Greater(t, status.RemainingMS, int64(0))

	// Collected yesterday: ready again, even if fewer than 24h elapsed
	yesterday := time.Now().AddDate(0, 0, -1)
	seedCooldown(t, store, "u2", map[models.ActionType]time.Time{
		models.ActionDailyLogin: yesterday.Add(models.CooldownDailyLogin),
	})
	s2 := NewCooldownService(store)
	assert.False(t, s2.Check("u2", models.ActionDailyLogin).Active)
}

func TestCooldownSurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewCooldownService(store)
	s.SetCooldown("u1", models.ActionLocationCheckin)

	s2 := NewCooldownService(store)
	assert.True(t, s2.Check("u1", models.ActionLocationCheckin).Active)
}

func TestCooldownFlushDirty(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewCooldownService(store)

	store.FailWrites = true
	s.SetCooldown("u1", models.ActionCodeScan)
	assert.True(t, s.Check("u1", models.ActionCodeScan).Active, "memory authoritative despite failed write")

	store.FailWrites = false
	assert.Equal(t, 1, s.FlushDirty())
	assert.Equal(t, 0, s.FlushDirty())
}
