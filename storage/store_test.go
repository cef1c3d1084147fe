package storage

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got, "missing key returns nil, not an error")

	require.NoError(t, s.Set("k", []byte("v1")))
	got, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Set("k", []byte("v2")))
	got, _ = s.Get("k")
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Remove("k"))
	got, err = s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	value := []byte("original")
	require.NoError(t, s.Set("k", value))
	value[0] = 'X'

	got, _ := s.Get("k")
	assert.Equal(t, []byte("original"), got)
}

func TestMemoryStoreFailWrites(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("k", []byte("v")))

	s.FailWrites = true
	assert.ErrorIs(t, s.Set("k2", []byte("v")), ErrWriteFailed)
	assert.ErrorIs(t, s.Remove("k"), ErrWriteFailed)

	// Reads still work while writes fail
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Entry{}))
	return NewGormStore(db)
}

func TestGormStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("ledger:u1", []byte(`{"rewards":[]}`)))
	got, err = s.Get("ledger:u1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"rewards":[]}`), got)

	// Upsert replaces in place
	require.NoError(t, s.Set("ledger:u1", []byte(`{"rewards":[1]}`)))
	got, _ = s.Get("ledger:u1")
	assert.Equal(t, []byte(`{"rewards":[1]}`), got)

	var count int64
	s.DB.Model(&Entry{}).Count(&count)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.Remove("ledger:u1"))
	got, err = s.Get("ledger:u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
