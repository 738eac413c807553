package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestOpen_CreatesDirectoryAndBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "inbox.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	msgs, err := s.Messages()
	require.NoError(t, err)
	assert.Empty(t, msgs)

	evts, err := s.Events()
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestStore_SaveAndListMessages(t *testing.T) {
	s := newTestStore(t)

	rec := Record{
		ID:         "s3i:42",
		ReceivedAt: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
		Payload:    json.RawMessage(`{"identifier":"s3i:42","sender":"thing-2"}`),
	}

	require.NoError(t, s.SaveMessage(rec))

	got, err := s.Messages()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.True(t, rec.ReceivedAt.Equal(got[0].ReceivedAt))
	assert.JSONEq(t, string(rec.Payload), string(got[0].Payload))
}

func TestStore_MessagesAndEventsAreSeparate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveMessage(Record{
		ID:         "s3i:msg",
		ReceivedAt: time.Now(),
		Payload:    json.RawMessage(`{"kind":"message"}`),
	}))
	require.NoError(t, s.SaveEvent(Record{
		ID:         "s3i:evt",
		ReceivedAt: time.Now(),
		Payload:    json.RawMessage(`{"kind":"event"}`),
	}))

	msgs, err := s.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "s3i:msg", msgs[0].ID)

	evts, err := s.Events()
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "s3i:evt", evts[0].ID)
}

func TestStore_ListsInReceiveOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	// Insert out of order; listing follows key order, which is receive time.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		require.NoError(t, s.SaveMessage(Record{
			ID:         "s3i:" + offset.String(),
			ReceivedAt: base.Add(offset),
			Payload:    json.RawMessage(`{}`),
		}))
	}

	got, err := s.Messages()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].ReceivedAt.Before(got[1].ReceivedAt))
	assert.True(t, got[1].ReceivedAt.Before(got[2].ReceivedAt))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveMessage(Record{
		ID:         "s3i:1",
		ReceivedAt: time.Now(),
		Payload:    json.RawMessage(`{"a":1}`),
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Messages()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s3i:1", got[0].ID)
}
