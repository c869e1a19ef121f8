package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castboard/internal/events"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordWriteAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.RecordWrite(ctx, AuditEntry{
		Kind:      "append",
		SheetDate: "8/29",
		SheetRow:  15,
		CastName:  "ねね",
		Brand:     "ごほうびSPA",
		Payload:   json.RawMessage(`{"startTime":"20:00"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = db.RecordWrite(ctx, AuditEntry{Kind: "update", SheetDate: "8/30", CastName: "みく"})
	require.NoError(t, err)

	entries, err := db.WritesForDate(ctx, "8/29")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "append", entries[0].Kind)
	assert.Equal(t, 15, entries[0].SheetRow)
	assert.Equal(t, "ねね", entries[0].CastName)
	assert.JSONEq(t, `{"startTime":"20:00"}`, string(entries[0].Payload))
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestSubscribeAuditRecordsEvents(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.Nop()
	bus := events.NewEventBus()

	db.SubscribeAudit(bus, &logger)

	payload, _ := json.Marshal(AuditEntry{Kind: "append", SheetDate: "8/29", SheetRow: 20, CastName: "ねね"})
	bus.Publish(events.Event{Type: events.BookingWritten, Payload: payload})

	entries, err := db.WritesForDate(context.Background(), "8/29")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].SheetRow)
}
