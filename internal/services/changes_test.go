package services

import (
	"testing"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeRouting(t *testing.T) {
	assert.Equal(t, "changes:rides", ChangeChannel(models.KindRides))
	assert.Equal(t, "verifications.update", RoutingKey(models.KindVerifications, store.EventUpdate))
}

func TestChangeRoundTrip(t *testing.T) {
	ev := store.ChangeEvent{
		Kind: models.KindRides,
		Type: store.EventInsert,
		ID:   "r1",
		Row:  models.Row{"id": "r1", "status": "pending"},
	}
	data, err := encodeChange(ev)
	require.NoError(t, err)

	got, err := decodeChange(data, models.KindRides)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = encodeChange(store.ChangeEvent{Type: store.EventInsert})
	assert.Error(t, err)
}

func TestDecodeChange(t *testing.T) {
	ev, err := decodeChange([]byte(`{"type":"update","row":{"id":"d1","status":"available"}}`), models.KindDrivers)
	require.NoError(t, err)
	assert.Equal(t, models.KindDrivers, ev.Kind)
	assert.Equal(t, store.EventUpdate, ev.Type)
	assert.Equal(t, "d1", ev.ID)

	_, err = decodeChange([]byte(`{"kind":"rides","type":"INSERT"}`), models.KindDrivers)
	assert.Error(t, err)

	_, err = decodeChange([]byte(`{"type":"TRUNCATE"}`), models.KindDrivers)
	assert.Error(t, err)

	_, err = decodeChange([]byte(`not json`), models.KindDrivers)
	assert.Error(t, err)
}

func TestWants(t *testing.T) {
	ev := store.ChangeEvent{Kind: models.KindRides, Row: models.Row{"status": "completed"}}
	assert.True(t, wants(ev, nil))
	assert.True(t, wants(ev, []store.Filter{store.Eq("status", models.RideStatusCompleted)}))
	assert.False(t, wants(ev, []store.Filter{store.Eq("status", "pending")}))
}
