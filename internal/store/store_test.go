package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

func TestMatch(t *testing.T) {
	row := models.ToRow(models.Ride{
		ID:         "r1",
		Status:     models.RideStatusInProgress,
		TotalPrice: 2500,
		CreatedAt:  now,
	})

	cases := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"eq", []Filter{Eq("status", "in_progress")}, true},
		{"eq typed status", []Filter{Eq("status", models.RideStatusInProgress)}, true},
		{"eq mismatch", []Filter{Eq("status", "completed")}, false},
		{"neq", []Filter{Neq("status", "completed")}, true},
		{"in", []Filter{In("status", models.ActiveRideStatuses...)}, true},
		{"in miss", []Filter{In("status", "completed", "cancelled")}, false},
		{"gte time", []Filter{Gte("created_at", now.Add(-time.Hour))}, true},
		{"lte time", []Filter{Lte("created_at", now.Add(-time.Hour))}, false},
		{"gte number", []Filter{Gte("total_price", 2500)}, true},
		{"missing column", []Filter{Eq("driver_id", "d1")}, false},
		{"all must match", []Filter{Eq("status", "in_progress"), Eq("id", "r2")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(row, tc.filters))
		})
	}
}

func TestLocalFeed(t *testing.T) {
	feed := NewLocalFeed()
	ctx := context.Background()

	var got []ChangeEvent
	h, err := feed.Subscribe(ctx, models.KindRides, []Filter{Eq("status", "completed")}, func(ev ChangeEvent) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers())

	require.NoError(t, feed.Publish(ctx, ChangeEvent{Kind: models.KindRides, Type: EventUpdate, ID: "r1", Row: models.Row{"status": "completed"}}))
	require.NoError(t, feed.Publish(ctx, ChangeEvent{Kind: models.KindRides, Type: EventUpdate, ID: "r2", Row: models.Row{"status": "pending"}}))
	require.NoError(t, feed.Publish(ctx, ChangeEvent{Kind: models.KindDrivers, Type: EventInsert, ID: "d1", Row: models.Row{"status": "completed"}}))

	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	require.NoError(t, feed.Unsubscribe(h))
	assert.Error(t, feed.Unsubscribe(h))
	assert.Equal(t, 0, feed.Subscribers())

	_, err = feed.Subscribe(ctx, models.KindRides, nil, nil)
	assert.Error(t, err)
}

func seeded(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	ctx := context.Background()
	driverID := "d1"
	_, err := m.Put(ctx, models.KindClients, models.Client{ID: "c1", Name: "Awa Diallo", CreatedAt: now})
	require.NoError(t, err)
	_, err = m.Put(ctx, models.KindDrivers, models.Driver{ID: "d1", FullName: "Ibrahim", Status: models.DriverStatusAvailable, CreatedAt: now})
	require.NoError(t, err)
	for i, status := range []models.RideStatus{models.RideStatusCompleted, models.RideStatusPending, models.RideStatusCancelled} {
		_, err = m.Put(ctx, models.KindRides, models.Ride{
			ID:         string(rune('a' + i)),
			ClientID:   "c1",
			DriverID:   &driverID,
			Status:     status,
			TotalPrice: models.Amount(1000 * (i + 1)),
			CreatedAt:  now.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	return m
}

func TestMemoryStoreFetchCollection(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	col, err := m.FetchCollection(ctx, models.KindRides, Query{OrderBy: "created_at", Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, col.Rides, 2)
	assert.Equal(t, "c", col.Rides[0].ID)
	assert.Equal(t, "b", col.Rides[1].ID)
	require.NotNil(t, col.Rides[0].Client)
	assert.Equal(t, "Awa Diallo", col.Rides[0].ClientName())
	assert.Equal(t, "Ibrahim", col.Rides[0].DriverName())

	col, err = m.FetchCollection(ctx, models.KindRides, Query{Filters: []Filter{Eq("status", models.RideStatusCompleted)}})
	require.NoError(t, err)
	require.Len(t, col.Rides, 1)
	assert.Equal(t, models.Amount(1000), col.Rides[0].TotalPrice)

	n, err := m.FetchCount(ctx, models.KindRides, In("status", models.ActiveRideStatuses...))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, m.FetchCalls(models.KindRides))
	assert.Equal(t, 1, m.CountCalls(models.KindRides))
}

func TestMemoryStoreUpdateRow(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	var events []ChangeEvent
	h, err := m.Subscribe(ctx, models.KindDrivers, nil, func(ev ChangeEvent) { events = append(events, ev) })
	require.NoError(t, err)
	defer m.Unsubscribe(h)

	require.NoError(t, m.UpdateRow(ctx, models.KindDrivers, "d1", map[string]any{"is_verified": true}))
	require.Len(t, events, 1)
	assert.Equal(t, EventUpdate, events[0].Type)
	assert.Equal(t, true, events[0].Row["is_verified"])

	col, err := m.FetchCollection(ctx, models.KindDrivers, Query{})
	require.NoError(t, err)
	require.Len(t, col.Drivers, 1)
	assert.True(t, col.Drivers[0].IsVerified)

	err = m.UpdateRow(ctx, models.KindDrivers, "missing", map[string]any{"is_verified": true})
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 2, m.UpdateCalls())
}

func TestMemoryStoreConditionalUpdate(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	var events []ChangeEvent
	h, err := m.Subscribe(ctx, models.KindRides, nil, func(ev ChangeEvent) { events = append(events, ev) })
	require.NoError(t, err)
	defer m.Unsubscribe(h)

	pendingOnly := Eq("status", string(models.RideStatusPending))
	require.NoError(t, m.UpdateRow(ctx, models.KindRides, "b", map[string]any{"status": "in_progress"}, pendingOnly))

	err = m.UpdateRow(ctx, models.KindRides, "b", map[string]any{"status": "cancelled"}, pendingOnly)
	assert.ErrorIs(t, err, models.ErrStaleWrite)

	err = m.UpdateRow(ctx, models.KindRides, "zzz", map[string]any{"status": "cancelled"}, pendingOnly)
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)

	require.Len(t, events, 1)
	col, err := m.FetchCollection(ctx, models.KindRides, Query{Filters: []Filter{Eq("id", "b")}})
	require.NoError(t, err)
	require.Len(t, col.Rides, 1)
	assert.Equal(t, models.RideStatusInProgress, col.Rides[0].Status)
}

func TestMemoryStoreHoldFetchesReadsBeforeWaiting(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()
	started, release := m.HoldFetches(models.KindRides)

	var col models.Collection
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		col, err = m.FetchCollection(ctx, models.KindRides, Query{})
	}()
	<-started

	// filtered reads are not held
	filtered, ferr := m.FetchCollection(ctx, models.KindRides, Query{Filters: []Filter{Eq("id", "a")}})
	require.NoError(t, ferr)
	assert.Len(t, filtered.Rides, 1)

	_, perr := m.Put(ctx, models.KindRides, models.Ride{ID: "d", ClientID: "c1", Status: models.RideStatusPending, CreatedAt: now})
	require.NoError(t, perr)
	release()
	<-done

	require.NoError(t, err)
	assert.Len(t, col.Rides, 3)
}

func TestMemoryStorePutAndDelete(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var types []EventType
	_, err := m.Subscribe(ctx, models.KindClients, nil, func(ev ChangeEvent) { types = append(types, ev.Type) })
	require.NoError(t, err)

	id, err := m.Put(ctx, models.KindClients, models.Row{"name": "Fatou", "is_driver": false})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = m.Put(ctx, models.KindClients, models.Row{"id": id, "name": "Fatou K.", "is_driver": false})
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, models.KindClients, id))
	assert.Error(t, m.Delete(ctx, models.KindClients, id))

	assert.Equal(t, []EventType{EventInsert, EventUpdate, EventDelete}, types)
}

func TestMemoryStoreInjectedError(t *testing.T) {
	m := seeded(t).WithError(errors.New("boom"))
	ctx := context.Background()

	_, err := m.FetchCollection(ctx, models.KindRides, Query{})
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "fetch", fe.Op)

	_, err = m.FetchCount(ctx, models.KindRides)
	assert.ErrorAs(t, err, &fe)
	_, err = m.Subscribe(ctx, models.KindRides, nil, func(ChangeEvent) {})
	assert.Error(t, err)
	assert.Error(t, m.UpdateRow(ctx, models.KindRides, "a", map[string]any{"status": "completed"}))
}

func TestMemoryStoreGateHonoursContext(t *testing.T) {
	m := seeded(t)
	started, release := m.GateFetches()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = m.FetchCollection(ctx, models.KindRides, Query{})
	}()
	<-started
	cancel()
	wg.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}
