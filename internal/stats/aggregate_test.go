package stats

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday noon.
var now = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

func ride(status models.RideStatus, price float64, age time.Duration) models.Ride {
	return models.Ride{
		ID:         fmt.Sprintf("r-%d-%s", int(age), status),
		Status:     status,
		TotalPrice: models.Amount(price),
		CreatedAt:  now.Add(-age),
	}
}

func TestGroupByDay_MixedPricesToday(t *testing.T) {
	ts := now.Add(-time.Hour).Format(time.RFC3339)
	raw := fmt.Sprintf(`[
		{"id":"a","status":"completed","total_price":1000,"created_at":%q},
		{"id":"b","status":"completed","total_price":"2000","created_at":%q},
		{"id":"c","status":"pending","total_price":"bad","created_at":%q}
	]`, ts, ts, ts)

	var rides []models.Ride
	require.NoError(t, json.Unmarshal([]byte(raw), &rides))

	buckets := GroupByDay(rides, now, 7)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Mer", buckets[0].Label)
	assert.Equal(t, 3, buckets[0].RideCount)
	assert.Equal(t, 3000.0, buckets[0].Revenue)
}

func TestGroupByDay_CountsMatchWindow(t *testing.T) {
	rides := []models.Ride{
		ride(models.RideStatusCompleted, 500, 2*time.Hour),
		ride(models.RideStatusCancelled, 700, 26*time.Hour),
		ride(models.RideStatusPending, 0, 3*day),
		ride(models.RideStatusCompleted, 900, 6*day),
		ride(models.RideStatusCompleted, 1200, 8*day),      // outside the window
		ride(models.RideStatusCompleted, 1200, -time.Hour), // in the future
	}

	buckets := GroupByDay(rides, now, 7)
	total, revenue := DayTotals(buckets)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1400.0, revenue)

	allowed := map[string]bool{}
	for _, r := range rides[:4] {
		allowed[DayNames[r.CreatedAt.Weekday()]] = true
	}
	for _, b := range buckets {
		assert.True(t, allowed[b.Label], "unexpected day %s", b.Label)
	}
}

func TestGroupByDay_RevenueOnlyFromCompleted(t *testing.T) {
	rides := []models.Ride{
		ride(models.RideStatusCompleted, 1500, time.Hour),
		ride(models.RideStatusCancelled, 9999, 2*time.Hour),
		ride(models.RideStatusInProgress, 4444, 3*time.Hour),
	}

	buckets := GroupByDay(rides, now, 7)
	require.Len(t, buckets, 1)
	assert.Equal(t, 3, buckets[0].RideCount)
	assert.Equal(t, 1500.0, buckets[0].Revenue)
}

func TestGroupByDay_ChronologicalOrder(t *testing.T) {
	rides := []models.Ride{
		ride(models.RideStatusCompleted, 100, time.Hour), // Mer
		ride(models.RideStatusCompleted, 100, 2*day),     // Lun
		ride(models.RideStatusCompleted, 100, day),       // Mar
	}

	buckets := GroupByDay(rides, now, 7)
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"Lun", "Mar", "Mer"}, labels)
}

func TestGroupByDay_Empty(t *testing.T) {
	assert.Empty(t, GroupByDay(nil, now, 7))
	assert.Empty(t, GroupByWeek(nil, now, 4))
}

func TestGroupByWeek(t *testing.T) {
	rides := []models.Ride{
		ride(models.RideStatusCompleted, 1000, day),   // week 4
		ride(models.RideStatusCompleted, 500, 3*day),  // week 4
		ride(models.RideStatusCompleted, 2000, 8*day), // week 3
		ride(models.RideStatusCancelled, 7000, 8*day), // not completed
		ride(models.RideStatusCompleted, 300, 27*day), // week 1
		ride(models.RideStatusCompleted, 800, 29*day), // outside the window
		ride(models.RideStatusCompleted, 800, -day),   // in the future
	}

	buckets := GroupByWeek(rides, now, 4)
	require.Len(t, buckets, 3)

	assert.Equal(t, models.WeekBucket{Label: "Semaine 1", Week: 1, RideCount: 1, Revenue: 300}, buckets[0])
	assert.Equal(t, models.WeekBucket{Label: "Semaine 3", Week: 3, RideCount: 1, Revenue: 2000}, buckets[1])
	assert.Equal(t, models.WeekBucket{Label: "Semaine 4", Week: 4, RideCount: 2, Revenue: 1500}, buckets[2])

	for _, b := range buckets {
		assert.GreaterOrEqual(t, b.Week, 1)
		assert.LessOrEqual(t, b.Week, 4)
	}
}

func TestDefaultsApplyForNonPositiveWindows(t *testing.T) {
	rides := []models.Ride{ride(models.RideStatusCompleted, 100, 6*day)}
	assert.Len(t, GroupByDay(rides, now, 0), 1)
	assert.Len(t, GroupByWeek(rides, now, -1), 1)
}

func TestRevenue(t *testing.T) {
	rides := []models.Ride{
		ride(models.RideStatusCompleted, 100, 0),
		ride(models.RideStatusCompleted, 250.5, 40*day),
		ride(models.RideStatusPending, 1000, 0),
	}
	assert.Equal(t, 350.5, Revenue(rides))
}

func TestStartOfDay(t *testing.T) {
	assert.Equal(t, time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC), StartOfDay(now))
}
