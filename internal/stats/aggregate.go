// Package stats turns ride rows into the dashboard chart series.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
)

const (
	DefaultWindowDays  = 7
	DefaultWindowWeeks = 4

	day  = 24 * time.Hour
	week = 7 * day
)

// DayNames is the fixed weekday calendar used for day labels, indexed by
// time.Weekday.
var DayNames = [7]string{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"}

// GroupByDay buckets the rides created within [now-windowDays, now] by
// weekday name. Every ride counts towards ride_count; only completed rides
// add revenue. Days without rides are absent. Buckets come out in the order
// their first ride appears chronologically.
func GroupByDay(rides []models.Ride, now time.Time, windowDays int) []models.DayBucket {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	from := now.Add(-time.Duration(windowDays) * day)

	inWindow := make([]models.Ride, 0, len(rides))
	for _, r := range rides {
		if r.CreatedAt.Before(from) || r.CreatedAt.After(now) {
			continue
		}
		inWindow = append(inWindow, r)
	}
	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].CreatedAt.Before(inWindow[j].CreatedAt)
	})

	buckets := make([]models.DayBucket, 0, 7)
	index := make(map[string]int, 7)
	for _, r := range inWindow {
		label := DayNames[r.CreatedAt.In(now.Location()).Weekday()]
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, models.DayBucket{Label: label})
		}
		buckets[i].RideCount++
		if r.IsCompleted() {
			buckets[i].Revenue += r.TotalPrice.Float64()
		}
	}
	return buckets
}

// GroupByWeek sums the revenue of completed rides per week, labelled
// windowWeeks - floor(age / 7 days). Rides outside [now-windowWeeks, now]
// are left out, so labels always fall in 1..windowWeeks.
func GroupByWeek(rides []models.Ride, now time.Time, windowWeeks int) []models.WeekBucket {
	if windowWeeks <= 0 {
		windowWeeks = DefaultWindowWeeks
	}

	byWeek := make(map[int]*models.WeekBucket, windowWeeks)
	for _, r := range rides {
		if !r.IsCompleted() {
			continue
		}
		age := now.Sub(r.CreatedAt)
		if age < 0 {
			continue
		}
		n := windowWeeks - int(age/week)
		if n < 1 {
			continue
		}
		b, ok := byWeek[n]
		if !ok {
			b = &models.WeekBucket{Label: WeekLabel(n), Week: n}
			byWeek[n] = b
		}
		b.RideCount++
		b.Revenue += r.TotalPrice.Float64()
	}

	out := make([]models.WeekBucket, 0, len(byWeek))
	for _, b := range byWeek {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

// WeekLabel renders the chart label of week n.
func WeekLabel(n int) string {
	return fmt.Sprintf("Semaine %d", n)
}

// DayTotals sums a daily series.
func DayTotals(buckets []models.DayBucket) (rides int, revenue float64) {
	for _, b := range buckets {
		rides += b.RideCount
		revenue += b.Revenue
	}
	return rides, revenue
}

// WeekTotals sums a weekly series.
func WeekTotals(buckets []models.WeekBucket) (rides int, revenue float64) {
	for _, b := range buckets {
		rides += b.RideCount
		revenue += b.Revenue
	}
	return rides, revenue
}

// Revenue sums total_price over completed rides.
func Revenue(rides []models.Ride) float64 {
	var sum float64
	for _, r := range rides {
		if r.IsCompleted() {
			sum += r.TotalPrice.Float64()
		}
	}
	return sum
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
