package datasync

import (
	"sort"
	"sync"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
)

type EventType string

const (
	EventChange          EventType = "change"
	EventSnapshotUpdated EventType = "snapshot_updated"
	EventStatsUpdated    EventType = "stats_updated"
	EventRefreshFailed   EventType = "refresh_failed"
)

// Event is what the presentation layer is told about the cache.
type Event struct {
	Type     EventType          `json:"type"`
	Kind     models.EntityKind  `json:"kind,omitempty"`
	Revision uint64             `json:"revision,omitempty"`
	Change   *store.ChangeEvent `json:"change,omitempty"`
	Err      error              `json:"-"`
	At       time.Time          `json:"at"`
}

// Listener receives events synchronously on the goroutine that produced
// them. It must not block.
type Listener func(Event)

type listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.RLock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// KindHealth describes the freshness of one cached collection.
type KindHealth struct {
	Revision  uint64    `json:"revision"`
	Rows      int       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Health is the cache state reported by the health endpoint.
type Health struct {
	Running     bool                             `json:"running"`
	Degraded    bool                             `json:"degraded"`
	Placeholder bool                             `json:"placeholder"`
	Kinds       map[models.EntityKind]KindHealth `json:"kinds"`
	StatsAt     time.Time                        `json:"stats_at,omitempty"`
	StatsError  string                           `json:"stats_error,omitempty"`
}
