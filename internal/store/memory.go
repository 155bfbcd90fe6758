package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Collaborator. It backs the tests and the
// placeholder mode used when the database cannot be reached.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[models.EntityKind][]models.Row
	feed *LocalFeed

	err          error
	fetchGate    chan struct{}
	fetchStarted chan models.EntityKind
	holdKind     models.EntityKind
	holdGate     chan struct{}
	holdStarted  chan struct{}
	fetchCalls   map[models.EntityKind]int
	countCalls   map[models.EntityKind]int
	updateCalls  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:       make(map[models.EntityKind][]models.Row),
		feed:       NewLocalFeed(),
		fetchCalls: make(map[models.EntityKind]int),
		countCalls: make(map[models.EntityKind]int),
	}
}

// Feed exposes the in-process change feed of the store.
func (m *MemoryStore) Feed() *LocalFeed {
	return m.feed
}

// WithError makes every subsequent call fail with err until reset with nil.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// GateFetches blocks FetchCollection until the returned release func is
// called. Each started fetch is reported on started.
func (m *MemoryStore) GateFetches() (started <-chan models.EntityKind, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	ch := make(chan models.EntityKind, 16)
	m.fetchGate = gate
	m.fetchStarted = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			m.fetchGate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

// HoldFetches lets unfiltered FetchCollection calls for kind read their rows
// and then wait until release is called, so writes can land after a result
// is already fixed. Each held fetch is reported on started. A later
// HoldFetches call holds new fetches on a fresh gate.
func (m *MemoryStore) HoldFetches(kind models.EntityKind) (started <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	ch := make(chan struct{}, 16)
	m.holdKind = kind
	m.holdGate = gate
	m.holdStarted = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			if m.holdGate == gate {
				m.holdGate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// FetchCalls returns how many collection fetches hit the store for kind.
func (m *MemoryStore) FetchCalls(kind models.EntityKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls[kind]
}

// CountCalls returns how many count queries hit the store for kind.
func (m *MemoryStore) CountCalls(kind models.EntityKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countCalls[kind]
}

// UpdateCalls returns how many row updates were attempted.
func (m *MemoryStore) UpdateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCalls
}

// Put upserts a typed record or a raw Row and publishes the change.
func (m *MemoryStore) Put(ctx context.Context, kind models.EntityKind, v any) (string, error) {
	row, ok := v.(models.Row)
	if !ok {
		row = models.ToRow(v)
	}
	row = cloneRow(row)
	id := row.String("id")
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}

	m.mu.Lock()
	evType := EventInsert
	list := m.rows[kind]
	replaced := false
	for i, existing := range list {
		if existing.String("id") == id {
			list[i] = row
			replaced = true
			evType = EventUpdate
			break
		}
	}
	if !replaced {
		m.rows[kind] = append(list, row)
	}
	m.mu.Unlock()

	return id, m.feed.Publish(ctx, ChangeEvent{Kind: kind, Type: evType, ID: id, Row: cloneRow(row)})
}

// Delete removes a row and publishes the change.
func (m *MemoryStore) Delete(ctx context.Context, kind models.EntityKind, id string) error {
	m.mu.Lock()
	list := m.rows[kind]
	idx := -1
	for i, r := range list {
		if r.String("id") == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	removed := list[idx]
	m.rows[kind] = append(list[:idx:idx], list[idx+1:]...)
	m.mu.Unlock()

	return m.feed.Publish(ctx, ChangeEvent{Kind: kind, Type: EventDelete, ID: id, Row: removed})
}

func (m *MemoryStore) FetchCollection(ctx context.Context, kind models.EntityKind, q Query) (models.Collection, error) {
	m.mu.Lock()
	m.fetchCalls[kind]++
	if err := m.err; err != nil {
		m.mu.Unlock()
		return models.Collection{}, models.NewFetchError(kind, "fetch", err)
	}
	gate, started := m.fetchGate, m.fetchStarted
	m.mu.Unlock()

	if gate != nil {
		select {
		case started <- kind:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Collection{}, models.NewFetchError(kind, "fetch", ctx.Err())
		}
	}

	m.mu.Lock()
	matched := m.selectLocked(kind, q.Filters)
	if kind == models.KindRides || kind == models.KindVerifications {
		matched = m.joinLocked(kind, matched)
	}
	m.mu.Unlock()

	if q.OrderBy != "" {
		sortRows(matched, q.OrderBy, q.Descending)
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	col, err := decodeCollection(kind, matched)
	if err != nil {
		return col, err
	}

	m.mu.Lock()
	hold, held := m.holdGate, m.holdStarted
	holding := hold != nil && kind == m.holdKind && len(q.Filters) == 0
	m.mu.Unlock()
	if holding {
		select {
		case held <- struct{}{}:
		default:
		}
		select {
		case <-hold:
		case <-ctx.Done():
			return models.Collection{}, models.NewFetchError(kind, "fetch", ctx.Err())
		}
	}
	return col, nil
}

func (m *MemoryStore) FetchCount(_ context.Context, kind models.EntityKind, filters ...Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls[kind]++
	if m.err != nil {
		return 0, models.NewFetchError(kind, "count", m.err)
	}
	return int64(len(m.selectLocked(kind, filters))), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, kind models.EntityKind, filters []Filter, onChange func(ChangeEvent)) (Handle, error) {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return "", models.NewFetchError(kind, "subscribe", err)
	}
	return m.feed.Subscribe(ctx, kind, filters, onChange)
}

func (m *MemoryStore) Unsubscribe(h Handle) error {
	return m.feed.Unsubscribe(h)
}

func (m *MemoryStore) UpdateRow(ctx context.Context, kind models.EntityKind, id string, patch map[string]any, conds ...Filter) error {
	m.mu.Lock()
	m.updateCalls++
	if m.err != nil {
		m.mu.Unlock()
		return models.NewFetchError(kind, "update", m.err)
	}
	var updated models.Row
	for i, r := range m.rows[kind] {
		if r.String("id") != id {
			continue
		}
		if !Match(r, conds) {
			m.mu.Unlock()
			return models.ErrStaleWrite
		}
		next := cloneRow(r)
		for k, v := range patch {
			next[k] = v
		}
		// normalise through JSON so stored values look like decoded rows
		next = models.ToRow(next)
		m.rows[kind][i] = next
		updated = next
		break
	}
	m.mu.Unlock()

	if updated == nil {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	return m.feed.Publish(ctx, ChangeEvent{Kind: kind, Type: EventUpdate, ID: id, Row: cloneRow(updated)})
}

func (m *MemoryStore) selectLocked(kind models.EntityKind, filters []Filter) []models.Row {
	var out []models.Row
	for _, r := range m.rows[kind] {
		if Match(r, filters) {
			out = append(out, cloneRow(r))
		}
	}
	return out
}

func (m *MemoryStore) joinLocked(kind models.EntityKind, rows []models.Row) []models.Row {
	byID := func(k models.EntityKind, id string) models.Row {
		if id == "" {
			return nil
		}
		for _, r := range m.rows[k] {
			if r.String("id") == id {
				return cloneRow(r)
			}
		}
		return nil
	}
	for _, r := range rows {
		switch kind {
		case models.KindRides:
			if c := byID(models.KindClients, r.String("client_id")); c != nil {
				r["client"] = c
			}
			if d := byID(models.KindDrivers, r.String("driver_id")); d != nil {
				r["driver"] = d
			}
		case models.KindVerifications:
			if d := byID(models.KindDrivers, r.String("driver_id")); d != nil {
				r["driver"] = d
			}
		}
	}
	return rows
}

func sortRows(rows []models.Row, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		c, ok := models.CompareValues(rows[i][field], rows[j][field])
		if !ok {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func decodeCollection(kind models.EntityKind, rows []models.Row) (models.Collection, error) {
	if rows == nil {
		rows = []models.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return models.Collection{}, models.NewFetchError(kind, "decode", err)
	}
	out := models.Collection{Kind: kind}
	var target any
	switch kind {
	case models.KindClients:
		target = &out.Clients
	case models.KindDrivers:
		target = &out.Drivers
	case models.KindRides:
		target = &out.Rides
	case models.KindVerifications:
		target = &out.Verifications
	default:
		return models.Collection{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return models.Collection{}, models.NewFetchError(kind, "decode", err)
	}
	return out, nil
}

func cloneRow(r models.Row) models.Row {
	out := make(models.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
