package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/google/uuid"
)

type subscription struct {
	kind     models.EntityKind
	filters  []Filter
	onChange func(ChangeEvent)
}

// LocalFeed is an in-process change feed. Handlers run on the publishing
// goroutine, outside the feed's lock.
type LocalFeed struct {
	mu   sync.RWMutex
	subs map[Handle]subscription
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[Handle]subscription)}
}

func (f *LocalFeed) Publish(_ context.Context, ev ChangeEvent) error {
	f.mu.RLock()
	targets := make([]func(ChangeEvent), 0, len(f.subs))
	for _, s := range f.subs {
		if s.kind == ev.Kind && (len(s.filters) == 0 || Match(ev.Row, s.filters)) {
			targets = append(targets, s.onChange)
		}
	}
	f.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
	return nil
}

func (f *LocalFeed) Subscribe(_ context.Context, kind models.EntityKind, filters []Filter, onChange func(ChangeEvent)) (Handle, error) {
	if onChange == nil {
		return "", fmt.Errorf("subscribe %s: nil handler", kind)
	}
	h := Handle(uuid.NewString())
	f.mu.Lock()
	f.subs[h] = subscription{kind: kind, filters: filters, onChange: onChange}
	f.mu.Unlock()
	return h, nil
}

func (f *LocalFeed) Unsubscribe(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[h]; !ok {
		return fmt.Errorf("unknown subscription %s", h)
	}
	delete(f.subs, h)
	return nil
}

// Subscribers returns the number of live subscriptions.
func (f *LocalFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *LocalFeed) Close() error {
	f.mu.Lock()
	f.subs = make(map[Handle]subscription)
	f.mu.Unlock()
	return nil
}
