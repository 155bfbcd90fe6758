package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
)

// ChangeChannel is the Redis channel carrying changes of kind.
func ChangeChannel(kind models.EntityKind) string {
	return "changes:" + string(kind)
}

// RoutingKey is the AMQP routing key of a change event.
func RoutingKey(kind models.EntityKind, t store.EventType) string {
	return fmt.Sprintf("%s.%s", kind, strings.ToLower(string(t)))
}

func encodeChange(ev store.ChangeEvent) ([]byte, error) {
	if ev.Kind == "" {
		return nil, fmt.Errorf("change event without kind")
	}
	return json.Marshal(ev)
}

// decodeChange parses a change message received for kind. Messages that
// name a different kind or an unknown event type are rejected.
func decodeChange(payload []byte, kind models.EntityKind) (store.ChangeEvent, error) {
	var ev store.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return store.ChangeEvent{}, fmt.Errorf("invalid change message: %w", err)
	}
	if ev.Kind == "" {
		ev.Kind = kind
	}
	if ev.Kind != kind {
		return store.ChangeEvent{}, fmt.Errorf("change for %s received on %s feed", ev.Kind, kind)
	}
	ev.Type = store.EventType(strings.ToUpper(string(ev.Type)))
	switch ev.Type {
	case store.EventInsert, store.EventUpdate, store.EventDelete:
	default:
		return store.ChangeEvent{}, fmt.Errorf("unknown change type %q", ev.Type)
	}
	if ev.ID == "" {
		ev.ID = ev.Row.String("id")
	}
	return ev, nil
}

func wants(ev store.ChangeEvent, filters []store.Filter) bool {
	return len(filters) == 0 || store.Match(ev.Row, filters)
}
