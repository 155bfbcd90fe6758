// Package store defines the contract between the dashboard core and the
// backend that owns the data, plus an in-memory implementation of it.
package store

import (
	"context"

	"github.com/chachabrian/mooveit-admin/internal/models"
)

// Op is a filter operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Filter restricts a query or a subscription to matching rows.
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
func Neq(field string, v any) Filter { return Filter{Field: field, Op: OpNeq, Value: v} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// In matches any of values.
func In[T any](field string, values ...T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// Query describes a collection fetch.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// EventType is the kind of row change carried by a notification.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a change notification for one row.
type ChangeEvent struct {
	Kind models.EntityKind `json:"kind"`
	Type EventType         `json:"type"`
	ID   string            `json:"id"`
	Row  models.Row        `json:"row,omitempty"`
}

// Handle identifies a live subscription.
type Handle string

// Collaborator is everything the dashboard core needs from the backend.
type Collaborator interface {
	FetchCollection(ctx context.Context, kind models.EntityKind, q Query) (models.Collection, error)
	FetchCount(ctx context.Context, kind models.EntityKind, filters ...Filter) (int64, error)
	Subscribe(ctx context.Context, kind models.EntityKind, filters []Filter, onChange func(ChangeEvent)) (Handle, error)
	Unsubscribe(h Handle) error
	// UpdateRow patches row id. With conds the write only applies while the
	// row still matches them, else it fails with models.ErrStaleWrite.
	UpdateRow(ctx context.Context, kind models.EntityKind, id string, patch map[string]any, conds ...Filter) error
}

// ChangeFeed transports change notifications between the writers of the
// data and the dashboards watching it.
type ChangeFeed interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, kind models.EntityKind, filters []Filter, onChange func(ChangeEvent)) (Handle, error)
	Unsubscribe(h Handle) error
	Close() error
}
