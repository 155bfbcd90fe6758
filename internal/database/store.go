package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// columns whitelists what filters, ordering and patches may reference.
var columns = map[models.EntityKind]map[string]bool{
	models.KindClients: set("id", "name", "email", "phone", "address", "is_driver",
		"total_rides", "rating", "created_at"),
	models.KindDrivers: set("id", "full_name", "email", "phone", "license_number", "vehicle_type",
		"vehicle_plate", "is_verified", "total_rides", "total_earnings", "rating", "status", "created_at"),
	models.KindRides: set("id", "client_id", "driver_id", "pickup_address", "dropoff_address",
		"distance", "duration", "total_price", "payment_method", "status", "created_at", "completed_at"),
	models.KindVerifications: set("id", "driver_id", "identity_photo_url", "driver_photo_url",
		"motorcycle_photo_url", "motorcycle_model", "motorcycle_color", "motorcycle_plate", "status",
		"submitted_at", "verified_at", "rejection_reason", "admin_notes"),
}

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// Store is the Postgres collaborator. Change notifications travel on feed;
// writes made here are published to it as well.
type Store struct {
	db   *gorm.DB
	feed store.ChangeFeed
	log  log.FieldLogger
}

func NewStore(db *gorm.DB, feed store.ChangeFeed, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{db: db, feed: feed, log: logger.WithField("component", "database")}
}

func modelFor(kind models.EntityKind) (any, error) {
	switch kind {
	case models.KindClients:
		return &models.Client{}, nil
	case models.KindDrivers:
		return &models.Driver{}, nil
	case models.KindRides:
		return &models.Ride{}, nil
	case models.KindVerifications:
		return &models.DriverVerification{}, nil
	}
	return nil, &models.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown entity kind %q", kind)}
}

func checkColumn(kind models.EntityKind, name string) error {
	if !columns[kind][name] {
		return &models.ValidationError{Field: name, Message: fmt.Sprintf("unknown column for %s", kind)}
	}
	return nil
}

func (s *Store) scoped(ctx context.Context, kind models.EntityKind, filters []store.Filter) (*gorm.DB, error) {
	model, err := modelFor(kind)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Model(model)
	for _, f := range filters {
		expr, err := filterExpr(kind, f)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr)
	}
	return tx, nil
}

func filterExpr(kind models.EntityKind, f store.Filter) (clause.Expression, error) {
	if err := checkColumn(kind, f.Field); err != nil {
		return nil, err
	}
	col := clause.Column{Name: f.Field}
	switch f.Op {
	case store.OpEq:
		return clause.Eq{Column: col, Value: sqlValue(f.Value)}, nil
	case store.OpNeq:
		return clause.Neq{Column: col, Value: sqlValue(f.Value)}, nil
	case store.OpGte:
		return clause.Gte{Column: col, Value: sqlValue(f.Value)}, nil
	case store.OpLte:
		return clause.Lte{Column: col, Value: sqlValue(f.Value)}, nil
	case store.OpIn:
		values := sqlValues(f.Value)
		if len(values) == 0 {
			// IN () matches nothing
			return clause.Expr{SQL: "1 = 0"}, nil
		}
		return clause.IN{Column: col, Values: values}, nil
	}
	return nil, &models.ValidationError{Field: f.Field, Message: fmt.Sprintf("unsupported operator %q", f.Op)}
}

// sqlValue unwraps named string types such as RideStatus so the driver
// sees plain strings.
func sqlValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String && rv.Type() != reflect.TypeOf("") {
		return rv.String()
	}
	return v
}

func sqlValues(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{sqlValue(v)}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = sqlValue(rv.Index(i).Interface())
	}
	return out
}

func (s *Store) FetchCollection(ctx context.Context, kind models.EntityKind, q store.Query) (models.Collection, error) {
	tx, err := s.scoped(ctx, kind, q.Filters)
	if err != nil {
		return models.Collection{}, err
	}
	if q.OrderBy != "" {
		if err := checkColumn(kind, q.OrderBy); err != nil {
			return models.Collection{}, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Descending})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	out := models.Collection{Kind: kind}
	switch kind {
	case models.KindClients:
		err = tx.Find(&out.Clients).Error
	case models.KindDrivers:
		err = tx.Find(&out.Drivers).Error
	case models.KindRides:
		err = tx.Preload("Client").Preload("Driver").Find(&out.Rides).Error
	case models.KindVerifications:
		err = tx.Preload("Driver").Find(&out.Verifications).Error
	}
	if err != nil {
		return models.Collection{}, models.NewFetchError(kind, "fetch", err)
	}
	return out, nil
}

func (s *Store) FetchCount(ctx context.Context, kind models.EntityKind, filters ...store.Filter) (int64, error) {
	tx, err := s.scoped(ctx, kind, filters)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, models.NewFetchError(kind, "count", err)
	}
	return n, nil
}

func (s *Store) Subscribe(ctx context.Context, kind models.EntityKind, filters []store.Filter, onChange func(store.ChangeEvent)) (store.Handle, error) {
	if s.feed == nil {
		return "", models.NewFetchError(kind, "subscribe", models.ErrUnavailable)
	}
	for _, f := range filters {
		if err := checkColumn(kind, f.Field); err != nil {
			return "", err
		}
	}
	return s.feed.Subscribe(ctx, kind, filters, onChange)
}

func (s *Store) Unsubscribe(h store.Handle) error {
	if s.feed == nil {
		return nil
	}
	return s.feed.Unsubscribe(h)
}

// UpdateRow applies patch to one row and publishes the resulting row. The
// conds are part of the UPDATE's WHERE clause, so a row that changed since
// the caller read it is left alone.
func (s *Store) UpdateRow(ctx context.Context, kind models.EntityKind, id string, patch map[string]any, conds ...store.Filter) error {
	if _, err := modelFor(kind); err != nil {
		return err
	}
	values := make(map[string]any, len(patch))
	for k, v := range patch {
		if err := checkColumn(kind, k); err != nil {
			return err
		}
		if k == "id" {
			return &models.ValidationError{Field: k, Message: "id cannot be patched"}
		}
		values[k] = sqlValue(v)
	}

	tx, err := s.updateScope(ctx, kind, id, conds)
	if err != nil {
		return err
	}
	res := tx.Updates(values)
	if res.Error != nil {
		return models.NewFetchError(kind, "update", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missedUpdate(ctx, kind, id, conds)
	}

	s.publish(ctx, kind, id)
	return nil
}

func (s *Store) updateScope(ctx context.Context, kind models.EntityKind, id string, conds []store.Filter) (*gorm.DB, error) {
	filters := make([]store.Filter, 0, len(conds)+1)
	filters = append(filters, store.Eq("id", id))
	filters = append(filters, conds...)
	return s.scoped(ctx, kind, filters)
}

// missedUpdate tells a missing row from one that failed the conditions.
func (s *Store) missedUpdate(ctx context.Context, kind models.EntityKind, id string, conds []store.Filter) error {
	if len(conds) > 0 {
		n, err := s.FetchCount(ctx, kind, store.Eq("id", id))
		if err != nil {
			return err
		}
		if n > 0 {
			return models.ErrStaleWrite
		}
	}
	return &models.NotFoundError{Kind: kind, ID: id}
}

func (s *Store) publish(ctx context.Context, kind models.EntityKind, id string) {
	if s.feed == nil {
		return
	}
	ev := store.ChangeEvent{Kind: kind, Type: store.EventUpdate, ID: id}
	col, err := s.FetchCollection(ctx, kind, store.Query{Filters: []store.Filter{store.Eq("id", id)}, Limit: 1})
	if err == nil {
		switch {
		case len(col.Clients) > 0:
			ev.Row = models.ToRow(col.Clients[0])
		case len(col.Drivers) > 0:
			ev.Row = models.ToRow(col.Drivers[0])
		case len(col.Rides) > 0:
			ev.Row = models.ToRow(col.Rides[0])
		case len(col.Verifications) > 0:
			ev.Row = models.ToRow(col.Verifications[0])
		}
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(log.Fields{"kind": kind, "id": id}).Warn("Failed to publish change")
	}
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Admin{}, &models.NotFoundError{Kind: "admins", ID: email}
	}
	if err != nil {
		return models.Admin{}, fmt.Errorf("failed to load admin: %w", err)
	}
	return admin, nil
}

func (s *Store) AdminByID(ctx context.Context, id string) (models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).First(&admin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Admin{}, &models.NotFoundError{Kind: "admins", ID: id}
	}
	if err != nil {
		return models.Admin{}, fmt.Errorf("failed to load admin: %w", err)
	}
	return admin, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
