// Package verification implements the driver-document review workflow:
// a pending bundle is approved or rejected once, and never moves again.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	log "github.com/sirupsen/logrus"
)

// Cache is the part of the data sync core the workflow reads from and
// refreshes after a decision.
type Cache interface {
	Refresh(ctx context.Context, kind models.EntityKind) (models.Collection, error)
	Verifications() []models.DriverVerification
	VerificationCounts() models.VerificationCounts
}

type Workflow struct {
	backend store.Collaborator
	cache   Cache
	now     func() time.Time
	log     log.FieldLogger
}

type Option func(*Workflow)

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func WithLogger(l log.FieldLogger) Option {
	return func(w *Workflow) { w.log = l }
}

func NewWorkflow(backend store.Collaborator, cache Cache, opts ...Option) *Workflow {
	w := &Workflow{
		backend: backend,
		cache:   cache,
		now:     time.Now,
		log:     log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("component", "verification")
	return w
}

// Approve accepts a pending bundle and marks its driver verified.
func (w *Workflow) Approve(ctx context.Context, id, adminNotes string) (models.DriverVerification, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.DriverVerification{}, &models.ValidationError{Field: "id", Message: "verification id is required"}
	}

	verifiedAt := w.now()
	notes := strings.TrimSpace(adminNotes)
	current, err := w.decide(ctx, id, models.VerificationApproved, map[string]any{
		"status":      string(models.VerificationApproved),
		"verified_at": verifiedAt,
		"admin_notes": notes,
	})
	if err != nil {
		return models.DriverVerification{}, err
	}

	if current.DriverID != "" {
		err := w.backend.UpdateRow(ctx, models.KindDrivers, current.DriverID, map[string]any{"is_verified": true})
		if err != nil {
			w.log.WithError(err).WithField("driver_id", current.DriverID).Warn("Failed to mark driver verified")
		}
	}

	w.log.WithFields(log.Fields{"verification_id": id, "driver_id": current.DriverID}).Info("Verification approved")

	current.Status = models.VerificationApproved
	current.VerifiedAt = &verifiedAt
	current.AdminNotes = notes
	return w.settle(ctx, current, models.KindVerifications, models.KindDrivers), nil
}

// Reject turns down a pending bundle. The reason is mandatory and checked
// before the backend is contacted.
func (w *Workflow) Reject(ctx context.Context, id, reason, adminNotes string) (models.DriverVerification, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.DriverVerification{}, &models.ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return models.DriverVerification{}, &models.ValidationError{Field: "id", Message: "verification id is required"}
	}

	verifiedAt := w.now()
	notes := strings.TrimSpace(adminNotes)
	current, err := w.decide(ctx, id, models.VerificationRejected, map[string]any{
		"status":           string(models.VerificationRejected),
		"verified_at":      verifiedAt,
		"rejection_reason": reason,
		"admin_notes":      notes,
	})
	if err != nil {
		return models.DriverVerification{}, err
	}

	w.log.WithFields(log.Fields{"verification_id": id, "reason": reason}).Info("Verification rejected")

	current.Status = models.VerificationRejected
	current.VerifiedAt = &verifiedAt
	current.RejectionReason = reason
	current.AdminNotes = notes
	return w.settle(ctx, current, models.KindVerifications), nil
}

// decide writes patch only while the bundle is still pending in the
// backend. When another decision lands between the read and the write, the
// bundle is read again and the caller gets the transition error for its
// new status.
func (w *Workflow) decide(ctx context.Context, id string, to models.VerificationStatus, patch map[string]any) (models.DriverVerification, error) {
	current, err := w.transition(ctx, id, to)
	if err != nil {
		return models.DriverVerification{}, err
	}

	err = w.backend.UpdateRow(ctx, models.KindVerifications, id, patch,
		store.Eq("status", string(models.VerificationPending)))
	if errors.Is(err, models.ErrStaleWrite) {
		w.log.WithFields(log.Fields{"verification_id": id, "to": to}).Warn("Verification decided concurrently")
		if _, err := w.transition(ctx, id, to); err != nil {
			return models.DriverVerification{}, err
		}
		return models.DriverVerification{}, &models.InvalidTransitionError{ID: id, From: current.Status, To: to}
	}
	if err != nil {
		return models.DriverVerification{}, err
	}
	return current, nil
}

// transition checks the backend copy of the bundle; the cache may lag.
func (w *Workflow) transition(ctx context.Context, id string, to models.VerificationStatus) (models.DriverVerification, error) {
	col, err := w.backend.FetchCollection(ctx, models.KindVerifications, store.Query{
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return models.DriverVerification{}, models.NewFetchError(models.KindVerifications, "fetch", err)
	}
	if len(col.Verifications) == 0 {
		return models.DriverVerification{}, &models.NotFoundError{Kind: models.KindVerifications, ID: id}
	}
	current := col.Verifications[0]
	if !current.Status.CanTransition(to) {
		return models.DriverVerification{}, &models.InvalidTransitionError{ID: id, From: current.Status, To: to}
	}
	return current, nil
}

// settle refreshes the affected collections and returns the cached copy of
// v, or v itself when the refresh did not go through.
func (w *Workflow) settle(ctx context.Context, v models.DriverVerification, kinds ...models.EntityKind) models.DriverVerification {
	for _, kind := range kinds {
		if _, err := w.cache.Refresh(ctx, kind); err != nil {
			w.log.WithError(err).WithField("kind", kind).Warn("Refresh after verification decision failed")
		}
	}
	if fresh, err := w.Get(v.ID); err == nil && fresh.Status == v.Status {
		return fresh
	}
	return v
}

// List returns the cached bundles, optionally restricted to one status.
// An empty status or "all" returns everything.
func (w *Workflow) List(status string) ([]models.DriverVerification, error) {
	all := w.cache.Verifications()
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return all, nil
	}
	want := models.VerificationStatus(status)
	if !want.Valid() {
		return nil, &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown verification status %q", status)}
	}
	out := make([]models.DriverVerification, 0, len(all))
	for _, v := range all {
		if v.Status == want {
			out = append(out, v)
		}
	}
	return out, nil
}

func (w *Workflow) Counts() models.VerificationCounts {
	return w.cache.VerificationCounts()
}

// Get looks a bundle up in the cache.
func (w *Workflow) Get(id string) (models.DriverVerification, error) {
	for _, v := range w.cache.Verifications() {
		if v.ID == id {
			return v, nil
		}
	}
	return models.DriverVerification{}, &models.NotFoundError{Kind: models.KindVerifications, ID: id}
}
