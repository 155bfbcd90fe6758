package services

import (
	"context"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	log "github.com/sirupsen/logrus"
)

// Broadcaster pushes a typed message to every connected dashboard.
type Broadcaster interface {
	Send(msgType string, data any) error
}

// AdminPusher delivers a notification to admins outside the dashboard.
type AdminPusher interface {
	NotifyAdmins(ctx context.Context, payload NotificationPayload) error
}

// StatsSource is the part of the cache the stats message is built from.
type StatsSource interface {
	Stats() models.DashboardStats
	DayBuckets() []models.DayBucket
	WeekBuckets() []models.WeekBucket
	VerificationCounts() models.VerificationCounts
}

// Notification is a toast shown on the dashboards.
type Notification struct {
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Kind    models.EntityKind `json:"kind,omitempty"`
	ID      string            `json:"id,omitempty"`
	At      time.Time         `json:"at"`

	push bool
}

// SnapshotMessage tells dashboards that a table has a new revision.
type SnapshotMessage struct {
	Kind     models.EntityKind `json:"kind"`
	Revision uint64            `json:"revision"`
	At       time.Time         `json:"at"`
}

// StatsMessage carries the whole dashboard page state.
type StatsMessage struct {
	Revision      uint64                    `json:"revision"`
	Stats         models.DashboardStats     `json:"stats"`
	Daily         []models.DayBucket        `json:"daily"`
	Weekly        []models.WeekBucket       `json:"weekly"`
	Verifications models.VerificationCounts `json:"verifications"`
}

// WarningMessage reports a failed refresh. The dashboard keeps showing the
// previous data.
type WarningMessage struct {
	Kind    models.EntityKind `json:"kind,omitempty"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
}

const pushQueueSize = 64

// Notifier turns cache events into websocket messages and admin pushes.
type Notifier struct {
	hub    Broadcaster
	push   AdminPusher
	source StatsSource
	queue  chan NotificationPayload
	log    log.FieldLogger
}

func NewNotifier(hub Broadcaster, push AdminPusher, source StatsSource, logger log.FieldLogger) *Notifier {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Notifier{
		hub:    hub,
		push:   push,
		source: source,
		queue:  make(chan NotificationPayload, pushQueueSize),
		log:    logger.WithField("component", "notifier"),
	}
}

// Handle is a datasync.Listener. It never blocks: pushes are queued and
// dropped when the queue is full.
func (n *Notifier) Handle(ev datasync.Event) {
	var err error
	switch ev.Type {
	case datasync.EventChange:
		if ev.Change == nil {
			return
		}
		note, ok := ChangeNotification(*ev.Change, ev.At)
		if !ok {
			return
		}
		err = n.hub.Send(MessageNotification, note)
		if note.push && n.push != nil {
			n.enqueue(NotificationPayload{
				Title: "MooveIt Admin",
				Body:  note.Message,
				Level: note.Level,
				Data:  map[string]any{"kind": string(note.Kind), "id": note.ID},
			})
		}

	case datasync.EventSnapshotUpdated:
		err = n.hub.Send(MessageSnapshotUpdated, SnapshotMessage{Kind: ev.Kind, Revision: ev.Revision, At: ev.At})

	case datasync.EventStatsUpdated:
		err = n.hub.Send(MessageStatsUpdated, StatsMessage{
			Revision:      ev.Revision,
			Stats:         n.source.Stats(),
			Daily:         n.source.DayBuckets(),
			Weekly:        n.source.WeekBuckets(),
			Verifications: n.source.VerificationCounts(),
		})

	case datasync.EventRefreshFailed:
		msg := WarningMessage{Kind: ev.Kind, Message: loadErrorMessage(ev.Kind)}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		err = n.hub.Send(MessageWarning, msg)
	}
	if err != nil {
		n.log.WithError(err).WithField("event", ev.Type).Warn("Failed to broadcast event")
	}
}

func (n *Notifier) enqueue(p NotificationPayload) {
	select {
	case n.queue <- p:
	default:
		n.log.WithField("body", p.Body).Warn("Push queue full, dropping notification")
	}
}

// Run delivers queued pushes until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-n.queue:
			pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := n.push.NotifyAdmins(pushCtx, p); err != nil {
				n.log.WithError(err).Warn("Failed to push admin notification")
			}
			cancel()
		}
	}
}

// ChangeNotification returns the toast shown for a change, if any.
func ChangeNotification(ev store.ChangeEvent, at time.Time) (Notification, bool) {
	note := Notification{Kind: ev.Kind, ID: ev.ID, At: at}
	switch ev.Kind {
	case models.KindClients:
		note.Level, note.Message = "info", "Données clients mises à jour"
	case models.KindDrivers:
		note.Level, note.Message = "info", "Données conducteurs mises à jour"
	case models.KindRides:
		switch {
		case ev.Type == store.EventInsert:
			note.Level, note.Message = "success", "Nouvelle course créée!"
		case ev.Type == store.EventUpdate && ev.Row.String("status") == string(models.RideStatusCompleted):
			note.Level, note.Message = "success", "Course terminée!"
		default:
			return Notification{}, false
		}
		note.push = true
	case models.KindVerifications:
		if ev.Type != store.EventInsert {
			return Notification{}, false
		}
		note.Level, note.Message = "warning", "Nouveau document à vérifier!"
		note.push = true
	default:
		return Notification{}, false
	}
	return note, true
}

func loadErrorMessage(kind models.EntityKind) string {
	switch kind {
	case models.KindClients:
		return "Erreur de chargement des clients"
	case models.KindDrivers:
		return "Erreur de chargement des conducteurs"
	case models.KindRides:
		return "Erreur de chargement des courses"
	case models.KindVerifications:
		return "Erreur lors du chargement des vérifications"
	}
	return "Erreur de chargement des données"
}
