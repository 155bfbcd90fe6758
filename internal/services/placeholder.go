package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var placeholderClients = []models.Client{
	{Name: "Awa Diop", Email: "awa.diop@example.com", Phone: "+221 77 123 45 67", Address: "Plateau, Dakar", TotalRides: 12, Rating: 4.8},
	{Name: "Moussa Ndiaye", Email: "moussa.ndiaye@example.com", Phone: "+221 76 234 56 78", Address: "Médina, Dakar", TotalRides: 5, Rating: 4.5},
	{Name: "Fatou Sow", Email: "fatou.sow@example.com", Phone: "+221 78 345 67 89", Address: "Almadies, Dakar", TotalRides: 21, Rating: 4.9},
}

var placeholderDrivers = []models.Driver{
	{FullName: "Ibrahima Fall", Email: "ibrahima.fall@example.com", Phone: "+221 77 987 65 43", VehicleType: "moto", VehiclePlate: "DK-1234-A", IsVerified: true, TotalRides: 154, TotalEarnings: 385000, Rating: 4.7, Status: models.DriverStatusAvailable},
	{FullName: "Cheikh Ba", Email: "cheikh.ba@example.com", Phone: "+221 76 876 54 32", VehicleType: "moto", VehiclePlate: "DK-5678-B", IsVerified: true, TotalRides: 98, TotalEarnings: 240500, Rating: 4.6, Status: models.DriverStatusOnRide},
	{FullName: "Ousmane Sy", Email: "ousmane.sy@example.com", Phone: "+221 78 765 43 21", VehicleType: "moto", VehiclePlate: "DK-9012-C", Rating: 5, Status: models.DriverStatusOffline},
}

var placeholderRoutes = [][2]string{
	{"Place de l'Indépendance, Dakar", "Université Cheikh Anta Diop"},
	{"Marché Sandaga", "Aéroport Blaise Diagne"},
	{"Corniche Ouest", "Parcelles Assainies"},
	{"Gare de Dakar", "Ouakam"},
}

// SeedPlaceholder fills m with the static sample data served when the
// database is unreachable. Rides are spread over the last four weeks.
func SeedPlaceholder(ctx context.Context, m *store.MemoryStore, now time.Time) error {
	clientIDs := make([]string, 0, len(placeholderClients))
	for i, c := range placeholderClients {
		c.ID = uuid.NewString()
		c.CreatedAt = now.Add(-time.Duration(60-i*10) * 24 * time.Hour)
		if _, err := m.Put(ctx, models.KindClients, c); err != nil {
			return err
		}
		clientIDs = append(clientIDs, c.ID)
	}

	driverIDs := make([]string, 0, len(placeholderDrivers))
	for i, d := range placeholderDrivers {
		d.ID = uuid.NewString()
		d.CreatedAt = now.Add(-time.Duration(90-i*20) * 24 * time.Hour)
		if _, err := m.Put(ctx, models.KindDrivers, d); err != nil {
			return err
		}
		driverIDs = append(driverIDs, d.ID)
	}

	for i := 0; i < 24; i++ {
		status := models.RideStatusCompleted
		switch {
		case i%7 == 3:
			status = models.RideStatusCancelled
		case i < 2:
			status = models.RideStatusInProgress
		}
		driverID := driverIDs[i%2]
		ride := newPlaceholderRide(i, clientIDs[i%len(clientIDs)], &driverID, status, now.Add(-time.Duration(i*27)*time.Hour))
		if _, err := m.Put(ctx, models.KindRides, ride); err != nil {
			return err
		}
	}

	verifications := []models.DriverVerification{
		{DriverID: driverIDs[2], MotorcycleModel: "Yamaha Crypton", MotorcycleColor: "Rouge", MotorcyclePlate: "DK-9012-C", Status: models.VerificationPending, SubmittedAt: now.Add(-3 * time.Hour)},
		{DriverID: driverIDs[0], MotorcycleModel: "Honda CG 125", MotorcycleColor: "Noir", MotorcyclePlate: "DK-1234-A", Status: models.VerificationApproved, SubmittedAt: now.Add(-40 * 24 * time.Hour)},
		{DriverID: driverIDs[1], MotorcycleModel: "TVS Apache", MotorcycleColor: "Bleu", MotorcyclePlate: "DK-5678-B", Status: models.VerificationApproved, SubmittedAt: now.Add(-30 * 24 * time.Hour)},
	}
	for _, v := range verifications {
		v.ID = uuid.NewString()
		v.IdentityPhotoURL = fmt.Sprintf("verifications/%s/identity.jpg", v.DriverID)
		v.DriverPhotoURL = fmt.Sprintf("verifications/%s/driver.jpg", v.DriverID)
		v.MotorcyclePhotoURL = fmt.Sprintf("verifications/%s/motorcycle.jpg", v.DriverID)
		if v.Status.Terminal() {
			verifiedAt := v.SubmittedAt.Add(24 * time.Hour)
			v.VerifiedAt = &verifiedAt
		}
		if _, err := m.Put(ctx, models.KindVerifications, v); err != nil {
			return err
		}
	}
	return nil
}

func newPlaceholderRide(i int, clientID string, driverID *string, status models.RideStatus, createdAt time.Time) models.Ride {
	route := placeholderRoutes[i%len(placeholderRoutes)]
	ride := models.Ride{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		DriverID:       driverID,
		PickupAddress:  route[0],
		DropoffAddress: route[1],
		Distance:       float64(2500 + (i%5)*1800),
		Duration:       600 + (i%5)*420,
		TotalPrice:     models.Amount(1500 + (i%5)*1000),
		PaymentMethod:  "cash",
		Status:         status,
		CreatedAt:      createdAt,
	}
	if status == models.RideStatusCompleted {
		done := createdAt.Add(time.Duration(ride.Duration) * time.Second)
		ride.CompletedAt = &done
	}
	return ride
}

// Simulator applies a rotating set of sample changes to a placeholder store
// so dashboards keep receiving live updates.
type Simulator struct {
	store *store.MemoryStore
	now   func() time.Time
	log   log.FieldLogger

	mu   sync.Mutex
	step int
}

func NewSimulator(m *store.MemoryStore, now func() time.Time, logger log.FieldLogger) *Simulator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Simulator{store: m, now: now, log: logger.WithField("component", "simulator")}
}

// Step applies the next simulated change: a new ride, the completion of a
// pending ride, a new client or a new verification bundle, in turn.
func (s *Simulator) Step(ctx context.Context) error {
	s.mu.Lock()
	step := s.step
	s.step++
	s.mu.Unlock()

	now := s.now()
	switch step % 4 {
	case 0:
		clients, err := s.store.FetchCollection(ctx, models.KindClients, store.Query{Limit: 1})
		if err != nil {
			return err
		}
		clientID := ""
		if len(clients.Clients) > 0 {
			clientID = clients.Clients[0].ID
		}
		_, err = s.store.Put(ctx, models.KindRides, newPlaceholderRide(step, clientID, nil, models.RideStatusPending, now))
		return err

	case 1:
		pending, err := s.store.FetchCollection(ctx, models.KindRides, store.Query{
			Filters: []store.Filter{store.Eq("status", models.RideStatusPending)},
			OrderBy: "created_at",
			Limit:   1,
		})
		if err != nil {
			return err
		}
		if len(pending.Rides) == 0 {
			return nil
		}
		return s.store.UpdateRow(ctx, models.KindRides, pending.Rides[0].ID, map[string]any{
			"status":       models.RideStatusCompleted,
			"completed_at": now,
		})

	case 2:
		_, err := s.store.Put(ctx, models.KindClients, models.Client{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("Client démo %d", step/4+1),
			Email:     fmt.Sprintf("demo%d@example.com", step/4+1),
			Rating:    5,
			CreatedAt: now,
		})
		return err

	default:
		drivers, err := s.store.FetchCollection(ctx, models.KindDrivers, store.Query{
			Filters: []store.Filter{store.Eq("is_verified", false)},
			Limit:   1,
		})
		if err != nil {
			return err
		}
		if len(drivers.Drivers) == 0 {
			return nil
		}
		_, err = s.store.Put(ctx, models.KindVerifications, models.DriverVerification{
			ID:          uuid.NewString(),
			DriverID:    drivers.Drivers[0].ID,
			Status:      models.VerificationPending,
			SubmittedAt: now,
		})
		return err
	}
}

// Run applies one step every interval until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				s.log.WithError(err).Warn("Simulated change failed")
			}
		}
	}
}
