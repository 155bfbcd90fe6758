package models

import (
	"fmt"
	"strings"
)

// EntityKind names one of the collections the dashboard mirrors.
type EntityKind string

const (
	KindClients       EntityKind = "clients"
	KindDrivers       EntityKind = "drivers"
	KindRides         EntityKind = "rides"
	KindVerifications EntityKind = "verifications"
)

// AllKinds lists every entity kind in load order.
var AllKinds = []EntityKind{KindClients, KindDrivers, KindRides, KindVerifications}

// ParseEntityKind validates a kind coming from a URL or a change-feed routing key.
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case KindClients, KindDrivers, KindRides, KindVerifications:
		return kind, nil
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown entity kind %q", s)}
}

// Table returns the backing table of the kind.
func (k EntityKind) Table() string {
	switch k {
	case KindClients:
		return Client{}.TableName()
	case KindDrivers:
		return Driver{}.TableName()
	case KindRides:
		return Ride{}.TableName()
	case KindVerifications:
		return DriverVerification{}.TableName()
	}
	return ""
}

func (k EntityKind) String() string {
	return string(k)
}

// Collection is the typed result of a collection fetch. Only the slice that
// matches Kind is populated.
type Collection struct {
	Kind          EntityKind           `json:"kind"`
	Clients       []Client             `json:"clients,omitempty"`
	Drivers       []Driver             `json:"drivers,omitempty"`
	Rides         []Ride               `json:"rides,omitempty"`
	Verifications []DriverVerification `json:"verifications,omitempty"`
}

// Len reports the number of rows held for Kind.
func (c Collection) Len() int {
	switch c.Kind {
	case KindClients:
		return len(c.Clients)
	case KindDrivers:
		return len(c.Drivers)
	case KindRides:
		return len(c.Rides)
	case KindVerifications:
		return len(c.Verifications)
	}
	return 0
}

// Clone returns a deep enough copy that callers can never alias the cached rows.
func (c Collection) Clone() Collection {
	out := Collection{Kind: c.Kind}
	if c.Clients != nil {
		out.Clients = append([]Client(nil), c.Clients...)
	}
	if c.Drivers != nil {
		out.Drivers = append([]Driver(nil), c.Drivers...)
	}
	if c.Rides != nil {
		out.Rides = make([]Ride, len(c.Rides))
		for i, r := range c.Rides {
			out.Rides[i] = r.clone()
		}
	}
	if c.Verifications != nil {
		out.Verifications = make([]DriverVerification, len(c.Verifications))
		for i, v := range c.Verifications {
			out.Verifications[i] = v.clone()
		}
	}
	return out
}
