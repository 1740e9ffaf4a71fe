// Package store persists Journey aggregates. The JourneyStore interface is
// implemented twice: MongoStore against the document database and
// MemoryStore as the in-process fallback used when the database is
// unreachable. Callers receive whichever implementation main wired in.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bustrack/internal/domain"
)

// CreateParams carries the immutable route descriptors for a new journey.
type CreateParams struct {
	StaffID       string
	StartingPoint string
	Destination   string
	Route         string
	Highway       string
	BusNumber     string
	DriverName    string
	ConductorName string
	Depot         string
}

// FixUpdate is the location subtree of an update: the new current location,
// the path sample to append, and the distance accumulator increment.
type FixUpdate struct {
	Location            domain.GeoPoint
	Sample              domain.PathSample
	DistanceIncrementKm float64
}

// Update is an atomic partial update. Each non-nil field touches its own
// subtree of the document; disjoint subtrees written concurrently must both
// persist. CompletedAt is only applied alongside a Status change.
type Update struct {
	Status      *domain.JourneyStatus
	CompletedAt *time.Time
	Fix         *FixUpdate
	SeatInfo    *domain.SeatInfo
}

func (u Update) empty() bool {
	return u.Status == nil && u.Fix == nil && u.SeatInfo == nil
}

// JourneyStore is the persistence abstraction over journey records.
type JourneyStore interface {
	// Create persists a new journey with status "starting", StartedAt now,
	// an empty path and zero distance. Missing required descriptors yield
	// domain.ErrValidation.
	Create(ctx context.Context, p CreateParams) (*domain.Journey, error)

	// FindOwned fetches a journey scoped to its owning staff user. A
	// missing id and an ownership mismatch both return domain.ErrNotFound.
	FindOwned(ctx context.Context, journeyID, staffID string) (*domain.Journey, error)

	// FindByID is the unscoped fetch for administrative and public reads.
	FindByID(ctx context.Context, journeyID string) (*domain.Journey, error)

	// ListActive returns journeys with status starting or running, newest
	// first.
	ListActive(ctx context.Context) ([]*domain.Journey, error)

	// ApplyUpdate applies one atomic partial update and returns the
	// updated journey. Returns domain.ErrNotFound for an unknown id.
	ApplyUpdate(ctx context.Context, journeyID string, u Update) (*domain.Journey, error)

	// Ping probes connectivity to the backing store.
	Ping(ctx context.Context) error
}

func validateCreate(p CreateParams) error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"staffId", p.StaffID},
		{"startingPoint", p.StartingPoint},
		{"destination", p.Destination},
		{"route", p.Route},
		{"busNumber", p.BusNumber},
		{"driverName", p.DriverName},
		{"conductorName", p.ConductorName},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
