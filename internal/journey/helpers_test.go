package journey_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bustrack/internal/domain"
	"bustrack/internal/journey"
	"bustrack/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	locations []locationRecord
	statuses  []domain.JourneyStatus
}

type locationRecord struct {
	journeyID string
	busNumber string
	lat, lng  float64
	at        time.Time
}

func (r *recordingBroadcaster) PublishLocation(j *domain.Journey, lat, lng float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, locationRecord{
		journeyID: j.ID,
		busNumber: j.BusNumber,
		lat:       lat,
		lng:       lng,
		at:        at,
	})
}

func (r *recordingBroadcaster) PublishStatus(j *domain.Journey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, j.Status)
}

func (r *recordingBroadcaster) locationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locations)
}

const testStaffID = "staff-1"

func newJourney(t *testing.T, s store.JourneyStore) *domain.Journey {
	t.Helper()
	j, err := s.Create(context.Background(), store.CreateParams{
		StaffID:       testStaffID,
		StartingPoint: "Delhi",
		Destination:   "Bareilly",
		Route:         "Delhi - Moradabad - Bareilly",
		BusNumber:     "UP25-AB-1234",
		DriverName:    "Ramesh",
		ConductorName: "Suresh",
	})
	require.NoError(t, err)
	return j
}

func setStatus(t *testing.T, s store.JourneyStore, journeyID string, target domain.JourneyStatus) {
	t.Helper()
	u := store.Update{Status: &target}
	if target.Terminal() {
		now := time.Now()
		u.CompletedAt = &now
	}
	_, err := s.ApplyUpdate(context.Background(), journeyID, u)
	require.NoError(t, err)
}

func newStateMachine(s store.JourneyStore, b journey.StatusBroadcaster) *journey.StateMachine {
	return journey.NewStateMachine(s, b, discardLogger())
}

func newPipeline(s store.JourneyStore, b journey.LocationBroadcaster) *journey.Pipeline {
	return journey.NewPipeline(s, b, nil, discardLogger())
}

func newSeatLedger(s store.JourneyStore) *journey.SeatLedger {
	return journey.NewSeatLedger(s, nil, discardLogger())
}
