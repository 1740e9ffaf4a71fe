package journey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bustrack/internal/domain"
	"bustrack/internal/geo"
	"bustrack/internal/metrics"
	"bustrack/internal/store"
)

// LocationBroadcaster fans a persisted fix out to connected clients.
type LocationBroadcaster interface {
	PublishLocation(j *domain.Journey, lat, lng float64, at time.Time)
}

// Pipeline validates and applies incoming GPS fixes to a journey: it
// updates the current location, appends to path history, accumulates the
// distance counter and triggers the broadcast fan-out.
type Pipeline struct {
	store       store.JourneyStore
	broadcaster LocationBroadcaster
	metrics     *metrics.Collector
	logger      *slog.Logger
}

func NewPipeline(s store.JourneyStore, b LocationBroadcaster, m *metrics.Collector, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:       s,
		broadcaster: b,
		metrics:     m,
		logger:      logger.With("component", "location_pipeline"),
	}
}

// SubmitFix applies one GPS fix for an owned journey and returns the
// updated record.
//
// An invalid fix (near-origin noise, out-of-range coordinates) is still
// stored and counted; the read endpoints filter it out.
func (p *Pipeline) SubmitFix(ctx context.Context, journeyID, staffID string, lng, lat float64) (*domain.Journey, error) {
	start := time.Now()

	j, err := p.store.FindOwned(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}

	if !CanTrack(j.Status) {
		return nil, fmt.Errorf("%w: journey is %s, no further location updates accepted", domain.ErrInvalidTransition, j.Status)
	}

	if !geo.IsValidFix(lng, lat) {
		p.logger.Debug("storing invalid fix",
			"journey_id", journeyID,
			"lng", lng,
			"lat", lat,
		)
		if p.metrics != nil {
			p.metrics.InvalidFixesInc()
		}
	}

	var increment float64
	if last := j.LastSample(); last != nil && len(last.Coordinates) == 2 {
		increment = geo.HaversineKm(last.Coordinates[1], last.Coordinates[0], lat, lng)
	}

	now := time.Now()
	updated, err := p.store.ApplyUpdate(ctx, journeyID, store.Update{
		Fix: &store.FixUpdate{
			Location:            domain.NewGeoPoint(lng, lat),
			Sample:              domain.PathSample{Coordinates: []float64{lng, lat}, Timestamp: now},
			DistanceIncrementKm: increment,
		},
	})
	if err != nil {
		return nil, err
	}

	if p.broadcaster != nil {
		p.broadcaster.PublishLocation(updated, lat, lng, now)
	}

	if p.metrics != nil {
		p.metrics.FixesProcessedInc()
		p.metrics.FixApplyObserve(time.Since(start))
	}

	p.logger.Debug("fix applied",
		"journey_id", journeyID,
		"bus_number", updated.BusNumber,
		"distance_km", updated.DistanceCoveredKm,
		"path_len", len(updated.Path),
	)
	return updated, nil
}
