package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bustrack/internal/domain"
)

// MemoryStore is the in-memory JourneyStore used as the demo fallback when
// the document database is unreachable. All reads return defensive copies;
// every update is linearized under the mutex, so ApplyUpdate is trivially
// atomic.
type MemoryStore struct {
	mu             sync.RWMutex
	journeys       map[string]*domain.Journey
	maxPathSamples int
}

// NewMemoryStore returns an empty in-memory store. maxPathSamples bounds
// path history per journey; oldest samples are dropped past the cap
// (<= 0 means unbounded).
func NewMemoryStore(maxPathSamples int) *MemoryStore {
	return &MemoryStore{
		journeys:       make(map[string]*domain.Journey),
		maxPathSamples: maxPathSamples,
	}
}

func (s *MemoryStore) Create(ctx context.Context, p CreateParams) (*domain.Journey, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}

	j := &domain.Journey{
		ID:            uuid.New().String(),
		StaffID:       p.StaffID,
		StartingPoint: p.StartingPoint,
		Destination:   p.Destination,
		Route:         p.Route,
		Highway:       p.Highway,
		BusNumber:     p.BusNumber,
		DriverName:    p.DriverName,
		ConductorName: p.ConductorName,
		Depot:         p.Depot,
		Status:        domain.StatusStarting,
		StartedAt:     time.Now(),
		Path:          []domain.PathSample{},
	}

	s.mu.Lock()
	s.journeys[j.ID] = j
	s.mu.Unlock()

	return cloneJourney(j), nil
}

func (s *MemoryStore) FindOwned(ctx context.Context, journeyID, staffID string) (*domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[journeyID]
	if !ok || j.StaffID != staffID {
		return nil, domain.ErrNotFound
	}
	return cloneJourney(j), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, journeyID string) (*domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[journeyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJourney(j), nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]*domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Journey
	for _, j := range s.journeys {
		if j.Status == domain.StatusStarting || j.Status == domain.StatusRunning {
			result = append(result, cloneJourney(j))
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result, nil
}

func (s *MemoryStore) ApplyUpdate(ctx context.Context, journeyID string, u Update) (*domain.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.journeys[journeyID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if u.Status != nil {
		j.Status = *u.Status
		if u.CompletedAt != nil {
			t := *u.CompletedAt
			j.CompletedAt = &t
		}
	}

	if u.Fix != nil {
		loc := u.Fix.Location
		j.CurrentLocation = &loc
		j.Path = append(j.Path, u.Fix.Sample)
		if s.maxPathSamples > 0 && len(j.Path) > s.maxPathSamples {
			j.Path = j.Path[len(j.Path)-s.maxPathSamples:]
		}
		j.DistanceCoveredKm += u.Fix.DistanceIncrementKm
	}

	if u.SeatInfo != nil {
		j.SeatInfo = cloneSeatInfo(u.SeatInfo)
	}

	return cloneJourney(j), nil
}

// Ping always succeeds; the in-memory store has no connection to lose.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Seed inserts pre-built journeys, used to load the demo dataset when
// running without a database.
func (s *MemoryStore) Seed(journeys []*domain.Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range journeys {
		s.journeys[j.ID] = cloneJourney(j)
	}
}

func cloneJourney(j *domain.Journey) *domain.Journey {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.CurrentLocation != nil {
		loc := *j.CurrentLocation
		loc.Coordinates = append([]float64(nil), j.CurrentLocation.Coordinates...)
		c.CurrentLocation = &loc
	}
	c.Path = make([]domain.PathSample, len(j.Path))
	for i, p := range j.Path {
		c.Path[i] = domain.PathSample{
			Coordinates: append([]float64(nil), p.Coordinates...),
			Timestamp:   p.Timestamp,
		}
	}
	c.SeatInfo = cloneSeatInfo(j.SeatInfo)
	return &c
}

func cloneSeatInfo(si *domain.SeatInfo) *domain.SeatInfo {
	if si == nil {
		return nil
	}
	c := *si
	c.OccupiedSeats = append([]domain.OccupiedSeat(nil), si.OccupiedSeats...)
	return &c
}
