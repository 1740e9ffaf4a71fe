package store

import (
	"time"

	"bustrack/internal/domain"
)

// DemoJourneys returns the sample dataset loaded into the fallback store
// so the portal stays browsable without a database.
func DemoJourneys() []*domain.Journey {
	now := time.Now()

	return []*domain.Journey{
		{
			ID:            "demo-journey-1",
			StaffID:       "demo-staff-1",
			StartingPoint: "Delhi",
			Destination:   "Bareilly",
			Route:         "Delhi - Ghaziabad - Moradabad - Bareilly",
			Highway:       "NH-9",
			BusNumber:     "UP25-AB-1234",
			DriverName:    "Ramesh Kumar",
			ConductorName: "Suresh Singh",
			Depot:         "Bareilly Depot",
			Status:        domain.StatusRunning,
			StartedAt:     now.Add(-90 * time.Minute),
			CurrentLocation: &domain.GeoPoint{
				Type:        "Point",
				Coordinates: []float64{77.2090, 28.6139},
			},
			Path: []domain.PathSample{
				{Coordinates: []float64{77.2090, 28.6139}, Timestamp: now.Add(-90 * time.Minute)},
			},
		},
		{
			ID:            "demo-journey-2",
			StaffID:       "demo-staff-2",
			StartingPoint: "Lucknow",
			Destination:   "Kanpur",
			Route:         "Lucknow - Unnao - Kanpur",
			Highway:       "NH-27",
			BusNumber:     "UP32-CD-5678",
			DriverName:    "Mahesh Yadav",
			ConductorName: "Dinesh Verma",
			Depot:         "Lucknow Depot",
			Status:        domain.StatusStarting,
			StartedAt:     now.Add(-10 * time.Minute),
			Path:          []domain.PathSample{},
		},
	}
}
