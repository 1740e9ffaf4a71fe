package domain

import "time"

// JourneyStatus is the lifecycle state of a tracked bus journey.
type JourneyStatus string

const (
	StatusStarting  JourneyStatus = "starting"
	StatusRunning   JourneyStatus = "running"
	StatusCompleted JourneyStatus = "completed"
	StatusCancelled JourneyStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s JourneyStatus) Valid() bool {
	switch s {
	case StatusStarting, StatusRunning, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further state-machine transitions.
func (s JourneyStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// GeoPoint is a GeoJSON-style point. Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// PathSample is one recorded GPS fix in a journey's path history.
type PathSample struct {
	Coordinates []float64 `json:"coordinates" bson:"coordinates"` // [lng, lat]
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// OccupiedSeat is one occupied seat entry inside a journey's seat ledger.
type OccupiedSeat struct {
	SeatNumber    string    `json:"seatNumber" bson:"seatNumber"`
	PassengerName string    `json:"passengerName" bson:"passengerName"`
	BoardedAt     string    `json:"boardedAt" bson:"boardedAt"`
	Destination   string    `json:"destination" bson:"destination"`
	OccupiedAt    time.Time `json:"occupiedAt" bson:"occupiedAt"`
}

// SeatLayout describes the physical seat grid and the last ledger touch.
type SeatLayout struct {
	Rows        int       `json:"rows" bson:"rows"`
	SeatsPerRow int       `json:"seatsPerRow" bson:"seatsPerRow"`
	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
	UpdatedBy   string    `json:"updatedBy" bson:"updatedBy"`
}

// SeatInfo is the per-journey seat occupancy ledger.
// AvailableSeats is derived from TotalSeats and OccupiedSeats; it is
// persisted for read efficiency but must be recomputed on every mutation.
type SeatInfo struct {
	TotalSeats     int            `json:"totalSeats" bson:"totalSeats"`
	AvailableSeats int            `json:"availableSeats" bson:"availableSeats"`
	OccupiedSeats  []OccupiedSeat `json:"occupiedSeats" bson:"occupiedSeats"`
	SeatLayout     SeatLayout     `json:"seatLayout" bson:"seatLayout"`
}

// Recompute refreshes the derived AvailableSeats count.
func (s *SeatInfo) Recompute() {
	s.AvailableSeats = s.TotalSeats - len(s.OccupiedSeats)
	if s.AvailableSeats < 0 {
		s.AvailableSeats = 0
	}
}

// FindSeat returns the occupied entry for seatNumber, or nil.
func (s *SeatInfo) FindSeat(seatNumber string) *OccupiedSeat {
	for i := range s.OccupiedSeats {
		if s.OccupiedSeats[i].SeatNumber == seatNumber {
			return &s.OccupiedSeats[i]
		}
	}
	return nil
}

// Journey is the aggregate root: one tracked bus trip owned by a staff user.
type Journey struct {
	ID            string        `json:"id" bson:"_id"`
	StaffID       string        `json:"staffId" bson:"staffId"`
	StartingPoint string        `json:"startingPoint" bson:"startingPoint"`
	Destination   string        `json:"destination" bson:"destination"`
	Route         string        `json:"route" bson:"route"`
	Highway       string        `json:"highway,omitempty" bson:"highway,omitempty"`
	BusNumber     string        `json:"busNumber" bson:"busNumber"`
	DriverName    string        `json:"driverName" bson:"driverName"`
	ConductorName string        `json:"conductorName" bson:"conductorName"`
	Depot         string        `json:"depot,omitempty" bson:"depot,omitempty"`
	Status        JourneyStatus `json:"status" bson:"status"`
	StartedAt     time.Time     `json:"startedAt" bson:"startedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty" bson:"completedAt,omitempty"`

	CurrentLocation   *GeoPoint    `json:"currentLocation,omitempty" bson:"currentLocation,omitempty"`
	Path              []PathSample `json:"path" bson:"path"`
	DistanceCoveredKm float64      `json:"distanceCoveredKm" bson:"distanceCoveredKm"`

	SeatInfo *SeatInfo `json:"seatInfo,omitempty" bson:"seatInfo,omitempty"`
}

// LastSample returns the most recent path sample, or nil for an empty path.
func (j *Journey) LastSample() *PathSample {
	if len(j.Path) == 0 {
		return nil
	}
	return &j.Path[len(j.Path)-1]
}

// Role distinguishes staff principals from administrative ones.
type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller, established by the upstream
// session layer.
type Principal struct {
	ID   string
	Role Role
}
