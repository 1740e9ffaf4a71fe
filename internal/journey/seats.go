package journey

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bustrack/internal/domain"
	"bustrack/internal/metrics"
	"bustrack/internal/store"
)

// SeatLedger manages per-journey seat occupancy. Every mutating call is
// scoped to the owning staff user and recomputes the derived
// AvailableSeats count before persisting the seatInfo subtree.
type SeatLedger struct {
	store   store.JourneyStore
	metrics *metrics.Collector
	logger  *slog.Logger
}

func NewSeatLedger(s store.JourneyStore, m *metrics.Collector, logger *slog.Logger) *SeatLedger {
	return &SeatLedger{
		store:   s,
		metrics: m,
		logger:  logger.With("component", "seat_ledger"),
	}
}

// SeatEntry is one seat occupation in a bulk replace request.
type SeatEntry struct {
	SeatNumber    string
	PassengerName string
	BoardedAt     string
	Destination   string
}

// SeatCell is one cell in the rendered seat map grid.
type SeatCell struct {
	SeatNumber string               `json:"seatNumber"`
	IsOccupied bool                 `json:"isOccupied"`
	Passenger  *domain.OccupiedSeat `json:"passenger,omitempty"`
}

// Initialize creates the seat ledger for a journey. Re-initializing is
// rejected so a double-submitted form cannot wipe live occupancy.
func (l *SeatLedger) Initialize(ctx context.Context, journeyID, staffID string, totalSeats, rows, seatsPerRow int) (*domain.SeatInfo, error) {
	if totalSeats <= 0 {
		return nil, fmt.Errorf("%w: total seats must be greater than 0", domain.ErrInvalidArgument)
	}

	j, err := l.findMutable(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if j.SeatInfo != nil {
		return nil, domain.ErrAlreadyInitialized
	}

	if seatsPerRow <= 0 {
		seatsPerRow = 4
	}
	if rows <= 0 {
		rows = (totalSeats + seatsPerRow - 1) / seatsPerRow
	}

	si := &domain.SeatInfo{
		TotalSeats:    totalSeats,
		OccupiedSeats: []domain.OccupiedSeat{},
		SeatLayout: domain.SeatLayout{
			Rows:        rows,
			SeatsPerRow: seatsPerRow,
			LastUpdated: time.Now(),
			UpdatedBy:   j.ConductorName,
		},
	}
	si.Recompute()

	return l.persist(ctx, journeyID, si, "initialize")
}

// Occupy records a passenger on a seat. Blank passenger fields fall back
// to the journey's endpoints, matching the conductor form defaults.
func (l *SeatLedger) Occupy(ctx context.Context, journeyID, staffID, seatNumber, passengerName, boardedAt, destination string) (*domain.SeatInfo, error) {
	if seatNumber == "" {
		return nil, fmt.Errorf("%w: seat number is required", domain.ErrInvalidArgument)
	}

	j, err := l.findMutable(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if j.SeatInfo == nil {
		return nil, domain.ErrNotInitialized
	}
	if j.SeatInfo.FindSeat(seatNumber) != nil {
		return nil, fmt.Errorf("%w: seat %s", domain.ErrSeatAlreadyOccupied, seatNumber)
	}

	if passengerName == "" {
		passengerName = "Unknown"
	}
	if boardedAt == "" {
		boardedAt = j.StartingPoint
	}
	if destination == "" {
		destination = j.Destination
	}

	si := j.SeatInfo
	si.OccupiedSeats = append(si.OccupiedSeats, domain.OccupiedSeat{
		SeatNumber:    seatNumber,
		PassengerName: passengerName,
		BoardedAt:     boardedAt,
		Destination:   destination,
		OccupiedAt:    time.Now(),
	})
	si.Recompute()
	l.stamp(si, j)

	return l.persist(ctx, journeyID, si, "occupy")
}

// Free releases an occupied seat.
func (l *SeatLedger) Free(ctx context.Context, journeyID, staffID, seatNumber string) (*domain.SeatInfo, error) {
	if seatNumber == "" {
		return nil, fmt.Errorf("%w: seat number is required", domain.ErrInvalidArgument)
	}

	j, err := l.findMutable(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if j.SeatInfo == nil {
		return nil, domain.ErrNotInitialized
	}

	si := j.SeatInfo
	idx := -1
	for i := range si.OccupiedSeats {
		if si.OccupiedSeats[i].SeatNumber == seatNumber {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: seat %s", domain.ErrSeatNotOccupied, seatNumber)
	}

	si.OccupiedSeats = append(si.OccupiedSeats[:idx], si.OccupiedSeats[idx+1:]...)
	si.Recompute()
	l.stamp(si, j)

	return l.persist(ctx, journeyID, si, "free")
}

// BulkReplace swaps the entire occupancy collection in one write, used by
// the conductor interface after a stop with many boardings and exits.
// Every seat number must parse into [1, totalSeats].
func (l *SeatLedger) BulkReplace(ctx context.Context, journeyID, staffID string, entries []SeatEntry) (*domain.SeatInfo, error) {
	j, err := l.findMutable(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if j.SeatInfo == nil {
		return nil, domain.ErrNotInitialized
	}

	si := j.SeatInfo
	seen := make(map[string]struct{}, len(entries))
	occupied := make([]domain.OccupiedSeat, 0, len(entries))
	now := time.Now()

	for _, e := range entries {
		n, err := strconv.Atoi(e.SeatNumber)
		if err != nil || n < 1 || n > si.TotalSeats {
			return nil, fmt.Errorf("%w: invalid seat number: %s", domain.ErrInvalidArgument, e.SeatNumber)
		}
		if _, dup := seen[e.SeatNumber]; dup {
			return nil, fmt.Errorf("%w: duplicate seat number: %s", domain.ErrInvalidArgument, e.SeatNumber)
		}
		seen[e.SeatNumber] = struct{}{}

		passenger := e.PassengerName
		if passenger == "" {
			passenger = "Unknown"
		}
		boardedAt := e.BoardedAt
		if boardedAt == "" {
			boardedAt = j.StartingPoint
		}
		destination := e.Destination
		if destination == "" {
			destination = j.Destination
		}

		occupied = append(occupied, domain.OccupiedSeat{
			SeatNumber:    e.SeatNumber,
			PassengerName: passenger,
			BoardedAt:     boardedAt,
			Destination:   destination,
			OccupiedAt:    now,
		})
	}

	si.OccupiedSeats = occupied
	si.Recompute()
	l.stamp(si, j)

	return l.persist(ctx, journeyID, si, "bulk_replace")
}

// SeatMap renders the seat grid in row-major order, truncated at
// totalSeats. Pure projection; nothing is mutated.
func (l *SeatLedger) SeatMap(ctx context.Context, journeyID, staffID string) ([][]SeatCell, error) {
	j, err := l.store.FindOwned(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if j.SeatInfo == nil || j.SeatInfo.TotalSeats == 0 {
		return nil, domain.ErrNotInitialized
	}

	si := j.SeatInfo
	grid := make([][]SeatCell, 0, si.SeatLayout.Rows)

	for row := 1; row <= si.SeatLayout.Rows; row++ {
		var cells []SeatCell
		for col := 1; col <= si.SeatLayout.SeatsPerRow; col++ {
			num := (row-1)*si.SeatLayout.SeatsPerRow + col
			if num > si.TotalSeats {
				break
			}
			seatNumber := strconv.Itoa(num)
			cell := SeatCell{SeatNumber: seatNumber}
			if occ := si.FindSeat(seatNumber); occ != nil {
				cell.IsOccupied = true
				cell.Passenger = occ
			}
			cells = append(cells, cell)
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	}
	return grid, nil
}

// findMutable fetches an owned journey and rejects writes to journeys in a
// terminal state.
func (l *SeatLedger) findMutable(ctx context.Context, journeyID, staffID string) (*domain.Journey, error) {
	j, err := l.store.FindOwned(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}
	if !CanTrack(j.Status) {
		return nil, fmt.Errorf("%w: journey is %s, seat ledger is frozen", domain.ErrInvalidTransition, j.Status)
	}
	return j, nil
}

func (l *SeatLedger) stamp(si *domain.SeatInfo, j *domain.Journey) {
	si.SeatLayout.LastUpdated = time.Now()
	si.SeatLayout.UpdatedBy = j.ConductorName
}

func (l *SeatLedger) persist(ctx context.Context, journeyID string, si *domain.SeatInfo, op string) (*domain.SeatInfo, error) {
	updated, err := l.store.ApplyUpdate(ctx, journeyID, store.Update{SeatInfo: si})
	if err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.SeatOpsInc(op)
	}
	l.logger.Debug("seat ledger updated",
		"journey_id", journeyID,
		"op", op,
		"available", updated.SeatInfo.AvailableSeats,
		"occupied", len(updated.SeatInfo.OccupiedSeats),
	)
	return updated.SeatInfo, nil
}
