package journey_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustrack/internal/domain"
	"bustrack/internal/journey"
	"bustrack/internal/store"
)

func initializedLedger(t *testing.T, totalSeats int) (*journey.SeatLedger, store.JourneyStore, *domain.Journey) {
	t.Helper()
	s := store.NewMemoryStore(0)
	l := newSeatLedger(s)
	j := newJourney(t, s)

	_, err := l.Initialize(context.Background(), j.ID, testStaffID, totalSeats, 0, 0)
	require.NoError(t, err)
	return l, s, j
}

func TestSeatLedger_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		s := store.NewMemoryStore(0)
		l := newSeatLedger(s)
		j := newJourney(t, s)

		si, err := l.Initialize(ctx, j.ID, testStaffID, 40, 0, 0)
		require.NoError(t, err)

		assert.Equal(t, 40, si.TotalSeats)
		assert.Equal(t, 40, si.AvailableSeats)
		assert.Empty(t, si.OccupiedSeats)
		assert.Equal(t, 10, si.SeatLayout.Rows)
		assert.Equal(t, 4, si.SeatLayout.SeatsPerRow)
		assert.Equal(t, "Suresh", si.SeatLayout.UpdatedBy)
	})

	t.Run("uneven last row", func(t *testing.T) {
		s := store.NewMemoryStore(0)
		l := newSeatLedger(s)
		j := newJourney(t, s)

		si, err := l.Initialize(ctx, j.ID, testStaffID, 42, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 11, si.SeatLayout.Rows)
	})

	t.Run("non-positive seat count", func(t *testing.T) {
		s := store.NewMemoryStore(0)
		l := newSeatLedger(s)
		j := newJourney(t, s)

		_, err := l.Initialize(ctx, j.ID, testStaffID, 0, 0, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("re-initializing is rejected", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "12", "Asha", "", "")
		require.NoError(t, err)

		_, err = l.Initialize(ctx, j.ID, testStaffID, 50, 0, 0)
		assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)

		// Existing occupancy survives the rejected attempt.
		si, err := l.SeatMap(ctx, j.ID, testStaffID)
		require.NoError(t, err)
		assert.True(t, si[2][3].IsOccupied) // seat 12 is row 3, col 4
	})
}

func TestSeatLedger_Occupy(t *testing.T) {
	ctx := context.Background()

	t.Run("occupy and recompute", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		si, err := l.Occupy(ctx, j.ID, testStaffID, "12", "Asha", "Delhi", "Moradabad")
		require.NoError(t, err)

		assert.Equal(t, 39, si.AvailableSeats)
		require.Len(t, si.OccupiedSeats, 1)
		assert.Equal(t, "Asha", si.OccupiedSeats[0].PassengerName)
		assert.False(t, si.OccupiedSeats[0].OccupiedAt.IsZero())
	})

	t.Run("double occupy fails and availability holds", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "12", "Asha", "", "")
		require.NoError(t, err)

		_, err = l.Occupy(ctx, j.ID, testStaffID, "12", "Binod", "", "")
		assert.ErrorIs(t, err, domain.ErrSeatAlreadyOccupied)

		si, err := l.SeatMap(ctx, j.ID, testStaffID)
		require.NoError(t, err)
		occupied := 0
		for _, row := range si {
			for _, cell := range row {
				if cell.IsOccupied {
					occupied++
				}
			}
		}
		assert.Equal(t, 1, occupied)
	})

	t.Run("blank fields fall back to journey endpoints", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		si, err := l.Occupy(ctx, j.ID, testStaffID, "3", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "Unknown", si.OccupiedSeats[0].PassengerName)
		assert.Equal(t, "Delhi", si.OccupiedSeats[0].BoardedAt)
		assert.Equal(t, "Bareilly", si.OccupiedSeats[0].Destination)
	})

	t.Run("uninitialized ledger", func(t *testing.T) {
		s := store.NewMemoryStore(0)
		l := newSeatLedger(s)
		j := newJourney(t, s)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "12", "", "", "")
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	})

	t.Run("wrong owner", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Occupy(ctx, j.ID, "other-staff", "12", "", "", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSeatLedger_Free(t *testing.T) {
	ctx := context.Background()

	t.Run("free restores availability", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "12", "Asha", "", "")
		require.NoError(t, err)

		si, err := l.Free(ctx, j.ID, testStaffID, "12")
		require.NoError(t, err)
		assert.Equal(t, 40, si.AvailableSeats)
		assert.Empty(t, si.OccupiedSeats)
	})

	t.Run("freeing a vacant seat fails", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Free(ctx, j.ID, testStaffID, "12")
		assert.ErrorIs(t, err, domain.ErrSeatNotOccupied)
	})
}

func TestSeatLedger_BulkReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the whole collection", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "1", "Asha", "", "")
		require.NoError(t, err)

		si, err := l.BulkReplace(ctx, j.ID, testStaffID, []journey.SeatEntry{
			{SeatNumber: "5", PassengerName: "Binod"},
			{SeatNumber: "6", PassengerName: "Chitra"},
			{SeatNumber: "40"},
		})
		require.NoError(t, err)

		assert.Equal(t, 37, si.AvailableSeats)
		require.Len(t, si.OccupiedSeats, 3)
		assert.Nil(t, si.FindSeat("1"))
		assert.NotNil(t, si.FindSeat("5"))
	})

	t.Run("out-of-range seat names the offender", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.BulkReplace(ctx, j.ID, testStaffID, []journey.SeatEntry{
			{SeatNumber: "5"},
			{SeatNumber: "41"},
		})
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "41")
	})

	t.Run("non-numeric seat number", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.BulkReplace(ctx, j.ID, testStaffID, []journey.SeatEntry{{SeatNumber: "A1"}})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("duplicate seat numbers", func(t *testing.T) {
		l, _, j := initializedLedger(t, 40)

		_, err := l.BulkReplace(ctx, j.ID, testStaffID, []journey.SeatEntry{
			{SeatNumber: "5"},
			{SeatNumber: "5"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestSeatLedger_SeatMap(t *testing.T) {
	ctx := context.Background()

	t.Run("row-major grid truncated at total seats", func(t *testing.T) {
		l, _, j := initializedLedger(t, 10) // 3 rows of 4, last row short

		grid, err := l.SeatMap(ctx, j.ID, testStaffID)
		require.NoError(t, err)

		require.Len(t, grid, 3)
		assert.Len(t, grid[0], 4)
		assert.Len(t, grid[1], 4)
		assert.Len(t, grid[2], 2)

		n := 1
		for _, row := range grid {
			for _, cell := range row {
				assert.Equal(t, strconv.Itoa(n), cell.SeatNumber)
				assert.False(t, cell.IsOccupied)
				n++
			}
		}
	})

	t.Run("occupied cells carry the passenger", func(t *testing.T) {
		l, _, j := initializedLedger(t, 10)

		_, err := l.Occupy(ctx, j.ID, testStaffID, "6", "Asha", "", "")
		require.NoError(t, err)

		grid, err := l.SeatMap(ctx, j.ID, testStaffID)
		require.NoError(t, err)

		cell := grid[1][1] // seat 6
		assert.True(t, cell.IsOccupied)
		require.NotNil(t, cell.Passenger)
		assert.Equal(t, "Asha", cell.Passenger.PassengerName)
	})

	t.Run("uninitialized", func(t *testing.T) {
		s := store.NewMemoryStore(0)
		l := newSeatLedger(s)
		j := newJourney(t, s)

		_, err := l.SeatMap(ctx, j.ID, testStaffID)
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	})
}

func TestSeatLedger_TerminalFreeze(t *testing.T) {
	ctx := context.Background()
	l, s, j := initializedLedger(t, 40)

	setStatus(t, s, j.ID, domain.StatusCancelled)

	_, err := l.Occupy(ctx, j.ID, testStaffID, "12", "", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = l.BulkReplace(ctx, j.ID, testStaffID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Reads still work on a frozen journey.
	_, err = l.SeatMap(ctx, j.ID, testStaffID)
	assert.NoError(t, err)
}
