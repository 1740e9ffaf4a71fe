// Package journey holds the business logic for tracked journeys: the
// status state machine, the location fix pipeline and the seat ledger.
// All three depend on the JourneyStore interface, never a concrete store.
package journey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bustrack/internal/domain"
	"bustrack/internal/store"
)

// transitions is the permitted status transition table. Terminal states
// have no outgoing edges and self-transitions are absent on purpose.
var transitions = map[domain.JourneyStatus][]domain.JourneyStatus{
	domain.StatusStarting: {domain.StatusRunning, domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusRunning:  {domain.StatusCompleted, domain.StatusCancelled},
}

// CanTransition reports whether from -> to is in the permitted table.
func CanTransition(from, to domain.JourneyStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CanTrack reports whether a journey in status s accepts location and seat
// writes.
func CanTrack(s domain.JourneyStatus) bool {
	return s == domain.StatusStarting || s == domain.StatusRunning
}

// StatusBroadcaster pushes status change events to connected clients.
type StatusBroadcaster interface {
	PublishStatus(j *domain.Journey)
}

// StateMachine drives journey status changes for staff users and the
// unconstrained administrative override.
type StateMachine struct {
	store       store.JourneyStore
	broadcaster StatusBroadcaster
	logger      *slog.Logger
}

func NewStateMachine(s store.JourneyStore, b StatusBroadcaster, logger *slog.Logger) *StateMachine {
	return &StateMachine{
		store:       s,
		broadcaster: b,
		logger:      logger.With("component", "state_machine"),
	}
}

// Transition moves an owned journey to target if the transition table
// permits it. Entering completed or cancelled stamps CompletedAt.
func (m *StateMachine) Transition(ctx context.Context, journeyID, staffID string, target domain.JourneyStatus) (*domain.Journey, error) {
	j, err := m.store.FindOwned(ctx, journeyID, staffID)
	if err != nil {
		return nil, err
	}

	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}
	if !CanTransition(j.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.Status, target)
	}

	updated, err := m.apply(ctx, journeyID, target)
	if err != nil {
		return nil, err
	}

	m.logger.Info("journey status changed",
		"journey_id", journeyID,
		"from", j.Status,
		"to", target,
	)
	return updated, nil
}

// ForceSetStatus is the administrative escape hatch: it bypasses the
// transition table entirely and sets any known status. Kept as a separate
// entry point so the table stays a pure function of (state, target).
func (m *StateMachine) ForceSetStatus(ctx context.Context, journeyID string, target domain.JourneyStatus) (*domain.Journey, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}

	if _, err := m.store.FindByID(ctx, journeyID); err != nil {
		return nil, err
	}

	updated, err := m.apply(ctx, journeyID, target)
	if err != nil {
		return nil, err
	}

	m.logger.Warn("journey status force-set by admin",
		"journey_id", journeyID,
		"to", target,
	)
	return updated, nil
}

func (m *StateMachine) apply(ctx context.Context, journeyID string, target domain.JourneyStatus) (*domain.Journey, error) {
	u := store.Update{Status: &target}
	if target.Terminal() {
		now := time.Now()
		u.CompletedAt = &now
	}

	updated, err := m.store.ApplyUpdate(ctx, journeyID, u)
	if err != nil {
		return nil, err
	}

	if m.broadcaster != nil {
		m.broadcaster.PublishStatus(updated)
	}
	return updated, nil
}
