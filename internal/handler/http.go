package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bustrack/internal/domain"
	"bustrack/internal/geo"
	"bustrack/internal/journey"
	"bustrack/internal/middleware"
	"bustrack/internal/store"
)

// JourneyHandler is the route layer over the journey services. It owns
// translation between HTTP and the domain error taxonomy and nothing else;
// business rules live in internal/journey.
type JourneyHandler struct {
	store    store.JourneyStore
	pipeline *journey.Pipeline
	states   *journey.StateMachine
	seats    *journey.SeatLedger
	logger   *slog.Logger
}

func NewJourneyHandler(s store.JourneyStore, p *journey.Pipeline, sm *journey.StateMachine, sl *journey.SeatLedger, logger *slog.Logger) *JourneyHandler {
	return &JourneyHandler{
		store:    s,
		pipeline: p,
		states:   sm,
		seats:    sl,
		logger:   logger.With("handler", "journey"),
	}
}

type CreateJourneyRequest struct {
	StartingPoint string `json:"startingPoint"`
	Destination   string `json:"destination"`
	Route         string `json:"route"`
	Highway       string `json:"highway"`
	BusNumber     string `json:"busNumber"`
	DriverName    string `json:"driverName"`
	ConductorName string `json:"conductorName"`
	Depot         string `json:"depot"`
}

func (h *JourneyHandler) CreateJourney(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req CreateJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	j, err := h.store.Create(r.Context(), store.CreateParams{
		StaffID:       p.ID,
		StartingPoint: req.StartingPoint,
		Destination:   req.Destination,
		Route:         req.Route,
		Highway:       req.Highway,
		BusNumber:     req.BusNumber,
		DriverName:    req.DriverName,
		ConductorName: req.ConductorName,
		Depot:         req.Depot,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"journey": j})
}

func (h *JourneyHandler) GetJourney(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	j, err := h.store.FindOwned(r.Context(), r.PathValue("id"), p.ID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"journey": j})
}

type StatusRequest struct {
	Status domain.JourneyStatus `json:"status"`
}

func (h *JourneyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	j, err := h.states.Transition(r.Context(), r.PathValue("id"), p.ID, req.Status)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"journey": j})
}

// ForceStatus is the administrative override; it bypasses the transition
// table.
func (h *JourneyHandler) ForceStatus(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	j, err := h.states.ForceSetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"journey": j})
}

type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *JourneyHandler) SubmitLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	j, err := h.pipeline.SubmitFix(r.Context(), r.PathValue("id"), p.ID, req.Lng, req.Lat)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":           "location updated",
		"distanceCoveredKm": j.DistanceCoveredKm,
	})
}

// ---- seat ledger ----

type InitializeSeatsRequest struct {
	TotalSeats  int `json:"totalSeats"`
	Rows        int `json:"rows"`
	SeatsPerRow int `json:"seatsPerRow"`
}

func (h *JourneyHandler) InitializeSeats(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req InitializeSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	si, err := h.seats.Initialize(r.Context(), r.PathValue("id"), p.ID, req.TotalSeats, req.Rows, req.SeatsPerRow)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"seatInfo": si})
}

type OccupySeatRequest struct {
	SeatNumber    string `json:"seatNumber"`
	PassengerName string `json:"passengerName"`
	BoardedAt     string `json:"boardedAt"`
	Destination   string `json:"destination"`
}

func (h *JourneyHandler) OccupySeat(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req OccupySeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	si, err := h.seats.Occupy(r.Context(), r.PathValue("id"), p.ID, req.SeatNumber, req.PassengerName, req.BoardedAt, req.Destination)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"seatInfo": si})
}

type FreeSeatRequest struct {
	SeatNumber string `json:"seatNumber"`
}

func (h *JourneyHandler) FreeSeat(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req FreeSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	si, err := h.seats.Free(r.Context(), r.PathValue("id"), p.ID, req.SeatNumber)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"seatInfo": si})
}

type BulkSeatsRequest struct {
	OccupiedSeats []OccupySeatRequest `json:"occupiedSeats"`
}

func (h *JourneyHandler) BulkReplaceSeats(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	var req BulkSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entries := make([]journey.SeatEntry, 0, len(req.OccupiedSeats))
	for _, s := range req.OccupiedSeats {
		entries = append(entries, journey.SeatEntry{
			SeatNumber:    s.SeatNumber,
			PassengerName: s.PassengerName,
			BoardedAt:     s.BoardedAt,
			Destination:   s.Destination,
		})
	}

	si, err := h.seats.BulkReplace(r.Context(), r.PathValue("id"), p.ID, entries)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"seatInfo": si})
}

func (h *JourneyHandler) SeatMap(w http.ResponseWriter, r *http.Request) {
	p, ok := staffPrincipal(w, r)
	if !ok {
		return
	}

	grid, err := h.seats.SeatMap(r.Context(), r.PathValue("id"), p.ID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"seatMap": grid})
}

// ---- public reads ----

// BusSummary is the public projection of a journey. An invalid stored fix
// is omitted here rather than rejected at write time; the read side is the
// safety net for garbage coordinates.
type BusSummary struct {
	ID            string               `json:"id"`
	BusNumber     string               `json:"busNumber"`
	StartingPoint string               `json:"startingPoint"`
	Destination   string               `json:"destination"`
	Route         string               `json:"route"`
	Highway       string               `json:"highway,omitempty"`
	Depot         string               `json:"depot,omitempty"`
	Status        domain.JourneyStatus `json:"status"`
	Location      *broadcastLatLng     `json:"location,omitempty"`
}

type broadcastLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func summarize(j *domain.Journey) BusSummary {
	s := BusSummary{
		ID:            j.ID,
		BusNumber:     j.BusNumber,
		StartingPoint: j.StartingPoint,
		Destination:   j.Destination,
		Route:         j.Route,
		Highway:       j.Highway,
		Depot:         j.Depot,
		Status:        j.Status,
	}
	if loc := j.CurrentLocation; loc != nil && geo.IsValidFix(loc.Lng(), loc.Lat()) {
		s.Location = &broadcastLatLng{Lat: loc.Lat(), Lng: loc.Lng()}
	}
	return s
}

type ActiveBusesResponse struct {
	Buses      []BusSummary `json:"buses"`
	Count      int          `json:"count"`
	ServerTime time.Time    `json:"serverTime"`
}

func (h *JourneyHandler) ListActiveBuses(w http.ResponseWriter, r *http.Request) {
	journeys, err := h.store.ListActive(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	buses := make([]BusSummary, 0, len(journeys))
	for _, j := range journeys {
		buses = append(buses, summarize(j))
	}

	respondJSON(w, http.StatusOK, ActiveBusesResponse{
		Buses:      buses,
		Count:      len(buses),
		ServerTime: time.Now(),
	})
}

func (h *JourneyHandler) GetBusLocation(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"bus": summarize(j)})
}

func (h *JourneyHandler) GetSeatStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	si := j.SeatInfo
	if si == nil {
		si = &domain.SeatInfo{OccupiedSeats: []domain.OccupiedSeat{}, SeatLayout: domain.SeatLayout{SeatsPerRow: 4}}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"busNumber": j.BusNumber,
		"route":     j.StartingPoint + " - " + j.Destination,
		"status":    j.Status,
		"seatInfo":  si,
	})
}

// ListAllJourneys is the admin live view; unlike the public listing it
// does not filter invalid fixes.
func (h *JourneyHandler) ListAllJourneys(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	journeys, err := h.store.ListActive(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"journeys":   journeys,
		"count":      len(journeys),
		"serverTime": time.Now(),
	})
}

// ---- helpers ----

func staffPrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return domain.Principal{}, false
	}
	return p, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok || p.Role != domain.RoleAdmin {
		respondError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func (h *JourneyHandler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrSeatAlreadyOccupied),
		errors.Is(err, domain.ErrSeatNotOccupied):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotInitialized):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondError(w, status, err.Error())
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
