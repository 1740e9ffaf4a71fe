package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustrack/internal/broadcast"
	"bustrack/internal/domain"
	"bustrack/internal/journey"
	"bustrack/internal/metrics"
	"bustrack/internal/middleware"
	"bustrack/internal/store"
)

const testStaffID = "staff-1"

type testServer struct {
	store   *store.MemoryStore
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemoryStore(0)
	collector := metrics.NewCollector()
	gateway := broadcast.NewGateway(collector, logger)

	states := journey.NewStateMachine(mem, gateway, logger)
	pipeline := journey.NewPipeline(mem, gateway, collector, logger)
	seats := journey.NewSeatLedger(mem, collector, logger)

	h := NewJourneyHandler(mem, pipeline, states, seats, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/journeys", h.CreateJourney)
	mux.HandleFunc("GET /v1/journeys/{id}", h.GetJourney)
	mux.HandleFunc("POST /v1/journeys/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /v1/journeys/{id}/location", h.SubmitLocation)
	mux.HandleFunc("POST /v1/journeys/{id}/seats", h.InitializeSeats)
	mux.HandleFunc("PUT /v1/journeys/{id}/seats", h.BulkReplaceSeats)
	mux.HandleFunc("POST /v1/journeys/{id}/seats/occupy", h.OccupySeat)
	mux.HandleFunc("POST /v1/journeys/{id}/seats/free", h.FreeSeat)
	mux.HandleFunc("GET /v1/journeys/{id}/seats/map", h.SeatMap)
	mux.HandleFunc("GET /v1/buses/active", h.ListActiveBuses)
	mux.HandleFunc("GET /v1/buses/{id}/location", h.GetBusLocation)
	mux.HandleFunc("GET /v1/buses/{id}/seats", h.GetSeatStatus)
	mux.HandleFunc("POST /v1/admin/journeys/{id}/status", h.ForceStatus)
	mux.HandleFunc("GET /v1/admin/journeys", h.ListAllJourneys)

	return &testServer{store: mem, handler: middleware.WithPrincipal(mux)}
}

// do issues a request with optional identity headers and decodes the JSON
// response body into a generic map.
func (ts *testServer) do(t *testing.T, method, path, staffID, role string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if staffID != "" {
		req.Header.Set(middleware.HeaderStaffID, staffID)
	}
	if role != "" {
		req.Header.Set(middleware.HeaderRole, role)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func createBody() map[string]any {
	return map[string]any{
		"startingPoint": "Delhi",
		"destination":   "Bareilly",
		"route":         "Delhi - Bareilly",
		"busNumber":     "UP25-AB-1234",
		"driverName":    "Ramesh",
		"conductorName": "Suresh",
	}
}

func (ts *testServer) createJourney(t *testing.T) string {
	t.Helper()
	code, body := ts.do(t, http.MethodPost, "/v1/journeys", testStaffID, "", createBody())
	require.Equal(t, http.StatusCreated, code)
	j := body["journey"].(map[string]any)
	return j["id"].(string)
}

func TestCreateJourney(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys", testStaffID, "", createBody())
	require.Equal(t, http.StatusCreated, code)

	j := body["journey"].(map[string]any)
	assert.NotEmpty(t, j["id"])
	assert.Equal(t, "starting", j["status"])
	assert.Equal(t, "UP25-AB-1234", j["busNumber"])
}

func TestCreateJourney_RequiresPrincipal(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys", "", "", createBody())
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body["error"], "authentication")
}

func TestCreateJourney_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys", testStaffID, "", map[string]any{
		"startingPoint": "Delhi",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body["error"], "busNumber")
}

func TestGetJourney_OwnershipScoped(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, _ := ts.do(t, http.MethodGet, "/v1/journeys/"+id, testStaffID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	// Another staff user must not see it.
	code, _ = ts.do(t, http.MethodGet, "/v1/journeys/"+id, "staff-2", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/status", testStaffID, "",
		map[string]any{"status": "running"})
	require.Equal(t, http.StatusOK, code)
	j := body["journey"].(map[string]any)
	assert.Equal(t, "running", j["status"])
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, _ := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/status", testStaffID, "",
		map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitLocation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/location", testStaffID, "",
		map[string]any{"lat": 28.6139, "lng": 77.2090})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "location updated", body["message"])
	assert.Equal(t, 0.0, body["distanceCoveredKm"])
}

func TestSubmitLocation_BadJSON(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/journeys/"+id+"/location", bytes.NewBufferString("{"))
	req.Header.Set(middleware.HeaderStaffID, testStaffID)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeatFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats", testStaffID, "",
		map[string]any{"totalSeats": 40})
	require.Equal(t, http.StatusCreated, code)
	si := body["seatInfo"].(map[string]any)
	assert.Equal(t, 40.0, si["totalSeats"])
	assert.Equal(t, 40.0, si["availableSeats"])

	code, body = ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats/occupy", testStaffID, "",
		map[string]any{"seatNumber": "12", "passengerName": "Asha"})
	require.Equal(t, http.StatusOK, code)
	si = body["seatInfo"].(map[string]any)
	assert.Equal(t, 39.0, si["availableSeats"])

	// Occupying the same seat again conflicts.
	code, _ = ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats/occupy", testStaffID, "",
		map[string]any{"seatNumber": "12", "passengerName": "Vikram"})
	assert.Equal(t, http.StatusConflict, code)

	code, body = ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats/free", testStaffID, "",
		map[string]any{"seatNumber": "12"})
	require.Equal(t, http.StatusOK, code)
	si = body["seatInfo"].(map[string]any)
	assert.Equal(t, 40.0, si["availableSeats"])
}

func TestBulkReplaceSeats(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, _ := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats", testStaffID, "",
		map[string]any{"totalSeats": 10})
	require.Equal(t, http.StatusCreated, code)

	code, body := ts.do(t, http.MethodPut, "/v1/journeys/"+id+"/seats", testStaffID, "",
		map[string]any{"occupiedSeats": []map[string]any{
			{"seatNumber": "1", "passengerName": "Asha"},
			{"seatNumber": "2", "passengerName": "Vikram"},
		}})
	require.Equal(t, http.StatusOK, code)
	si := body["seatInfo"].(map[string]any)
	assert.Equal(t, 8.0, si["availableSeats"])

	// Out-of-range seat is a 400.
	code, body = ts.do(t, http.MethodPut, "/v1/journeys/"+id+"/seats", testStaffID, "",
		map[string]any{"occupiedSeats": []map[string]any{
			{"seatNumber": "41", "passengerName": "Asha"},
		}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "41")
}

func TestSeatMapEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, _ := ts.do(t, http.MethodGet, "/v1/journeys/"+id+"/seats/map", testStaffID, "", nil)
	assert.Equal(t, http.StatusBadRequest, code) // not initialized yet

	code, _ = ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/seats", testStaffID, "",
		map[string]any{"totalSeats": 8, "seatsPerRow": 4})
	require.Equal(t, http.StatusCreated, code)

	code, body := ts.do(t, http.MethodGet, "/v1/journeys/"+id+"/seats/map", testStaffID, "", nil)
	require.Equal(t, http.StatusOK, code)
	grid := body["seatMap"].([]any)
	assert.Len(t, grid, 2)
	assert.Len(t, grid[0].([]any), 4)
}

func TestListActiveBuses_FiltersInvalidFixes(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	// Store a null-island fix directly; the public listing must omit it.
	_, err := ts.store.ApplyUpdate(t.Context(), id, store.Update{
		Fix: &store.FixUpdate{Location: domain.NewGeoPoint(0, 0)},
	})
	require.NoError(t, err)

	code, body := ts.do(t, http.MethodGet, "/v1/buses/active", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])

	buses := body["buses"].([]any)
	bus := buses[0].(map[string]any)
	_, hasLocation := bus["location"]
	assert.False(t, hasLocation)
}

func TestGetBusLocation_Public(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, body := ts.do(t, http.MethodPost, "/v1/journeys/"+id+"/location", testStaffID, "",
		map[string]any{"lat": 28.6139, "lng": 77.2090})
	require.Equal(t, http.StatusOK, code)

	// No identity headers: the read is public.
	code, body = ts.do(t, http.MethodGet, "/v1/buses/"+id+"/location", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	bus := body["bus"].(map[string]any)
	loc := bus["location"].(map[string]any)
	assert.InDelta(t, 28.6139, loc["lat"].(float64), 1e-9)
	assert.InDelta(t, 77.2090, loc["lng"].(float64), 1e-9)
}

func TestGetSeatStatus_Uninitialized(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, body := ts.do(t, http.MethodGet, "/v1/buses/"+id+"/seats", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Delhi - Bareilly", body["route"])

	si := body["seatInfo"].(map[string]any)
	assert.Equal(t, 0.0, si["totalSeats"])
}

func TestForceStatus_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createJourney(t)

	code, _ := ts.do(t, http.MethodPost, "/v1/admin/journeys/"+id+"/status", testStaffID, "",
		map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := ts.do(t, http.MethodPost, "/v1/admin/journeys/"+id+"/status", "admin-1", "admin",
		map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, code)
	j := body["journey"].(map[string]any)
	assert.Equal(t, "completed", j["status"])
	assert.NotNil(t, j["completedAt"])
}

func TestListAllJourneys_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.createJourney(t)

	code, _ := ts.do(t, http.MethodGet, "/v1/admin/journeys", testStaffID, "", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := ts.do(t, http.MethodGet, "/v1/admin/journeys", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])
}

func TestUnknownJourney(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/v1/journeys/nope",
		"/v1/buses/nope/location",
	} {
		code, _ := ts.do(t, http.MethodGet, path, testStaffID, "", nil)
		assert.Equal(t, http.StatusNotFound, code, path)
	}
}
