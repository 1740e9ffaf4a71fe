// Package broadcast fans journey events out to connected clients. The
// Gateway owns the channel scheme — one global feed, one room per journey,
// one admin room — and stays agnostic of the transport behind the
// Publisher interface.
package broadcast

import (
	"log/slog"
	"time"

	"bustrack/internal/domain"
	"bustrack/internal/metrics"
)

// Event names pushed to clients. They match the portal's original
// socket.io events so existing frontends keep working.
const (
	EventLocationUpdate      = "locationUpdate"
	EventBusLocationUpdate   = "busLocationUpdate"
	EventAdminLocationUpdate = "adminLocationUpdate"
	EventStatusUpdate        = "statusUpdate"

	AdminRoom = "admin"
)

// JourneyRoom is the per-journey room name.
func JourneyRoom(journeyID string) string {
	return "journey_" + journeyID
}

// Publisher is the pub/sub primitive the gateway writes to. The websocket
// hub implements it in-process; the redis bridge implements it for
// sibling processes. Delivery is fire-and-forget.
type Publisher interface {
	Emit(event string, payload any)
	EmitTo(room, event string, payload any)
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationPayload goes to the global feed.
type LocationPayload struct {
	JourneyID string    `json:"journeyId"`
	BusNumber string    `json:"busNumber"`
	Location  LatLng    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomLocationPayload goes to the journey's own room.
type RoomLocationPayload struct {
	Location  LatLng    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminLocationPayload goes to the admin room.
type AdminLocationPayload struct {
	JourneyID     string               `json:"journeyId"`
	BusNumber     string               `json:"busNumber"`
	StartingPoint string               `json:"startingPoint"`
	Destination   string               `json:"destination"`
	Location      LatLng               `json:"location"`
	Status        domain.JourneyStatus `json:"status"`
}

// StatusPayload announces a status change to the journey and admin rooms.
type StatusPayload struct {
	JourneyID   string               `json:"journeyId"`
	BusNumber   string               `json:"busNumber"`
	Status      domain.JourneyStatus `json:"status"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}

type Gateway struct {
	publishers []Publisher
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewGateway builds a gateway over one or more publishers. Nil publishers
// are skipped so optional transports (the redis bridge) can be wired
// conditionally.
func NewGateway(m *metrics.Collector, logger *slog.Logger, publishers ...Publisher) *Gateway {
	var ps []Publisher
	for _, p := range publishers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Gateway{
		publishers: ps,
		metrics:    m,
		logger:     logger.With("component", "broadcast_gateway"),
	}
}

// PublishLocation fans a persisted fix out to the three channels: the
// global feed, the journey's room and the admin room.
func (g *Gateway) PublishLocation(j *domain.Journey, lat, lng float64, at time.Time) {
	loc := LatLng{Lat: lat, Lng: lng}

	g.emit(EventLocationUpdate, LocationPayload{
		JourneyID: j.ID,
		BusNumber: j.BusNumber,
		Location:  loc,
		Timestamp: at,
	})
	g.count("global")

	g.emitTo(JourneyRoom(j.ID), EventBusLocationUpdate, RoomLocationPayload{
		Location:  loc,
		Timestamp: at,
	})
	g.count("journey")

	g.emitTo(AdminRoom, EventAdminLocationUpdate, AdminLocationPayload{
		JourneyID:     j.ID,
		BusNumber:     j.BusNumber,
		StartingPoint: j.StartingPoint,
		Destination:   j.Destination,
		Location:      loc,
		Status:        j.Status,
	})
	g.count("admin")
}

// PublishStatus announces a status change to the journey and admin rooms.
func (g *Gateway) PublishStatus(j *domain.Journey) {
	payload := StatusPayload{
		JourneyID:   j.ID,
		BusNumber:   j.BusNumber,
		Status:      j.Status,
		CompletedAt: j.CompletedAt,
	}

	g.emitTo(JourneyRoom(j.ID), EventStatusUpdate, payload)
	g.count("journey")

	g.emitTo(AdminRoom, EventStatusUpdate, payload)
	g.count("admin")
}

func (g *Gateway) emit(event string, payload any) {
	for _, p := range g.publishers {
		p.Emit(event, payload)
	}
}

func (g *Gateway) emitTo(room, event string, payload any) {
	for _, p := range g.publishers {
		p.EmitTo(room, event, payload)
	}
}

func (g *Gateway) count(channel string) {
	if g.metrics != nil {
		g.metrics.BroadcastInc(channel)
	}
}
