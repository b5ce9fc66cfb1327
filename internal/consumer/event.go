package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/fleetify/fleet-analytics/internal/recompute"
)

// Mutation event types published by the trip/fuel write paths.
const (
	TripAdded   = "trip_added"
	TripUpdated = "trip_updated"
	TripDeleted = "trip_deleted"
	FuelAdded   = "fuel_added"
	FuelUpdated = "fuel_updated"
	FuelDeleted = "fuel_deleted"
)

var knownEventTypes = map[string]bool{
	TripAdded:   true,
	TripUpdated: true,
	TripDeleted: true,
	FuelAdded:   true,
	FuelUpdated: true,
	FuelDeleted: true,
}

// MutationEvent is the queue message body. VehicleID is absent for
// mutations not tied to a specific vehicle.
type MutationEvent struct {
	Type      string  `json:"type"`
	VehicleID *string `json:"vehicle_id"`
}

// ParseEvent decodes and validates a queue message body.
func ParseEvent(body []byte) (MutationEvent, error) {
	var evt MutationEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return MutationEvent{}, fmt.Errorf("invalid message body: %w", err)
	}
	if !knownEventTypes[evt.Type] {
		return MutationEvent{}, fmt.Errorf("unknown event type %q", evt.Type)
	}
	return evt, nil
}

// Scopes lists the recomputation scopes the event invalidates: the event's
// vehicle when present, always followed by the fleet-wide scope — a single
// vehicle's mutation also moves every fleet aggregate.
func (e MutationEvent) Scopes() []string {
	if e.VehicleID != nil && *e.VehicleID != "" {
		return []string{*e.VehicleID, recompute.FleetScope}
	}
	return []string{recompute.FleetScope}
}
