package consumer

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/fleetify/fleet-analytics/internal/recompute"
)

type fakeAcknowledger struct {
	acked  int
	nacked int
}

func (f *fakeAcknowledger) Ack(uint64, bool) error        { f.acked++; return nil }
func (f *fakeAcknowledger) Nack(uint64, bool, bool) error { f.nacked++; return nil }
func (f *fakeAcknowledger) Reject(uint64, bool) error     { f.nacked++; return nil }

type fakeRecomputer struct {
	scopes []string
	err    error
}

func (f *fakeRecomputer) Recompute(_ context.Context, vehicleID string) error {
	f.scopes = append(f.scopes, vehicleID)
	return f.err
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
	}{
		{"trip added", `{"type":"trip_added","vehicle_id":"v1"}`, false, TripAdded},
		{"fuel deleted without vehicle", `{"type":"fuel_deleted"}`, false, FuelDeleted},
		{"unknown type", `{"type":"vehicle_sold"}`, true, ""},
		{"missing type", `{"vehicle_id":"v1"}`, true, ""},
		{"not json", `trip_added`, true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := ParseEvent([]byte(tc.body))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, evt.Type)
		})
	}
}

func TestMutationEvent_Scopes(t *testing.T) {
	v1 := "v1"
	empty := ""

	tests := []struct {
		name string
		evt  MutationEvent
		want []string
	}{
		{"vehicle event hits vehicle then fleet", MutationEvent{Type: TripAdded, VehicleID: &v1}, []string{"v1", recompute.FleetScope}},
		{"no vehicle hits fleet only", MutationEvent{Type: TripDeleted}, []string{recompute.FleetScope}},
		{"empty vehicle id hits fleet only", MutationEvent{Type: FuelAdded, VehicleID: &empty}, []string{recompute.FleetScope}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.evt.Scopes())
		})
	}
}

func TestConsumer_HandleDelivery_RecomputesAndAcks(t *testing.T) {
	rec := &fakeRecomputer{}
	c := NewConsumer(Options{}, rec)
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"type":"trip_updated","vehicle_id":"v7"}`),
	})

	require.Equal(t, []string{"v7", recompute.FleetScope}, rec.scopes)
	require.Equal(t, 1, ack.acked)
	require.Zero(t, ack.nacked)
}

func TestConsumer_HandleDelivery_DropsMalformedMessage(t *testing.T) {
	rec := &fakeRecomputer{}
	c := NewConsumer(Options{}, rec)
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"type":"unknown_event"}`),
	})

	// Dropped, not requeued: the message is acked without recomputation.
	require.Empty(t, rec.scopes)
	require.Equal(t, 1, ack.acked)
	require.Zero(t, ack.nacked)
}

func TestConsumer_HandleDelivery_AcksDespiteRecomputeFailure(t *testing.T) {
	rec := &fakeRecomputer{err: errors.New("database down")}
	c := NewConsumer(Options{}, rec)
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"type":"fuel_added","vehicle_id":"v1"}`),
	})

	// Both scopes were attempted; the next event retries the work.
	require.Len(t, rec.scopes, 2)
	require.Equal(t, 1, ack.acked)
}

func TestConsumer_HandleDelivery_LeavesMessageWhenShutdownInterrupts(t *testing.T) {
	rec := &fakeRecomputer{err: context.Canceled}
	c := NewConsumer(Options{}, rec)
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"type":"trip_added","vehicle_id":"v1"}`),
	})

	// The interrupted recompute never ran to completion, so the message
	// stays on the queue for redelivery after restart.
	require.Equal(t, []string{"v1"}, rec.scopes)
	require.Zero(t, ack.acked)
	require.Zero(t, ack.nacked)
}

func TestOptions_Normalized(t *testing.T) {
	opts := Options{}.normalized()
	require.Equal(t, "vehicle_events", opts.Queue)
	require.Equal(t, "5s", opts.ReconnectBackoff.String())
}
