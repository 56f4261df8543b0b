package channel

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tildeverse/domaind/internal/domain"
)

func testTrigger() domain.Trigger {
	return domain.Trigger{
		RunID:  uuid.New(),
		Domain: "alice.example",
		Kind:   domain.TriggerKindCreate,
	}
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	bus := NewEventBus(2)

	trig := testTrigger()
	if err := bus.Emit(context.Background(), trig); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	select {
	case got := <-bus.Channel():
		if got.RunID != trig.RunID {
			t.Errorf("received RunID = %s, want %s", got.RunID, trig.RunID)
		}
	case <-time.After(time.Second):
		t.Fatal("trigger not received")
	}
}

func TestEventBus_EmitBlocksWhenFullUntilCancelled(t *testing.T) {
	bus := NewEventBus(1)

	if err := bus.Emit(context.Background(), testTrigger()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bus.Emit(ctx, testTrigger())
	if err == nil {
		t.Fatal("Emit() on full buffer with expired context should fail")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Emit() error = %v, want context.DeadlineExceeded", err)
	}
}

type recordingBusMetrics struct {
	capacity   int
	sizes      []int
	emitErrors int
}

func (m *recordingBusMetrics) BufferSizeUpdate(size int)    { m.sizes = append(m.sizes, size) }
func (m *recordingBusMetrics) BufferCapacitySet(n int)      { m.capacity = n }
func (m *recordingBusMetrics) EmitError()                   { m.emitErrors++ }

func TestEventBus_Metrics(t *testing.T) {
	sink := &recordingBusMetrics{}
	bus := NewEventBus(4, WithMetrics(sink))

	if sink.capacity != 4 {
		t.Errorf("capacity = %d, want 4", sink.capacity)
	}

	if err := bus.Emit(context.Background(), testTrigger()); err != nil {
		t.Fatal(err)
	}
	if len(sink.sizes) != 1 || sink.sizes[0] != 1 {
		t.Errorf("sizes = %v, want [1]", sink.sizes)
	}
}
