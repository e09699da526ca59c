package reconcile

import (
	"testing"

	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
)

func order(id, version int64, status, orderType, paymentStatus string) model.Order {
	return model.Order{
		ID:            id,
		Version:       version,
		Status:        status,
		OrderType:     orderType,
		PaymentStatus: paymentStatus,
	}
}

func ids(orders []model.Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestAtMostOneEntryPerID(t *testing.T) {
	r := New(enum.RoleCounter)
	for v := int64(1); v <= 5; v++ {
		r.Apply(order(1, v, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	}
	if got := r.Snapshot(); len(got) != 1 {
		t.Fatalf("visible has %d entries for one id, want 1", len(got))
	}
}

func TestPrependNewestReplaceInPlace(t *testing.T) {
	r := New(enum.RoleCounter)
	r.Apply(order(1, 1, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(2, 1, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(3, 1, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	// Updating order 1 keeps its position at the bottom of the list.
	r.Apply(order(1, 2, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	got := ids(r.Snapshot())
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order of ids = %v, want %v", got, want)
		}
	}
	if r.Snapshot()[2].Status != enum.OrderStatusCooking {
		t.Error("replace in place did not update status")
	}
}

func TestCounterEvictsPaidAndCancelled(t *testing.T) {
	r := New(enum.RoleCounter)
	r.Apply(order(1, 1, enum.OrderStatusReady, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(2, 1, enum.OrderStatusReady, enum.OrderTypeTakeaway, enum.PaymentStatusPending))

	r.Apply(order(1, 2, enum.OrderStatusPaid, enum.OrderTypeDineIn, enum.PaymentStatusCompleted))
	r.Apply(order(2, 2, enum.OrderStatusCancelled, enum.OrderTypeTakeaway, enum.PaymentStatusPending))

	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("counter still shows %v after terminal statuses", ids(got))
	}
}

func TestCounterTerminalIgnoredWhenAbsent(t *testing.T) {
	r := New(enum.RoleCounter)
	// A terminal event for an order never seen must not create an entry.
	r.Apply(order(9, 3, enum.OrderStatusPaid, enum.OrderTypeDineIn, enum.PaymentStatusCompleted))
	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("terminal event created entry: %v", ids(got))
	}
}

func TestWaiterSeesDineInOnly(t *testing.T) {
	r := New(enum.RoleWaiter)
	r.Apply(order(1, 1, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(2, 1, enum.OrderStatusNew, enum.OrderTypeTakeaway, enum.PaymentStatusCompleted))

	got := r.Snapshot()
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("waiter sees %v, want only dine-in order 1", ids(got))
	}
}

func TestKitchenTakeawayPayFirst(t *testing.T) {
	r := New(enum.RoleKitchen)

	r.Apply(order(1, 1, enum.OrderStatusNew, enum.OrderTypeTakeaway, enum.PaymentStatusPending))
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("unpaid takeaway is visible to kitchen: %v", ids(got))
	}

	r.Apply(order(1, 2, enum.OrderStatusNew, enum.OrderTypeTakeaway, enum.PaymentStatusCompleted))
	if got := r.Snapshot(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("paid takeaway missing from kitchen: %v", ids(got))
	}
}

func TestKitchenDineInAlwaysVisible(t *testing.T) {
	r := New(enum.RoleKitchen)
	r.Apply(order(1, 1, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	if got := r.Snapshot(); len(got) != 1 {
		t.Errorf("unpaid dine-in should be visible to kitchen, got %v", ids(got))
	}
}

func TestKitchenServedMovesToDelivered(t *testing.T) {
	r := New(enum.RoleKitchen)
	r.Apply(order(1, 1, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(1, 2, enum.OrderStatusServed, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("served order still on active board: %v", ids(got))
	}
	if got := r.Delivered(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("delivered partition = %v, want order 1", ids(got))
	}

	// Payment afterwards does not clear the partition; only the operator does.
	r.Apply(order(1, 3, enum.OrderStatusPaid, enum.OrderTypeDineIn, enum.PaymentStatusCompleted))
	if got := r.Delivered(); len(got) != 1 {
		t.Errorf("payment cleared delivered partition: %v", ids(got))
	}

	r.ClearDelivered()
	if got := r.Delivered(); len(got) != 0 {
		t.Errorf("ClearDelivered left %v", ids(got))
	}
}

func TestKitchenCancelClearsBothPartitions(t *testing.T) {
	r := New(enum.RoleKitchen)
	r.Apply(order(1, 1, enum.OrderStatusServed, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(2, 1, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	r.Apply(order(1, 2, enum.OrderStatusCancelled, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	r.Apply(order(2, 2, enum.OrderStatusCancelled, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("cancelled order still visible: %v", ids(got))
	}
	if got := r.Delivered(); len(got) != 0 {
		t.Errorf("cancelled order still delivered: %v", ids(got))
	}
}

func TestServedRevertLeavesSinglePartition(t *testing.T) {
	r := New(enum.RoleKitchen)
	r.Apply(order(1, 1, enum.OrderStatusServed, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	// Operator undoes a mis-tap: back to READY, off the delivered board.
	if !r.ApplyLocalOptimistic(1, Patch{Status: enum.OrderStatusReady}) {
		t.Fatal("patch did not find the delivered order")
	}
	if got := r.Snapshot(); len(got) != 1 || got[0].Status != enum.OrderStatusReady {
		t.Fatalf("active board = %+v, want order 1 READY", got)
	}
	if got := r.Delivered(); len(got) != 0 {
		t.Errorf("order still in delivered partition: %v", ids(got))
	}
}

func TestStaleVersionRejected(t *testing.T) {
	r := New(enum.RoleCounter)
	r.Apply(order(1, 5, enum.OrderStatusReady, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	// A delayed event from before the READY transition arrives late.
	r.Apply(order(1, 3, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	got := r.Snapshot()
	if got[0].Status != enum.OrderStatusReady {
		t.Errorf("stale event regressed status to %s", got[0].Status)
	}
}

func TestOptimisticPatchBeatsStaleEvent(t *testing.T) {
	r := New(enum.RoleKitchen)
	r.Apply(order(1, 4, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	if !r.ApplyLocalOptimistic(1, Patch{Status: enum.OrderStatusCooking}) {
		t.Fatal("optimistic patch did not find the order")
	}
	if got := r.Snapshot(); got[0].Status != enum.OrderStatusCooking {
		t.Fatalf("patch not applied, status = %s", got[0].Status)
	}

	// The pre-patch snapshot the server was still pushing must not regress it.
	r.Apply(order(1, 4, enum.OrderStatusNew, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	if got := r.Snapshot(); got[0].Status != enum.OrderStatusCooking {
		t.Errorf("stale event undid optimistic patch, status = %s", got[0].Status)
	}

	// The authoritative event confirming the transition lands.
	r.Apply(order(1, 6, enum.OrderStatusCooking, enum.OrderTypeDineIn, enum.PaymentStatusPending))
	if got := r.Snapshot(); got[0].Version != 6 {
		t.Errorf("authoritative event rejected, version = %d", got[0].Version)
	}
}

func TestOptimisticPatchToTerminalEvicts(t *testing.T) {
	r := New(enum.RoleCounter)
	r.Apply(order(1, 1, enum.OrderStatusReady, enum.OrderTypeDineIn, enum.PaymentStatusPending))

	r.ApplyLocalOptimistic(1, Patch{Status: enum.OrderStatusPaid, PaymentStatus: enum.PaymentStatusCompleted})
	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("optimistic settle left order visible: %v", ids(got))
	}
}

func TestOptimisticPatchUnknownID(t *testing.T) {
	r := New(enum.RoleCounter)
	if r.ApplyLocalOptimistic(42, Patch{Status: enum.OrderStatusCooking}) {
		t.Error("patch on unknown id reported success")
	}
	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("patch on unknown id created entry: %v", ids(got))
	}
}
