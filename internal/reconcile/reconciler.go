// Package reconcile folds authoritative order events and local optimistic
// edits into per-role visible lists. Each role sees a different slice of
// the order lifecycle; the fold keeps at most one entry per order id.
package reconcile

import (
	"sync"

	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
)

// Patch is a local optimistic edit applied before the server round-trip
// completes. Empty fields are left unchanged.
type Patch struct {
	Status        string
	PaymentStatus string
}

// Reconciler maintains one role's visible order list. The kitchen role
// additionally keeps a delivered partition: served orders move there and
// stay until ClearDelivered.
type Reconciler struct {
	role string

	mu        sync.Mutex
	visible   []model.Order
	delivered []model.Order
	versions  map[int64]int64
}

func New(role string) *Reconciler {
	return &Reconciler{
		role:     role,
		versions: make(map[int64]int64),
	}
}

func (r *Reconciler) Role() string { return r.role }

// Apply folds an authoritative order snapshot into the visible list.
// Snapshots older than the version already held for that id are ignored,
// so a slow event cannot regress a newer state or a local optimistic edit.
func (r *Reconciler) Apply(order model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.versions[order.ID]; ok && order.Version < held {
		return
	}
	r.fold(order)
}

// ApplyLocalOptimistic patches the held entry immediately on a local user
// action. The patched snapshot gets a version one past the held one, so
// the stale pre-patch event the server may still push is rejected while
// the authoritative post-patch event (with a newer version) lands.
// Returns false if the id is not in this role's lists.
func (r *Reconciler) ApplyLocalOptimistic(id int64, patch Patch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.find(id)
	if !ok {
		return false
	}
	if patch.Status != "" {
		order.Status = patch.Status
	}
	if patch.PaymentStatus != "" {
		order.PaymentStatus = patch.PaymentStatus
	}
	order.Version = r.versions[id] + 1
	r.fold(order)
	return true
}

// Snapshot returns a copy of the visible list, newest first.
func (r *Reconciler) Snapshot() []model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Order(nil), r.visible...)
}

// Delivered returns a copy of the kitchen's delivered partition.
func (r *Reconciler) Delivered() []model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Order(nil), r.delivered...)
}

// ClearDelivered empties the delivered partition.
func (r *Reconciler) ClearDelivered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = nil
}

// fold runs the replace/prepend/evict rules. Caller holds the mutex.
func (r *Reconciler) fold(order model.Order) {
	r.versions[order.ID] = order.Version

	if r.role == enum.RoleKitchen && order.Status == enum.OrderStatusServed {
		r.remove(&r.visible, order.ID)
		r.upsert(&r.delivered, order)
		return
	}

	if r.terminal(order) {
		r.remove(&r.visible, order.ID)
		if order.Status == enum.OrderStatusCancelled {
			r.remove(&r.delivered, order.ID)
		}
		return
	}

	if !r.eligible(order) {
		r.remove(&r.visible, order.ID)
		return
	}

	// An order can only live in one partition: re-entering the active
	// board drops any delivered copy left from an earlier SERVED state.
	r.remove(&r.delivered, order.ID)
	r.upsert(&r.visible, order)
}

// eligible reports whether this role shows the order at all.
func (r *Reconciler) eligible(order model.Order) bool {
	switch r.role {
	case enum.RoleKitchen:
		// Takeaway is pay-first: it only reaches the kitchen once paid.
		if order.OrderType == enum.OrderTypeTakeaway {
			return order.PaymentStatus == enum.PaymentStatusCompleted
		}
		return true
	case enum.RoleWaiter:
		return order.OrderType == enum.OrderTypeDineIn
	default:
		return true
	}
}

// terminal reports whether the status evicts the order for this role.
func (r *Reconciler) terminal(order model.Order) bool {
	switch r.role {
	case enum.RoleKitchen:
		return order.Status == enum.OrderStatusCancelled ||
			(order.Status == enum.OrderStatusPaid && order.OrderType == enum.OrderTypeDineIn)
	default:
		return order.Status == enum.OrderStatusPaid || order.Status == enum.OrderStatusCancelled
	}
}

func (r *Reconciler) find(id int64) (model.Order, bool) {
	for _, o := range r.visible {
		if o.ID == id {
			return o, true
		}
	}
	for _, o := range r.delivered {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// upsert replaces in place when present, otherwise prepends as newest.
func (r *Reconciler) upsert(list *[]model.Order, order model.Order) {
	for i, o := range *list {
		if o.ID == order.ID {
			(*list)[i] = order
			return
		}
	}
	*list = append([]model.Order{order}, *list...)
}

func (r *Reconciler) remove(list *[]model.Order, id int64) {
	for i, o := range *list {
		if o.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
