package enum

// ── Order lifecycle (forward-moving; CANCELLED reachable from any non-terminal state) ──

const (
	OrderStatusNew       = "NEW"
	OrderStatusCooking   = "COOKING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

const (
	OrderItemStatusNew    = "NEW"
	OrderItemStatusReady  = "READY"
	OrderItemStatusServed = "SERVED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

const (
	PaymentModeCash   = "CASH"
	PaymentModeOnline = "ONLINE"
	PaymentModeMixed  = "MIXED"
)

// ── Station roles (one reconciler per role) ──

const (
	RoleWaiter  = "WAITER"
	RoleKitchen = "KITCHEN"
	RoleCounter = "COUNTER"
	RoleManager = "MANAGER"
)

// ── Queued action kinds (CHECK constrained in the local DB) ──

const (
	ActionCreateOrder    = "CREATE_ORDER"
	ActionProcessPayment = "PROCESS_PAYMENT"
)
