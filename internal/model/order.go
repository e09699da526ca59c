package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the authoritative order snapshot pushed by the backend.
// Version is a monotonic server-side counter; the reconcilers use it to
// drop events that arrive after a newer snapshot has already been folded.
type Order struct {
	ID                 int64           `json:"id"`
	Version            int64           `json:"version"`
	Status             string          `json:"status"`
	OrderType          string          `json:"orderType"`
	TableNumber        string          `json:"tableNumber"`
	CustomerName       string          `json:"customerName,omitempty"`
	CustomerPhone      string          `json:"customerPhone,omitempty"`
	Items              []OrderItem     `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	CGST               decimal.Decimal `json:"cgst"`
	SGST               decimal.Decimal `json:"sgst"`
	Discount           decimal.Decimal `json:"discount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	PaymentStatus      string          `json:"paymentStatus"`
	GSTEnabled         bool            `json:"gstEnabled"`
	EstimatedReadyTime *time.Time      `json:"estimatedReadyTime,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// OrderItem is immutable after creation except for Status, which the kitchen
// display moves through NEW -> READY -> SERVED per item.
type OrderItem struct {
	ID          int64            `json:"id"`
	MenuItemID  int64            `json:"menuItemId"`
	VariationID *int64           `json:"variationId,omitempty"`
	Name        string           `json:"name"`
	Quantity    int32            `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Total       decimal.Decimal  `json:"total"`
	GSTPercent  *decimal.Decimal `json:"gstPercent,omitempty"`
	Status      string           `json:"status,omitempty"`
}

// OrderDraft is the payload for order placement, and the payload stored in a
// queued CREATE_ORDER action when placement fails offline.
type OrderDraft struct {
	CustomerName  string           `json:"customerName,omitempty"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	TableNumber   string           `json:"tableNumber"`
	OrderType     string           `json:"orderType"`
	CreatedBy     string           `json:"createdBy"`
	GSTEnabled    bool             `json:"gstEnabled"`
	Items         []OrderItemDraft `json:"items"`
}

// OrderItemDraft is a single requested line in an OrderDraft.
type OrderItemDraft struct {
	MenuItemID  int64  `json:"menuItemId"`
	VariationID *int64 `json:"variationId,omitempty"`
	Quantity    int32  `json:"quantity"`
}

// Tender is one payment instrument/amount pair in a settlement.
type Tender struct {
	Mode   string          `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentDraft is the payload for settling a bill, and the payload stored in
// a queued PROCESS_PAYMENT action. Either PaymentMode/AmountReceived (single
// tender) or Tenders (split) is set, never both.
type PaymentDraft struct {
	OrderID        int64           `json:"orderId"`
	Discount       decimal.Decimal `json:"discount"`
	GSTEnabled     *bool           `json:"gstEnabled,omitempty"`
	TransactionRef string          `json:"transactionRef,omitempty"`
	PaymentMode    string          `json:"paymentMode,omitempty"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	Tenders        []Tender        `json:"paymentModes,omitempty"`
	IdempotencyKey uuid.UUID       `json:"idempotencyKey,omitempty"`
}

// Payment is the settlement record returned by the backend.
type Payment struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"orderId"`
	PaymentMode    string          `json:"paymentMode"`
	PaymentStatus  string          `json:"paymentStatus"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	ChangeReturned decimal.Decimal `json:"changeReturned"`
	TransactionRef string          `json:"transactionRef,omitempty"`
	PaidAt         time.Time       `json:"paidAt"`
}
