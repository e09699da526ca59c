package model

import "github.com/shopspring/decimal"

// Bill is the computed bill snapshot fetched from GET /payments/bill/{id}.
type Bill struct {
	OrderID       int64           `json:"orderId"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	TableNumber   string          `json:"tableNumber"`
	OrderType     string          `json:"orderType"`
	GSTEnabled    bool            `json:"gstEnabled"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	PaymentStatus string          `json:"paymentStatus"`
	Items         []BillItem      `json:"items"`
	CreatedAt     string          `json:"createdAt"`
}

// BillItem is one line of a bill. GSTPercent overrides the shop default when set.
type BillItem struct {
	Name       string           `json:"name"`
	Quantity   int32            `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Total      decimal.Decimal  `json:"total"`
	GSTPercent *decimal.Decimal `json:"gstPercent,omitempty"`
}

// BillCalculation is derived, never persisted: the settlement state of a bill
// for a given discount and set of tenders. Recomputed on every input change.
type BillCalculation struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	Discount            decimal.Decimal `json:"discount"`
	CGST                decimal.Decimal `json:"cgst"`
	SGST                decimal.Decimal `json:"sgst"`
	Total               decimal.Decimal `json:"total"`
	AmountReceived      decimal.Decimal `json:"amountReceived"`
	Change              decimal.Decimal `json:"change"`
	Remaining           decimal.Decimal `json:"remaining"`
	SettlementPermitted bool            `json:"settlementPermitted"`
}
