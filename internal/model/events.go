package model

// TableUpdate is pushed when a table's occupancy changes. Stock alerts have
// no model type: their payload is a plain display string.
type TableUpdate struct {
	TableNumber string `json:"tableNumber"`
	Status      string `json:"status"`
	OrderID     int64  `json:"orderId,omitempty"`
}
