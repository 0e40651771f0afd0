package request

// OrderItemRequest is one line of an order
type OrderItemRequest struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes"`
}

// CreateOrderRequest represents an order placed from a table
type CreateOrderRequest struct {
	Table   string             `json:"table"`
	Session string             `json:"session"`
	Notes   string             `json:"notes"`
	Items   []OrderItemRequest `json:"items"`
}

// SessionOrdersRequest represents session order list parameters
type SessionOrdersRequest struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}
