package model

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Order is the slice of an order the agent may expose to customers.
type Order struct {
	TenantID     string      `json:"tenant_id"`
	StoreID      string      `json:"store_id,omitempty"`
	ExternalID   string      `json:"external_id"`
	ReferenceID  string      `json:"reference_id,omitempty"`
	Status       OrderStatus `json:"status"`
	Total        float64     `json:"total"`
	Currency     string      `json:"currency"`
	ItemCount    int         `json:"item_count"`
	HasShipping  bool        `json:"has_shipping"`
	ShippingCity string      `json:"shipping_city,omitempty"`
}
