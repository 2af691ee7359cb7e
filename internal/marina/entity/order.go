package entity

import "time"

// OrderStatus is the lifecycle state of a legacy single-rate order.
type OrderStatus string

const (
	OrderStatusPendingPurchase OrderStatus = "PENDING_PURCHASE"
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusPurchased       OrderStatus = "PURCHASED"
	OrderStatusOutForDelivery  OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
)

// orderTransitions is the closed transition table for the legacy flow.
// REJECTED is not terminal: it hands control back to the purchaser, who may
// resubmit the purchase.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPurchase: {OrderStatusPendingApproval},
	OrderStatusPendingApproval: {OrderStatusRejected, OrderStatusPurchased},
	OrderStatusRejected:        {OrderStatusPendingApproval},
	OrderStatusPurchased:       {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery:  {OrderStatusDelivered},
	OrderStatusDelivered:       {OrderStatusCompleted},
	OrderStatusCompleted:       {},
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order is the legacy single-buy-rate aggregate: one category, one quantity,
// one purchaser-supplied buy rate, no per-line bidding. It predates the
// bid-based PurchaseOrder and keeps its own, differently shaped state
// machine on purpose.
type Order struct {
	ID       string      `json:"id" gorm:"primaryKey;size:32"`
	OrderID  string      `json:"order_id" gorm:"size:32;uniqueIndex;not null"`
	Category string      `json:"category" gorm:"size:50;not null"`
	Quantity int         `json:"quantity" gorm:"not null"`
	Status   OrderStatus `json:"status" gorm:"size:50;default:PENDING_PURCHASE"`

	StoreID     string  `json:"store_id" gorm:"size:32;not null;index"`
	PurchaserID *string `json:"purchaser_id" gorm:"size:32;index"`

	BuyRate          *float64 `json:"buy_rate" gorm:"type:decimal(12,4)"`
	AdjustedQuantity *int     `json:"adjusted_quantity"`
	MarginPercent    *float64 `json:"margin_percent" gorm:"type:decimal(6,2)"`

	ExpectedDeliveryTime *time.Time `json:"expected_delivery_time"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Store     *User `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Purchaser *User `json:"purchaser,omitempty" gorm:"foreignKey:PurchaserID"`
}

func (Order) TableName() string {
	return "orders"
}
