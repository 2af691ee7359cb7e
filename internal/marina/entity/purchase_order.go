package entity

import "time"

// POStatus is the lifecycle state of a bid-based purchase order.
type POStatus string

const (
	POStatusPendingBids POStatus = "PENDING_BIDS"
	POStatusApproved    POStatus = "APPROVED"
	POStatusInLogistics POStatus = "IN_LOGISTICS"
	POStatusDelivered   POStatus = "DELIVERED"
	POStatusCompleted   POStatus = "COMPLETED"
)

// poTransitions is the closed transition table for the bid-based flow. A
// transition absent here is refused without mutating the order.
var poTransitions = map[POStatus][]POStatus{
	POStatusPendingBids: {POStatusApproved},
	POStatusApproved:    {POStatusInLogistics},
	POStatusInLogistics: {POStatusDelivered},
	POStatusDelivered:   {POStatusCompleted},
	POStatusCompleted:   {},
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s POStatus) CanTransitionTo(next POStatus) bool {
	for _, t := range poTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s POStatus) Terminal() bool {
	return len(poTransitions[s]) == 0
}

// PurchaseOrder is the bid-based aggregate: a store order whose line items
// collect competing purchaser bids and, once fully approved, move through
// logistics to receipt confirmation.
type PurchaseOrder struct {
	ID       string   `json:"id" gorm:"primaryKey;size:32"`
	PONumber string   `json:"po_number" gorm:"size:32;uniqueIndex;not null"`
	StoreID  string   `json:"store_id" gorm:"size:32;not null;index"`
	Status   POStatus `json:"status" gorm:"size:50;default:PENDING_BIDS"`

	// Logistics
	AssignedDriver    string     `json:"assigned_driver" gorm:"size:100"`
	PickupTime        *time.Time `json:"pickup_time"`
	PickupTemperature *float64   `json:"pickup_temperature" gorm:"type:decimal(5,2)"`
	PickupPhotoURL    string     `json:"pickup_photo_url" gorm:"size:500"`
	DeliveryPhotoURL  string     `json:"delivery_photo_url" gorm:"size:500"`
	GRNNotes          string     `json:"grn_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Store     *User           `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	LineItems []OrderLineItem `json:"line_items,omitempty" gorm:"foreignKey:POID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// OrderLineItem requests one article at the selling rate locked for the
// order's creation week. LockedRate never changes after creation;
// AllocatedQuantity is set exactly once, when a bid is approved.
type OrderLineItem struct {
	ID                string   `json:"id" gorm:"primaryKey;size:32"`
	POID              string   `json:"po_id" gorm:"size:32;not null;index"`
	ArticleID         string   `json:"article_id" gorm:"size:32;not null"`
	RequestedQuantity float64  `json:"requested_quantity" gorm:"type:decimal(10,2);not null"`
	LockedRate        float64  `json:"locked_rate" gorm:"type:decimal(12,4);not null"`
	AllocatedQuantity *float64 `json:"allocated_quantity" gorm:"type:decimal(10,2)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Article *Article `json:"article,omitempty" gorm:"foreignKey:ArticleID"`
	Bids    []Bid    `json:"bids,omitempty" gorm:"foreignKey:LineItemID"`
}

func (OrderLineItem) TableName() string {
	return "order_line_items"
}

// ApprovedBid returns the line item's approved bid, if any.
func (li *OrderLineItem) ApprovedBid() *Bid {
	for i := range li.Bids {
		if li.Bids[i].Status == BidStatusApproved {
			return &li.Bids[i]
		}
	}
	return nil
}
