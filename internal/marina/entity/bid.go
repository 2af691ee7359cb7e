package entity

import "time"

// BidStatus is the lifecycle state of a single purchaser bid.
type BidStatus string

const (
	BidStatusPending     BidStatus = "PENDING"
	BidStatusRecommended BidStatus = "RECOMMENDED"
	BidStatusApproved    BidStatus = "APPROVED"
	BidStatusRejected    BidStatus = "REJECTED"
)

// Bid is a purchaser's proposed buy price for a line item, backed by a photo
// proof in the blob store. At most one bid per line item is ever APPROVED.
type Bid struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	LineItemID    string    `json:"line_item_id" gorm:"size:32;not null;index"`
	PurchaserID   string    `json:"purchaser_id" gorm:"size:32;not null;index"`
	BidRate       float64   `json:"bid_rate" gorm:"type:decimal(12,4);not null"`
	ProofPhotoURL string    `json:"proof_photo_url" gorm:"size:500;not null"`
	Status        BidStatus `json:"status" gorm:"size:50;default:PENDING"`
	CreatedAt     time.Time `json:"created_at"`

	Purchaser *User `json:"purchaser,omitempty" gorm:"foreignKey:PurchaserID"`
}

func (Bid) TableName() string {
	return "bids"
}
