package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/pricing"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/notify"
)

// POService drives the bid-based purchase order flow: creation against the
// weekly rate catalog, purchaser bidding, store approval with allocation,
// and the logistics transitions through to receipt.
type POService struct {
	repos    *repository.Repositories
	rates    *RateCatalogService
	blob     BlobStore
	notifier *notify.Notifier
	logger   *zap.Logger
}

func NewPOService(repos *repository.Repositories, rates *RateCatalogService, blob BlobStore, notifier *notify.Notifier, logger *zap.Logger) *POService {
	return &POService{repos: repos, rates: rates, blob: blob, notifier: notifier, logger: logger}
}

// LineItemInput is one requested article on a new purchase order.
type LineItemInput struct {
	ArticleNumber string  `json:"article_number" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required"`
}

// CreateResult reports the created order plus the articles that were
// refused because no selling rate is locked for them this week.
type CreateResult struct {
	Order   *entity.PurchaseOrder `json:"order"`
	Skipped []string              `json:"skipped_articles,omitempty"`
}

// Create builds a purchase order for the store. Each item's locked_rate is
// resolved from the rate catalog for the current ISO week; items with no
// locked rate are refused. An order where nothing resolves is not created.
func (s *POService) Create(ctx context.Context, storeID string, items []LineItemInput) (*CreateResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
	}

	year, week := time.Now().ISOWeek()

	var lineItems []entity.OrderLineItem
	var skipped []string
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for %s", ErrInvalidInput, item.ArticleNumber)
		}

		article, err := s.repos.Article.FindByNumber(ctx, item.ArticleNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				skipped = append(skipped, item.ArticleNumber)
				continue
			}
			return nil, err
		}

		rate, err := s.rates.Lookup(ctx, article.ID, week, year)
		if err != nil {
			if errors.Is(err, ErrRateNotLocked) {
				skipped = append(skipped, item.ArticleNumber)
				continue
			}
			return nil, err
		}

		lineItems = append(lineItems, entity.OrderLineItem{
			ID:                uuid.New().String()[:32],
			ArticleID:         article.ID,
			RequestedQuantity: item.Quantity,
			LockedRate:        rate,
		})
	}

	if len(lineItems) == 0 {
		return nil, fmt.Errorf("%w: no line item resolves to a locked rate for week %d/%d", ErrInvalidInput, week, year)
	}

	poNumber, err := s.repos.PO.GenerateNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate po number: %w", err)
	}

	po := &entity.PurchaseOrder{
		ID:        uuid.New().String()[:32],
		PONumber:  poNumber,
		StoreID:   storeID,
		Status:    entity.POStatusPendingBids,
		LineItems: lineItems,
	}
	// gorm persists the order and its line items in one transaction.
	if err := s.repos.PO.Create(ctx, po); err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	s.notifier.Send(ctx, "po.created", po.PONumber,
		fmt.Sprintf("Purchase order %s raised with %d line item(s)", po.PONumber, len(lineItems)))

	return &CreateResult{Order: po, Skipped: skipped}, nil
}

// List returns purchase orders visible to the caller. Stores see only their
// own orders; purchasers and admins see everything.
func (s *POService) List(ctx context.Context, userID string, role entity.Role, page, pageSize int, status string) ([]entity.PurchaseOrder, int64, error) {
	filters := map[string]string{"status": status}
	if role == entity.RoleStore {
		filters["store_id"] = userID
	}
	return s.repos.PO.FindAll(ctx, page, pageSize, filters)
}

// Get loads one purchase order and refreshes its bid recommendations. The
// refresh is skipped once any bid on the order is APPROVED.
func (s *POService) Get(ctx context.Context, userID string, role entity.Role, poID string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if role == entity.RoleStore && po.StoreID != userID {
		return nil, fmt.Errorf("%w: order belongs to another store", ErrForbidden)
	}

	if err := s.refreshRecommendations(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// refreshRecommendations recomputes the RECOMMENDED bid per line item and
// persists the statuses that changed. Idempotent; a frozen order (any bid
// APPROVED) is left untouched.
func (s *POService) refreshRecommendations(ctx context.Context, po *entity.PurchaseOrder) error {
	frozen, err := s.repos.PO.HasApprovedBid(ctx, po.ID)
	if err != nil {
		return err
	}
	if frozen {
		return nil
	}

	var changed []*entity.Bid
	for i := range po.LineItems {
		item := &po.LineItems[i]

		bids := make([]*entity.Bid, len(item.Bids))
		before := make([]entity.BidStatus, len(item.Bids))
		for j := range item.Bids {
			bids[j] = &item.Bids[j]
			before[j] = item.Bids[j].Status
		}

		pricing.Recommend(item.LockedRate, bids)

		for j := range bids {
			if bids[j].Status != before[j] {
				changed = append(changed, bids[j])
			}
		}
	}

	if len(changed) == 0 {
		return nil
	}
	return s.repos.PO.UpdateBidStatuses(ctx, changed)
}

// SubmitBid records a purchaser's bid with its photo proof. The photo is
// uploaded before anything is persisted so a blob failure leaves no
// partial bid behind.
func (s *POService) SubmitBid(ctx context.Context, purchaserID, lineItemID string, bidRate float64, photo io.Reader, photoSize int64, fileName, contentType string) (*entity.Bid, error) {
	if bidRate <= 0 {
		return nil, fmt.Errorf("%w: bid_rate must be positive", ErrInvalidInput)
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: a proof photo is required", ErrInvalidInput)
	}

	item, err := s.repos.PO.FindLineItemByID(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	po, err := s.repos.PO.FindByID(ctx, item.POID)
	if err != nil {
		return nil, err
	}
	if po.Status != entity.POStatusPendingBids {
		return nil, fmt.Errorf("%w: order %s no longer accepts bids", ErrPrecondition, po.PONumber)
	}

	photoURL, err := s.blob.Upload(ctx, photo, photoSize, fileName, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload proof photo: %w", err)
	}

	bid := &entity.Bid{
		ID:            uuid.New().String()[:32],
		LineItemID:    item.ID,
		PurchaserID:   purchaserID,
		BidRate:       bidRate,
		ProofPhotoURL: photoURL,
		Status:        entity.BidStatusPending,
	}
	if err := s.repos.PO.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	if !pricing.ValidateBid(bidRate, item.LockedRate) {
		s.logger.Info("Bid outside guardrail band, stored but not eligible",
			zap.String("bid_id", bid.ID),
			zap.Float64("bid_rate", bidRate),
			zap.Float64("locked_rate", item.LockedRate))
	}

	return bid, nil
}

// ApproveBid approves one bid for a line item: siblings are rejected, the
// line item's allocation is computed, and the order advances to APPROVED
// once every line item has an approved bid. All writes commit atomically.
func (s *POService) ApproveBid(ctx context.Context, storeID, poID, lineItemID, bidID string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.StoreID != storeID {
		return nil, fmt.Errorf("%w: order belongs to another store", ErrForbidden)
	}
	if po.Status != entity.POStatusPendingBids {
		return nil, fmt.Errorf("%w: order %s is %s, bids can no longer be approved", ErrPrecondition, po.PONumber, po.Status)
	}

	var item *entity.OrderLineItem
	for i := range po.LineItems {
		if po.LineItems[i].ID == lineItemID {
			item = &po.LineItems[i]
			break
		}
	}
	if item == nil {
		return nil, repository.ErrNotFound
	}

	var bid *entity.Bid
	for i := range item.Bids {
		if item.Bids[i].ID == bidID {
			bid = &item.Bids[i]
			break
		}
	}
	if bid == nil {
		return nil, repository.ErrNotFound
	}

	allocated := pricing.Allocate(item.RequestedQuantity, item.LockedRate, bid.BidRate)

	// Does approving this bid complete the whole order?
	allApproved := true
	for i := range po.LineItems {
		li := &po.LineItems[i]
		if li.ID == item.ID {
			continue
		}
		if li.ApprovedBid() == nil {
			allApproved = false
			break
		}
	}

	err = s.repos.PO.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Bid{}).Where("id = ?", bid.ID).
			Update("status", entity.BidStatusApproved).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.Bid{}).
			Where("line_item_id = ? AND id <> ?", item.ID, bid.ID).
			Update("status", entity.BidStatusRejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.OrderLineItem{}).Where("id = ?", item.ID).
			Update("allocated_quantity", allocated).Error; err != nil {
			return err
		}
		if allApproved {
			if !po.Status.CanTransitionTo(entity.POStatusApproved) {
				return fmt.Errorf("%w: order %s cannot move to APPROVED from %s", ErrPrecondition, po.PONumber, po.Status)
			}
			if err := tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
				Update("status", entity.POStatusApproved).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if allApproved {
		s.notifier.Send(ctx, "po.approved", po.PONumber,
			fmt.Sprintf("All line items approved on %s, ready for logistics", po.PONumber))
	}

	return s.repos.PO.FindByID(ctx, poID)
}

// LogisticsInput is the admin dispatch form.
type LogisticsInput struct {
	Driver            string
	PickupTime        time.Time
	PickupTemperature *float64
	Photo             io.Reader
	PhotoSize         int64
	PhotoName         string
	PhotoContentType  string
}

// AssignLogistics moves an APPROVED order into IN_LOGISTICS with the driver
// and pickup details. The pickup photo, when provided, uploads before any
// status change.
func (s *POService) AssignLogistics(ctx context.Context, poID string, in LogisticsInput) (*entity.PurchaseOrder, error) {
	if in.Driver == "" {
		return nil, fmt.Errorf("%w: driver is required", ErrInvalidInput)
	}

	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(entity.POStatusInLogistics) {
		return nil, fmt.Errorf("%w: order %s is %s, expected APPROVED", ErrPrecondition, po.PONumber, po.Status)
	}

	if in.Photo != nil {
		photoURL, err := s.blob.Upload(ctx, in.Photo, in.PhotoSize, in.PhotoName, in.PhotoContentType)
		if err != nil {
			return nil, fmt.Errorf("upload pickup photo: %w", err)
		}
		po.PickupPhotoURL = photoURL
	}

	po.AssignedDriver = in.Driver
	po.PickupTime = &in.PickupTime
	po.PickupTemperature = in.PickupTemperature
	po.Status = entity.POStatusInLogistics
	if err := s.repos.PO.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.notifier.Send(ctx, "po.dispatched", po.PONumber,
		fmt.Sprintf("Order %s assigned to %s", po.PONumber, in.Driver))

	return po, nil
}

// MarkDelivered records the delivery proof photo and moves the order to
// DELIVERED. The upload is a hard gate; no photo, no transition.
func (s *POService) MarkDelivered(ctx context.Context, poID string, photo io.Reader, photoSize int64, fileName, contentType string) (*entity.PurchaseOrder, error) {
	if photo == nil {
		return nil, fmt.Errorf("%w: a delivery photo is required", ErrInvalidInput)
	}

	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(entity.POStatusDelivered) {
		return nil, fmt.Errorf("%w: order %s is %s, expected IN_LOGISTICS", ErrPrecondition, po.PONumber, po.Status)
	}

	photoURL, err := s.blob.Upload(ctx, photo, photoSize, fileName, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload delivery photo: %w", err)
	}

	po.DeliveryPhotoURL = photoURL
	po.Status = entity.POStatusDelivered
	if err := s.repos.PO.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.notifier.Send(ctx, "po.delivered", po.PONumber,
		fmt.Sprintf("Order %s delivered, awaiting store receipt", po.PONumber))

	return po, nil
}

// ConfirmReceipt closes a DELIVERED order. Both accept and reject end at
// COMPLETED; a rejection is only recorded as a "REJECTED: " prefix on the
// receipt notes. Whether rejection should instead reopen logistics is an
// open product decision.
func (s *POService) ConfirmReceipt(ctx context.Context, storeID, poID string, accepted bool, notes string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.StoreID != storeID {
		return nil, fmt.Errorf("%w: order belongs to another store", ErrForbidden)
	}
	if !po.Status.CanTransitionTo(entity.POStatusCompleted) {
		return nil, fmt.Errorf("%w: order %s is %s, expected DELIVERED", ErrPrecondition, po.PONumber, po.Status)
	}

	if accepted {
		po.GRNNotes = notes
	} else {
		po.GRNNotes = "REJECTED: " + notes
	}
	po.Status = entity.POStatusCompleted
	if err := s.repos.PO.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if !accepted {
		s.notifier.Send(ctx, "po.receipt_rejected", po.PONumber,
			fmt.Sprintf("Store rejected receipt of %s: %s", po.PONumber, notes))
	}

	return po, nil
}
