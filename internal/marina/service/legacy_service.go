package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/pricing"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/notify"
)

// LegacyOrderService drives the single-buy-rate order flow. It predates the
// bid-based purchase orders and keeps its own margin-based quantity
// adjustment and state machine.
type LegacyOrderService struct {
	repos        *repository.Repositories
	sellingRates map[string]float64
	notifier     *notify.Notifier
	logger       *zap.Logger
}

func NewLegacyOrderService(repos *repository.Repositories, sellingRates map[string]float64, notifier *notify.Notifier, logger *zap.Logger) *LegacyOrderService {
	return &LegacyOrderService{repos: repos, sellingRates: sellingRates, notifier: notifier, logger: logger}
}

func (s *LegacyOrderService) Create(ctx context.Context, storeID, category string, quantity int) (*entity.Order, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	order := &entity.Order{
		ID:       uuid.New().String()[:32],
		OrderID:  s.repos.Order.GenerateOrderID(),
		Category: category,
		Quantity: quantity,
		Status:   entity.OrderStatusPendingPurchase,
		StoreID:  storeID,
	}
	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.notifier.Send(ctx, "order.created", order.OrderID,
		fmt.Sprintf("Order %s raised for %d x %s", order.OrderID, quantity, category))

	return order, nil
}

// List returns orders visible to the caller: stores see their own,
// purchasers see open orders plus ones they claimed, admins see everything.
func (s *LegacyOrderService) List(ctx context.Context, userID string, role entity.Role, page, pageSize int, status string) ([]entity.Order, int64, error) {
	if role == entity.RolePurchaser {
		orders, err := s.repos.Order.FindOpenForPurchaser(ctx, userID)
		return orders, int64(len(orders)), err
	}

	filters := map[string]string{"status": status}
	if role == entity.RoleStore {
		filters["store_id"] = userID
	}
	return s.repos.Order.FindAll(ctx, page, pageSize, filters)
}

func (s *LegacyOrderService) Get(ctx context.Context, userID string, role entity.Role, orderID string) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role == entity.RoleStore && order.StoreID != userID {
		return nil, fmt.Errorf("%w: order belongs to another store", ErrForbidden)
	}
	return order, nil
}

// Accept claims an open order for a purchaser. The status does not change;
// the claim only fixes who may submit the purchase.
func (s *LegacyOrderService) Accept(ctx context.Context, purchaserID, orderID string) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPendingPurchase {
		return nil, fmt.Errorf("%w: order %s is %s, expected PENDING_PURCHASE", ErrPrecondition, order.OrderID, order.Status)
	}
	if order.PurchaserID != nil && *order.PurchaserID != purchaserID {
		return nil, fmt.Errorf("%w: order already claimed by another purchaser", ErrPrecondition)
	}

	order.PurchaserID = &purchaserID
	if err := s.repos.Order.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

// SubmitPurchase records the buy rate and runs the margin-based quantity
// adjustment, then hands the order to the admin for approval. A REJECTED
// order may be resubmitted with a new rate.
func (s *LegacyOrderService) SubmitPurchase(ctx context.Context, purchaserID, orderID string, buyRate float64) (*entity.Order, error) {
	if buyRate <= 0 {
		return nil, fmt.Errorf("%w: buy_rate must be positive", ErrInvalidInput)
	}

	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(entity.OrderStatusPendingApproval) {
		return nil, fmt.Errorf("%w: order %s is %s, cannot submit a purchase", ErrPrecondition, order.OrderID, order.Status)
	}
	if order.PurchaserID != nil && *order.PurchaserID != purchaserID {
		return nil, fmt.Errorf("%w: order claimed by another purchaser", ErrForbidden)
	}

	adjusted, margin, err := pricing.AdjustedQuantity(order.Category, order.Quantity, buyRate, s.sellingRates)
	if err != nil {
		if errors.Is(err, pricing.ErrSellingRateNotConfigured) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	order.PurchaserID = &purchaserID
	order.BuyRate = &buyRate
	order.AdjustedQuantity = &adjusted
	order.MarginPercent = &margin
	order.Status = entity.OrderStatusPendingApproval
	if err := s.repos.Order.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	return order, nil
}

func (s *LegacyOrderService) Approve(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.transition(ctx, orderID, entity.OrderStatusPurchased, nil)
}

// Reject hands the order back to the purchaser for resubmission.
func (s *LegacyOrderService) Reject(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.transition(ctx, orderID, entity.OrderStatusRejected, nil)
}

// Dispatch sends a purchased order out for delivery.
func (s *LegacyOrderService) Dispatch(ctx context.Context, orderID string, expectedDelivery *time.Time) (*entity.Order, error) {
	order, err := s.transition(ctx, orderID, entity.OrderStatusOutForDelivery, func(o *entity.Order) {
		o.ExpectedDeliveryTime = expectedDelivery
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, "order.dispatched", order.OrderID,
		fmt.Sprintf("Order %s is out for delivery", order.OrderID))
	return order, nil
}

func (s *LegacyOrderService) MarkDelivered(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.transition(ctx, orderID, entity.OrderStatusDelivered, nil)
}

// ConfirmDelivery lets the owning store close the order.
func (s *LegacyOrderService) ConfirmDelivery(ctx context.Context, storeID, orderID string) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.StoreID != storeID {
		return nil, fmt.Errorf("%w: order belongs to another store", ErrForbidden)
	}
	return s.apply(ctx, order, entity.OrderStatusCompleted, nil)
}

func (s *LegacyOrderService) transition(ctx context.Context, orderID string, next entity.OrderStatus, mutate func(*entity.Order)) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, order, next, mutate)
}

func (s *LegacyOrderService) apply(ctx context.Context, order *entity.Order, next entity.OrderStatus, mutate func(*entity.Order)) (*entity.Order, error) {
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: order %s is %s, cannot move to %s", ErrPrecondition, order.OrderID, order.Status, next)
	}
	if mutate != nil {
		mutate(order)
	}
	order.Status = next
	if err := s.repos.Order.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}
