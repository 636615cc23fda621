// Package orders implements the order lifecycle: placing an order, moving it through
// WaitingShipper -> ToReceive -> Completed, deleting it, and the role-scoped listings.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/policy"
	"github.com/joao-fontenele/storefront-api/internal/telemetry"
	"github.com/joao-fontenele/storefront-api/internal/validation"
)

// Queries is the persistence surface the service needs. Implementations wrap not-found
// conditions in domain.ErrNotFound.
type Queries interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ProductsByID(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	InsertOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// UpdateStatus moves the order from one status to the next only if it is still in
	// from. A non-empty shipperID is assigned in the same statement. It returns
	// domain.ErrNotFound if the row is gone and domain.ErrConflict if the status moved.
	UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, shipperID string, at time.Time) error
	DeleteOrder(ctx context.Context, id int64) error
}

type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type Service struct {
	store     Store
	publisher Publisher
	metrics   *telemetry.OrderMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the engine. publisher and metrics may be nil.
func NewService(store Store, publisher Publisher, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type LineItem struct {
	ProductID int64 `json:"id"`
	// Quantity is bounded by the INTEGER column it is stored in.
	Quantity int `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type CreateOrderInput struct {
	ShipAddress   string     `json:"shipAddress" validate:"notblank"`
	PaymentMethod string     `json:"paymentMethod" validate:"oneof=Momo COD"`
	Items         []LineItem `json:"products" validate:"min=1,dive"`
}

func (in CreateOrderInput) validate() (domain.PaymentMethod, error) {
	if err := validation.Struct(in); err != nil {
		return "", err
	}
	return domain.ToPaymentMethod(in.PaymentMethod)
}

// CreateOrder places an order for the caller. The order and its details are written in one
// transaction with prices copied from the catalog; a missing customer or product leaves
// nothing behind.
func (s *Service) CreateOrder(ctx context.Context, caller domain.Caller, in CreateOrderInput) (*domain.Order, error) {
	if err := policy.Authorize(policy.OrderCreate, caller, policy.Resource{CustomerID: caller.ID}); err != nil {
		return nil, err
	}

	method, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		CustomerID:    caller.ID,
		ShipAddress:   strings.TrimSpace(in.ShipAddress),
		Status:        domain.OrderStatusWaitingShipper,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.WithTx(ctx, func(q Queries) error {
		customer, err := q.GetUser(ctx, caller.ID)
		if err != nil {
			return fmt.Errorf("customer %s: %w", caller.ID, err)
		}
		order.Customer = customer

		ids := lo.Uniq(lo.Map(in.Items, func(item LineItem, _ int) int64 { return item.ProductID }))
		products, err := q.ProductsByID(ctx, ids)
		if err != nil {
			return err
		}

		order.Details = make([]domain.OrderDetail, 0, len(in.Items))
		for _, item := range in.Items {
			product, ok := products[item.ProductID]
			if !ok {
				return fmt.Errorf("product %d: %w", item.ProductID, domain.ErrNotFound)
			}
			order.Details = append(order.Details, domain.OrderDetail{
				ProductID:   lo.ToPtr(product.ID),
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Discount:    decimal.Zero,
				Price:       product.Price,
			})
		}

		return q.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, order.PaymentMethod)
	s.publish(ctx, domain.OrderEventCreated, order)
	s.logger.Info("order created", "order_id", order.ID, "caller_id", caller.ID, "items", len(order.Details))

	return order, nil
}

// PickUp assigns the calling shipper to a waiting order and moves it to ToReceive. An order
// that already left WaitingShipper is a conflict, including one taken by another shipper.
func (s *Service) PickUp(ctx context.Context, caller domain.Caller, orderID int64) (*domain.Order, error) {
	if err := policy.Authorize(policy.OrderPickUp, caller, policy.Resource{}); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, order, domain.OrderStatusToReceive, caller.ID); err != nil {
		return nil, err
	}
	order.ShipperID = caller.ID

	s.publish(ctx, domain.OrderEventPickedUp, order)
	s.logger.Info("order picked up", "order_id", order.ID, "caller_id", caller.ID)

	return order, nil
}

// MarkComplete finishes an order that is out for delivery. Only an admin or the shipper
// who picked it up may do so.
func (s *Service) MarkComplete(ctx context.Context, caller domain.Caller, orderID int64) (*domain.Order, error) {
	if err := policy.Precheck(policy.OrderComplete, caller); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(policy.OrderComplete, caller, resourceOf(order)); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, order, domain.OrderStatusCompleted, ""); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.OrderEventCompleted, order)
	s.logger.Info("order completed", "order_id", order.ID, "caller_id", caller.ID)

	return order, nil
}

func (s *Service) DeleteOrder(ctx context.Context, caller domain.Caller, orderID int64) error {
	if err := policy.Authorize(policy.OrderDelete, caller, policy.Resource{}); err != nil {
		return err
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	s.metrics.RecordDeleted(ctx)
	s.publish(ctx, domain.OrderEventDeleted, order)
	s.logger.Info("order deleted", "order_id", orderID, "caller_id", caller.ID)

	return nil
}

func (s *Service) transition(ctx context.Context, order *domain.Order, to domain.OrderStatus, shipperID string) error {
	if !order.Status.CanTransitionTo(to) {
		return fmt.Errorf("order %d is %s, cannot move to %s: %w", order.ID, order.Status, to, domain.ErrConflict)
	}

	at := s.now()
	if err := s.store.UpdateStatus(ctx, order.ID, order.Status, to, shipperID, at); err != nil {
		return err
	}

	order.Status = to
	order.UpdatedAt = at
	s.metrics.RecordTransition(ctx, to)

	return nil
}

// ListForCaller returns the orders a shipper has picked up, or for anyone else the orders
// they placed.
func (s *Service) ListForCaller(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if err := policy.Authorize(policy.OrderListOwn, caller, policy.Resource{}); err != nil {
		return nil, err
	}

	filter := domain.OrderFilter{CustomerID: caller.ID}
	if caller.HasRole(domain.RoleShipper) {
		filter = domain.OrderFilter{ShipperID: caller.ID}
	}

	return s.store.ListOrders(ctx, filter)
}

func (s *Service) ListWaiting(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if err := policy.Authorize(policy.OrderListWaiting, caller, policy.Resource{}); err != nil {
		return nil, err
	}

	return s.store.ListOrders(ctx, domain.OrderFilter{Status: domain.OrderStatusWaitingShipper})
}

// ListAll returns every order, optionally narrowed to one status. An empty status means
// no filter.
func (s *Service) ListAll(ctx context.Context, caller domain.Caller, status string) ([]domain.Order, error) {
	if err := policy.Authorize(policy.OrderListAll, caller, policy.Resource{}); err != nil {
		return nil, err
	}

	var filter domain.OrderFilter
	if status != "" {
		st, err := domain.ToOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	return s.store.ListOrders(ctx, filter)
}

func (s *Service) GetOrder(ctx context.Context, caller domain.Caller, orderID int64) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(policy.OrderGet, caller, resourceOf(order)); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Service) publish(ctx context.Context, typ domain.OrderEventType, order *domain.Order) {
	if s.publisher == nil {
		return
	}

	event := domain.OrderEvent{
		Type:       typ,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		ShipperID:  order.ShipperID,
		Status:     order.Status,
		Timestamp:  s.now(),
	}
	if order.Customer != nil {
		event.CustomerEmail = order.Customer.Email
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "order_id", order.ID, "type", typ)
	}
}

func resourceOf(order *domain.Order) policy.Resource {
	return policy.Resource{CustomerID: order.CustomerID, ShipperID: order.ShipperID}
}
