package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"storefront/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrNoItems         = errors.New("order needs at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrUnknownCustomer = errors.New("unknown customer")
	ErrInvalidStatus   = errors.New("invalid order status")
)

// Store is the slice of OrderRepository the lifecycle logic needs.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Order, error)
	GetAnyByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, tenantID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status domain.OrderStatus, trackingLink, trackingCode string) (*domain.Order, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
	Count(ctx context.Context, tenantID string) (int64, error)
	SumTotals(ctx context.Context, tenantID string) (int64, error)
	MarkPaid(ctx context.Context, order *domain.Order, total int64) (bool, error)
}

type ProductSource interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Product, error)
}

type CustomerSource interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error)
}

type ClientSource interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, event domain.NotificationRequestedEvent)
}

type CreateItemInput struct {
	ProductID string
	VariantID string
	Quantity  int
}

type CreateOrderInput struct {
	TenantID      string
	CustomerID    string
	Items         []CreateItemInput
	DeliveryPrice int64
	DeliveryType  string
	Address       string
	PostalCode    string
	Phone         string
}

// Service owns the order lifecycle: creation with total computation,
// status transitions, and payment recording with stock decrement.
type Service struct {
	store     Store
	products  ProductSource
	customers CustomerSource
	clients   ClientSource
	notifier  Notifier
	logger    *slog.Logger

	ordersCreated metric.Int64Counter
	ordersPaid    metric.Int64Counter
}

func NewService(store Store, products ProductSource, customers CustomerSource, clients ClientSource, notifier Notifier, logger *slog.Logger) (*Service, error) {
	meter := otel.Meter("orders")

	ordersCreated, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created"))
	if err != nil {
		return nil, err
	}

	ordersPaid, err := meter.Int64Counter("orders.paid",
		metric.WithDescription("Orders marked paid by the payment webhook"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:         store,
		products:      products,
		customers:     customers,
		clients:       clients,
		notifier:      notifier,
		logger:        logger,
		ordersCreated: ordersCreated,
		ordersPaid:    ordersPaid,
	}, nil
}

// Create resolves every line's unit price from the product's current
// price (plus the variant's delta), sums the lines, adds the delivery
// price, and persists items and order atomically.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}

	customer, err := s.customers.GetByID(ctx, input.TenantID, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, input.CustomerID)
	}

	var total int64
	items := make([]domain.OrderItem, 0, len(input.Items))

	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductID)
		}

		product, err := s.products.GetByID(ctx, input.TenantID, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
		}

		unit := product.Price
		if line.VariantID != "" {
			variant := findVariant(product, line.VariantID)
			if variant == nil {
				return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, line.VariantID)
			}
			unit += variant.PriceDelta
		}

		total += unit * int64(line.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     unit,
		})
	}

	total += input.DeliveryPrice

	order := &domain.Order{
		TenantID:      input.TenantID,
		CustomerID:    input.CustomerID,
		Items:         items,
		Total:         total,
		Status:        domain.OrderStatusCreated,
		DeliveryPrice: input.DeliveryPrice,
		DeliveryType:  input.DeliveryType,
		Address:       input.Address,
		PostalCode:    input.PostalCode,
		Phone:         input.Phone,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.ordersCreated.Add(ctx, 1)
	s.logger.Info("order created", "order_id", order.ID, "tenant_id", order.TenantID,
		"customer_id", order.CustomerID, "total", order.Total)
	return order, nil
}

func findVariant(product *domain.Product, variantID string) *domain.Variant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}

// UpdateStatus applies an admin-triggered transition. Moving to
// "processed" fires the processed-order notification; a missing client
// or customer record only costs us the email, never the transition.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, orderID string, status domain.OrderStatus, trackingLink, trackingCode string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.store.UpdateStatus(ctx, tenantID, orderID, status, trackingLink, trackingCode)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if status == domain.OrderStatusProcessed {
		s.notifyProcessed(ctx, order)
	}

	s.logger.Info("order status updated", "order_id", order.ID, "tenant_id", tenantID, "status", status)
	return order, nil
}

func (s *Service) notifyProcessed(ctx context.Context, order *domain.Order) {
	client, err := s.clients.GetByID(ctx, order.TenantID)
	if err != nil || client == nil {
		s.logger.Warn("client record missing, skipping processed notification",
			"tenant_id", order.TenantID, "order_id", order.ID, "error", err)
		return
	}

	customer, err := s.customers.GetByID(ctx, order.TenantID, order.CustomerID)
	if err != nil || customer == nil {
		s.logger.Warn("customer record missing, skipping processed notification",
			"tenant_id", order.TenantID, "order_id", order.ID, "error", err)
		return
	}

	s.notifier.Dispatch(ctx, domain.NotificationRequestedEvent{
		Kind:      domain.NotificationProcessed,
		TenantID:  order.TenantID,
		Recipient: customer.Email,
		Data: map[string]string{
			"first_name":    customer.FirstName,
			"order_id":      order.ID,
			"tracking_link": order.TrackingLink,
			"tracking_code": order.TrackingCode,
		},
	})
}

// RecordPayment applies a payment webhook: mark paid, decrement stock,
// send the confirmation email. Replaying the webhook for an already-paid
// order is a no-op; stock is decremented exactly once.
func (s *Service) RecordPayment(ctx context.Context, orderID string, paid bool, total int64) (*domain.Order, error) {
	order, err := s.store.GetAnyByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if !paid {
		s.logger.Info("payment webhook without paid flag, ignoring", "order_id", orderID)
		return order, nil
	}

	if order.Paid {
		s.logger.Info("order already paid, skipping decrement", "order_id", orderID)
		return order, nil
	}

	won, err := s.store.MarkPaid(ctx, order, total)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !won {
		// A concurrent webhook got there first.
		s.logger.Info("order already paid, skipping decrement", "order_id", orderID)
		return s.store.GetAnyByID(ctx, orderID)
	}

	order.Paid = true
	order.Status = domain.OrderStatusPaid
	order.Total = total

	s.ordersPaid.Add(ctx, 1)
	s.notifyConfirmation(ctx, order)

	s.logger.Info("order payment recorded", "order_id", order.ID, "tenant_id", order.TenantID, "total", total)
	return order, nil
}

func (s *Service) notifyConfirmation(ctx context.Context, order *domain.Order) {
	customer, err := s.customers.GetByID(ctx, order.TenantID, order.CustomerID)
	if err != nil || customer == nil {
		s.logger.Warn("customer record missing, skipping confirmation notification",
			"tenant_id", order.TenantID, "order_id", order.ID, "error", err)
		return
	}

	s.notifier.Dispatch(ctx, domain.NotificationRequestedEvent{
		Kind:      domain.NotificationConfirmation,
		TenantID:  order.TenantID,
		Recipient: customer.Email,
		Data: map[string]string{
			"first_name": customer.FirstName,
			"order_id":   order.ID,
			"total":      formatCents(order.Total),
		},
	})
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
}

func (s *Service) Get(ctx context.Context, tenantID, orderID string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Order, error) {
	return s.store.List(ctx, tenantID)
}

func (s *Service) Delete(ctx context.Context, tenantID, orderID string) error {
	deleted, err := s.store.Delete(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrOrderNotFound
	}
	s.logger.Info("order deleted", "order_id", orderID, "tenant_id", tenantID)
	return nil
}

func (s *Service) Count(ctx context.Context, tenantID string) (int64, error) {
	return s.store.Count(ctx, tenantID)
}

func (s *Service) SumTotals(ctx context.Context, tenantID string) (int64, error) {
	return s.store.SumTotals(ctx, tenantID)
}
