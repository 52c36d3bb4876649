//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"storefront/internal/customers"
	"storefront/internal/domain"
	"storefront/internal/messaging"
	"storefront/internal/orders"
	"storefront/internal/products"
	"storefront/internal/tenant"
)

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedClient(t *testing.T, repo *tenant.ClientRepository, name string) *domain.Client {
	t.Helper()
	client := &domain.Client{Name: name, Email: name + "@example.com"}
	if err := repo.Create(context.Background(), client); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func seedCustomer(t *testing.T, repo *customers.CustomerRepository, tenantID, email string) *domain.Customer {
	t.Helper()
	customer := &domain.Customer{
		TenantID:     tenantID,
		FirstName:    "Ada",
		Email:        email,
		PasswordHash: "x",
	}
	if err := repo.Create(context.Background(), customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func seedProduct(t *testing.T, repo *products.ProductRepository, tenantID string, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		TenantID: tenantID,
		Name:     "Mug",
		Category: "kitchen",
		Price:    1000,
		Stock:    stock,
		Variants: []domain.Variant{
			{Kind: domain.VariantKindSize, Value: "L", PriceDelta: 200, Quantity: stock},
		},
	}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestTenantIsolation(t *testing.T) {
	dsn := StartPostgres(t)
	db := openDB(t, dsn)
	ctx := context.Background()

	clientRepo := tenant.NewClientRepository(db)
	productRepo := products.NewProductRepository(db)
	customerRepo := customers.NewCustomerRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	alpha := seedClient(t, clientRepo, "alpha")
	beta := seedClient(t, clientRepo, "beta")

	alphaProduct := seedProduct(t, productRepo, alpha.ID, 10)
	seedProduct(t, productRepo, beta.ID, 5)

	t.Run("lists only own products", func(t *testing.T) {
		list, err := productRepo.List(ctx, alpha.ID)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 || list[0].TenantID != alpha.ID {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("cross-tenant get behaves like missing", func(t *testing.T) {
		product, err := productRepo.GetByID(ctx, beta.ID, alphaProduct.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if product != nil {
			t.Errorf("beta read alpha's product")
		}
	})

	t.Run("cross-tenant order delete does not delete", func(t *testing.T) {
		customer := seedCustomer(t, customerRepo, alpha.ID, "ada@alpha.test")
		order := &domain.Order{
			TenantID:   alpha.ID,
			CustomerID: customer.ID,
			Status:     domain.OrderStatusCreated,
			Items:      []domain.OrderItem{{ProductID: alphaProduct.ID, Quantity: 1, Price: 1000}},
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			t.Fatalf("Create: %v", err)
		}

		deleted, err := orderRepo.Delete(ctx, beta.ID, order.ID)
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if deleted {
			t.Errorf("beta deleted alpha's order")
		}

		got, err := orderRepo.GetByID(ctx, alpha.ID, order.ID)
		if err != nil || got == nil {
			t.Errorf("alpha's order gone after cross-tenant delete: %v %v", got, err)
		}
	})
}

func TestOrderCreationAllOrNothing(t *testing.T) {
	dsn := StartPostgres(t)
	db := openDB(t, dsn)
	ctx := context.Background()

	clientRepo := tenant.NewClientRepository(db)
	customerRepo := customers.NewCustomerRepository(db)
	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	client := seedClient(t, clientRepo, "alpha")
	customer := seedCustomer(t, customerRepo, client.ID, "ada@alpha.test")
	product := seedProduct(t, productRepo, client.ID, 10)

	// Second item violates the quantity check, aborting the transaction.
	order := &domain.Order{
		TenantID:   client.ID,
		CustomerID: customer.ID,
		Status:     domain.OrderStatusCreated,
		Items: []domain.OrderItem{
			{ProductID: product.ID, Quantity: 1, Price: 1000},
			{ProductID: product.ID, Quantity: 0, Price: 1000},
		},
	}
	if err := orderRepo.Create(ctx, order); err == nil {
		t.Fatal("expected insert to fail")
	}

	count, err := orderRepo.Count(ctx, client.ID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("order row survived a failed item insert")
	}

	var items int
	if err := db.QueryRow("SELECT COUNT(*) FROM order_items").Scan(&items); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if items != 0 {
		t.Errorf("item rows survived a failed insert: %d", items)
	}
}

func TestPaymentDecrementsOnce(t *testing.T) {
	dsn := StartPostgres(t)
	db := openDB(t, dsn)
	ctx := context.Background()

	clientRepo := tenant.NewClientRepository(db)
	customerRepo := customers.NewCustomerRepository(db)
	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	client := seedClient(t, clientRepo, "alpha")
	customer := seedCustomer(t, customerRepo, client.ID, "ada@alpha.test")
	product := seedProduct(t, productRepo, client.ID, 10)
	variant := product.Variants[0]

	order := &domain.Order{
		TenantID:   client.ID,
		CustomerID: customer.ID,
		Status:     domain.OrderStatusCreated,
		Items: []domain.OrderItem{
			{ProductID: product.ID, VariantID: variant.ID, Quantity: 3, Price: 1200},
		},
	}
	if err := orderRepo.Create(ctx, order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := orderRepo.MarkPaid(ctx, order, 3600)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !won {
		t.Fatal("first MarkPaid lost")
	}

	won, err = orderRepo.MarkPaid(ctx, order, 3600)
	if err != nil {
		t.Fatalf("second MarkPaid: %v", err)
	}
	if won {
		t.Error("second MarkPaid should report already paid")
	}

	got, err := productRepo.GetByID(ctx, client.ID, product.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Stock != 7 {
		t.Errorf("stock = %d, want 7 (decremented exactly once)", got.Stock)
	}
	if got.Variants[0].Quantity != 7 {
		t.Errorf("variant quantity = %d, want 7", got.Variants[0].Quantity)
	}

	paid, err := orderRepo.GetByID(ctx, client.ID, order.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !paid.Paid || paid.Status != domain.OrderStatusPaid || paid.Total != 3600 {
		t.Errorf("order = %+v", paid)
	}
}

func TestVerificationFlagSingleUse(t *testing.T) {
	dsn := StartPostgres(t)
	db := openDB(t, dsn)
	ctx := context.Background()

	clientRepo := tenant.NewClientRepository(db)
	customerRepo := customers.NewCustomerRepository(db)

	client := seedClient(t, clientRepo, "alpha")
	customer := seedCustomer(t, customerRepo, client.ID, "ada@alpha.test")

	verified, err := customerRepo.MarkVerified(ctx, client.ID, customer.ID)
	if err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	if !verified {
		t.Fatal("first MarkVerified lost")
	}

	verified, err = customerRepo.MarkVerified(ctx, client.ID, customer.ID)
	if err != nil {
		t.Fatalf("second MarkVerified: %v", err)
	}
	if verified {
		t.Error("verified flag flipped twice")
	}
}

func TestNotificationEventRoundTrip(t *testing.T) {
	brokers := StartKafka(t)
	topic := "notification.requested"

	producer := messaging.NewProducer(brokers, topic)
	defer producer.Close()

	event := domain.NotificationRequestedEvent{
		Kind:      domain.NotificationConfirmation,
		TenantID:  "tenant-1",
		Recipient: "ada@example.com",
		Data:      map[string]string{"order_id": "order-1", "total": "36.00"},
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := producer.Publish(ctx, event.TenantID, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, topic, "test-group")
	defer consumer.Close()

	received := make(chan domain.NotificationRequestedEvent, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		_ = consumer.Consume(consumeCtx, func(ctx context.Context, payload []byte) error {
			var got domain.NotificationRequestedEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				return err
			}
			received <- got
			stop()
			return nil
		})
	}()

	select {
	case got := <-received:
		if got.Kind != event.Kind || got.Recipient != event.Recipient {
			t.Errorf("got = %+v, want %+v", got, event)
		}
		if got.Data["total"] != "36.00" {
			t.Errorf("data = %v", got.Data)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the event")
	}
}
