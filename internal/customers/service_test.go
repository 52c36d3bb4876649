package customers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"storefront/internal/auth"
	"storefront/internal/domain"
)

type fakeStore struct {
	customers map[string]*domain.Customer
	nextID    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{customers: map[string]*domain.Customer{}, nextID: "cust-1"}
}

func (f *fakeStore) Create(ctx context.Context, customer *domain.Customer) error {
	customer.ID = f.nextID
	f.customers[customer.ID] = customer
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	customer, ok := f.customers[id]
	if !ok || customer.TenantID != tenantID {
		return nil, nil
	}
	return customer, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, tenantID, email string) (*domain.Customer, error) {
	for _, customer := range f.customers {
		if customer.TenantID == tenantID && customer.Email == email {
			return customer, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, tenantID string) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, customer := range f.customers {
		if customer.TenantID == tenantID {
			out = append(out, *customer)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, customer *domain.Customer) (bool, error) {
	stored, ok := f.customers[customer.ID]
	if !ok || stored.TenantID != customer.TenantID {
		return false, nil
	}
	stored.FirstName = customer.FirstName
	stored.LastName = customer.LastName
	stored.Email = customer.Email
	return true, nil
}

func (f *fakeStore) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	customer, ok := f.customers[id]
	if !ok || customer.TenantID != tenantID {
		return false, nil
	}
	delete(f.customers, id)
	return true, nil
}

func (f *fakeStore) MarkVerified(ctx context.Context, tenantID, id string) (bool, error) {
	customer, ok := f.customers[id]
	if !ok || customer.TenantID != tenantID || customer.Verified {
		return false, nil
	}
	customer.Verified = true
	return true, nil
}

type fakeNotifier struct {
	events []domain.NotificationRequestedEvent
}

func (f *fakeNotifier) Dispatch(ctx context.Context, event domain.NotificationRequestedEvent) {
	f.events = append(f.events, event)
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	authority := auth.NewTokenAuthority("session-secret", "verification-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, authority, notifier, "https://api.example.com", logger), store, notifier
}

func TestServiceRegister(t *testing.T) {
	t.Run("hashes the password and dispatches verification", func(t *testing.T) {
		svc, store, notifier := newTestService()

		customer, err := svc.Register(context.Background(), RegisterInput{
			TenantID:  "tenant-1",
			FirstName: "Ada",
			Email:     "ada@example.com",
			Password:  "hunter22",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}

		stored := store.customers[customer.ID]
		if stored.PasswordHash == "hunter22" || stored.PasswordHash == "" {
			t.Errorf("password stored in the clear or missing")
		}
		if stored.Verified {
			t.Errorf("new customer should start unverified")
		}

		if len(notifier.events) != 1 {
			t.Fatalf("events = %d, want 1", len(notifier.events))
		}
		event := notifier.events[0]
		if event.Kind != domain.NotificationVerification {
			t.Errorf("kind = %s, want verification", event.Kind)
		}
		if !strings.HasPrefix(event.Data["verify_url"], "https://api.example.com/customers/verify?token=") {
			t.Errorf("verify_url = %q", event.Data["verify_url"])
		}
	})

	t.Run("rejects duplicate email within the tenant", func(t *testing.T) {
		svc, _, _ := newTestService()

		input := RegisterInput{TenantID: "tenant-1", Email: "ada@example.com", Password: "hunter22"}
		if _, err := svc.Register(context.Background(), input); err != nil {
			t.Fatalf("first Register: %v", err)
		}
		_, err := svc.Register(context.Background(), input)
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("same email under another tenant is fine", func(t *testing.T) {
		svc, store, _ := newTestService()

		if _, err := svc.Register(context.Background(), RegisterInput{
			TenantID: "tenant-1", Email: "ada@example.com", Password: "hunter22",
		}); err != nil {
			t.Fatalf("first Register: %v", err)
		}
		store.nextID = "cust-2"
		if _, err := svc.Register(context.Background(), RegisterInput{
			TenantID: "tenant-2", Email: "ada@example.com", Password: "hunter22",
		}); err != nil {
			t.Fatalf("second Register: %v", err)
		}
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Register(context.Background(), RegisterInput{TenantID: "tenant-1", Email: "a@b.c"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestServiceLogin(t *testing.T) {
	register := func(t *testing.T, svc *Service) *domain.Customer {
		t.Helper()
		customer, err := svc.Register(context.Background(), RegisterInput{
			TenantID: "tenant-1", Email: "ada@example.com", Password: "hunter22",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		return customer
	}

	t.Run("valid credentials mint a customer token", func(t *testing.T) {
		svc, _, _ := newTestService()
		customer := register(t, svc)

		token, got, err := svc.Login(context.Background(), "tenant-1", "ada@example.com", "hunter22")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if got.ID != customer.ID {
			t.Errorf("customer id = %s, want %s", got.ID, customer.ID)
		}

		authority := auth.NewTokenAuthority("session-secret", "verification-secret")
		identity, err := authority.AuthenticateCustomer("Bearer " + token)
		if err != nil {
			t.Fatalf("AuthenticateCustomer: %v", err)
		}
		if identity.TenantID != "tenant-1" || identity.CustomerID != customer.ID {
			t.Errorf("identity = %+v", identity)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		register(t, svc)

		_, _, err := svc.Login(context.Background(), "tenant-1", "ada@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("login is tenant-scoped", func(t *testing.T) {
		svc, _, _ := newTestService()
		register(t, svc)

		_, _, err := svc.Login(context.Background(), "tenant-2", "ada@example.com", "hunter22")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestServiceVerify(t *testing.T) {
	authority := auth.NewTokenAuthority("session-secret", "verification-secret")

	t.Run("token is single-use", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.customers["cust-1"] = &domain.Customer{ID: "cust-1", TenantID: "tenant-1"}

		token, err := authority.MintVerificationToken("tenant-1", "cust-1")
		if err != nil {
			t.Fatalf("MintVerificationToken: %v", err)
		}

		if err := svc.Verify(context.Background(), token); err != nil {
			t.Fatalf("first Verify: %v", err)
		}
		if !store.customers["cust-1"].Verified {
			t.Errorf("customer not marked verified")
		}

		err = svc.Verify(context.Background(), token)
		if !errors.Is(err, ErrInvalidVerification) {
			t.Errorf("second Verify err = %v, want ErrInvalidVerification", err)
		}
	})

	t.Run("session token is not a verification token", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.customers["cust-1"] = &domain.Customer{ID: "cust-1", TenantID: "tenant-1"}

		token, err := authority.MintCustomerToken("tenant-1", "cust-1")
		if err != nil {
			t.Fatalf("MintCustomerToken: %v", err)
		}

		err = svc.Verify(context.Background(), token)
		if !errors.Is(err, ErrInvalidVerification) {
			t.Errorf("err = %v, want ErrInvalidVerification", err)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		svc, _, _ := newTestService()

		err := svc.Verify(context.Background(), "not-a-token")
		if !errors.Is(err, ErrInvalidVerification) {
			t.Errorf("err = %v, want ErrInvalidVerification", err)
		}
	})
}
