package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"storefront/internal/auth"
	"storefront/internal/domain"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidVerification = errors.New("invalid or expired token")
)

// Store is the slice of CustomerRepository the account logic needs.
type Store interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.Customer, error)
	List(ctx context.Context, tenantID string) ([]domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) (bool, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
	MarkVerified(ctx context.Context, tenantID, id string) (bool, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, event domain.NotificationRequestedEvent)
}

type RegisterInput struct {
	TenantID   string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	PostalCode string
	Password   string
}

// Service owns customer accounts: registration with email verification,
// login, and the tenant-scoped CRUD surface.
type Service struct {
	store     Store
	authority *auth.TokenAuthority
	notifier  Notifier
	publicURL string
	logger    *slog.Logger
}

func NewService(store Store, authority *auth.TokenAuthority, notifier Notifier, publicURL string, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		authority: authority,
		notifier:  notifier,
		publicURL: publicURL,
		logger:    logger,
	}
}

// Register creates the account and dispatches the verification email. A
// failure to mint or dispatch costs the email, not the registration.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Customer, error) {
	if input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	existing, err := s.store.GetByEmail(ctx, input.TenantID, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	customer := &domain.Customer{
		TenantID:     input.TenantID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		PostalCode:   input.PostalCode,
		PasswordHash: hash,
	}

	if err := s.store.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("persist customer: %w", err)
	}

	s.sendVerification(ctx, customer)

	s.logger.Info("customer registered", "customer_id", customer.ID, "tenant_id", customer.TenantID)
	return customer, nil
}

func (s *Service) sendVerification(ctx context.Context, customer *domain.Customer) {
	token, err := s.authority.MintVerificationToken(customer.TenantID, customer.ID)
	if err != nil {
		s.logger.Error("failed to mint verification token", "error", err, "customer_id", customer.ID)
		return
	}

	s.notifier.Dispatch(ctx, domain.NotificationRequestedEvent{
		Kind:      domain.NotificationVerification,
		TenantID:  customer.TenantID,
		Recipient: customer.Email,
		Data: map[string]string{
			"first_name": customer.FirstName,
			"verify_url": s.publicURL + "/customers/verify?token=" + url.QueryEscape(token),
		},
	})
}

// Login checks the credentials and mints a customer session token.
func (s *Service) Login(ctx context.Context, tenantID, email, password string) (string, *domain.Customer, error) {
	customer, err := s.store.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return "", nil, fmt.Errorf("load customer: %w", err)
	}
	if customer == nil || !auth.CheckPassword(customer.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.authority.MintCustomerToken(tenantID, customer.ID)
	if err != nil {
		return "", nil, fmt.Errorf("mint token: %w", err)
	}

	s.logger.Info("customer logged in", "customer_id", customer.ID, "tenant_id", tenantID)
	return token, customer, nil
}

// Verify consumes a verification token. The conditional flag update in
// the store makes the token single-use: replaying it reports
// ErrInvalidVerification even though the signature is still valid.
func (s *Service) Verify(ctx context.Context, rawToken string) error {
	identity, err := s.authority.VerifyVerificationToken(rawToken)
	if err != nil {
		return ErrInvalidVerification
	}

	verified, err := s.store.MarkVerified(ctx, identity.TenantID, identity.CustomerID)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if !verified {
		return ErrInvalidVerification
	}

	s.logger.Info("customer verified", "customer_id", identity.CustomerID, "tenant_id", identity.TenantID)
	return nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	customer, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Customer, error) {
	return s.store.List(ctx, tenantID)
}

type UpdateInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	PostalCode string
}

func (s *Service) Update(ctx context.Context, tenantID, id string, input UpdateInput) (*domain.Customer, error) {
	customer := &domain.Customer{
		ID:         id,
		TenantID:   tenantID,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
		PostalCode: input.PostalCode,
	}

	updated, err := s.store.Update(ctx, customer)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrCustomerNotFound
	}

	return s.store.GetByID(ctx, tenantID, id)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.store.Delete(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCustomerNotFound
	}
	s.logger.Info("customer deleted", "customer_id", id, "tenant_id", tenantID)
	return nil
}
