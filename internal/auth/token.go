package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingCredential means the Authorization header was absent or
	// not of the form "Bearer <token>". Maps to 401.
	ErrMissingCredential = errors.New("missing or malformed credential")
	// ErrInvalidToken means the token failed verification or expired.
	// Maps to 403.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the result of verifying a bearer token. TenantID is always
// set; CustomerID only for customer session tokens.
type Identity struct {
	TenantID   string
	CustomerID string
}

type sessionClaims struct {
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

type verificationClaims struct {
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id"`
	jwt.RegisteredClaims
}

// TokenAuthority mints and verifies HS256 tokens. Session tokens and
// email verification tokens are signed with separate secrets.
type TokenAuthority struct {
	sessionSecret      []byte
	verificationSecret []byte
	sessionTTL         time.Duration
	verificationTTL    time.Duration
}

func NewTokenAuthority(sessionSecret, verificationSecret string) *TokenAuthority {
	return &TokenAuthority{
		sessionSecret:      []byte(sessionSecret),
		verificationSecret: []byte(verificationSecret),
		sessionTTL:         30 * 24 * time.Hour,
		verificationTTL:    time.Hour,
	}
}

// MintTenantToken issues a long-lived token carrying only tenant identity.
func (a *TokenAuthority) MintTenantToken(tenantID string) (string, error) {
	return a.mintSession(tenantID, "")
}

// MintCustomerToken issues a customer login token carrying both the
// tenant and the customer identity.
func (a *TokenAuthority) MintCustomerToken(tenantID, customerID string) (string, error) {
	return a.mintSession(tenantID, customerID)
}

func (a *TokenAuthority) mintSession(tenantID, customerID string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		TenantID:   tenantID,
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefront",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.sessionSecret)
}

// Authenticate verifies a raw Authorization header and returns the tenant
// identity embedded in the token.
func (a *TokenAuthority) Authenticate(rawHeader string) (Identity, error) {
	claims, err := a.parseSession(rawHeader)
	if err != nil {
		return Identity{}, err
	}
	return Identity{TenantID: claims.TenantID, CustomerID: claims.CustomerID}, nil
}

// AuthenticateCustomer is Authenticate restricted to customer login
// tokens: a token without a customer id is rejected.
func (a *TokenAuthority) AuthenticateCustomer(rawHeader string) (Identity, error) {
	id, err := a.Authenticate(rawHeader)
	if err != nil {
		return Identity{}, err
	}
	if id.CustomerID == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

func (a *TokenAuthority) parseSession(rawHeader string) (*sessionClaims, error) {
	raw, err := bearerToken(rawHeader)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.sessionSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// MintVerificationToken issues the one-hour token embedded in
// verification emails.
func (a *TokenAuthority) MintVerificationToken(tenantID, customerID string) (string, error) {
	now := time.Now()
	claims := verificationClaims{
		TenantID:   tenantID,
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefront",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.verificationTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.verificationSecret)
}

// VerifyVerificationToken checks a raw verification token (no Bearer
// scheme; it arrives as a query parameter).
func (a *TokenAuthority) VerifyVerificationToken(raw string) (Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &verificationClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.verificationSecret, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*verificationClaims)
	if !ok || !token.Valid || claims.TenantID == "" || claims.CustomerID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{TenantID: claims.TenantID, CustomerID: claims.CustomerID}, nil
}

func bearerToken(rawHeader string) (string, error) {
	if rawHeader == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(rawHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMissingCredential
	}
	return parts[1], nil
}
