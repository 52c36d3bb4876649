package domain

import "time"

// Client is a tenant record. All customer, order, and product data is
// partitioned by the client's id.
type Client struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	ReturnURL string     `json:"return_url,omitempty"`
	Mail      MailConfig `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// MailConfig holds the tenant's outbound mail settings. The password is
// stored with the client record and never leaves the backend.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}
