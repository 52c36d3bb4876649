package tenant

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// ClientRepository reads and writes tenant records. Clients are the one
// table not scoped by a tenant filter: they are the tenants.
type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	client.ID = uuid.New().String()
	client.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, return_url, smtp_host, smtp_port, smtp_username, smtp_password, smtp_from, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, client.ID, client.Name, client.Email, client.ReturnURL,
		client.Mail.Host, client.Mail.Port, client.Mail.Username, client.Mail.Password, client.Mail.From,
		client.CreatedAt)
	return err
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	client := &domain.Client{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, return_url, smtp_host, smtp_port, smtp_username, smtp_password, smtp_from, created_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&client.ID, &client.Name, &client.Email, &client.ReturnURL,
		&client.Mail.Host, &client.Mail.Port, &client.Mail.Username, &client.Mail.Password, &client.Mail.From,
		&client.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return client, nil
}
