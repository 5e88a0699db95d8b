package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTenantInvalid is returned when a tenant fails construction-time
// validation. It is always wrapped with a reason.
var ErrTenantInvalid = errors.New("tenant invalid")

// Tenant is one API consumer. Tenants authenticate with an API key; only the
// SHA-256 hash of the key is stored, and the key can be rotated without
// recreating the tenant.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewTenant validates and constructs a tenant with a fresh ID.
func NewTenant(name, apiKeyHash string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrTenantInvalid)
	}
	if apiKeyHash == "" {
		return nil, fmt.Errorf("%w: api key hash is required", ErrTenantInvalid)
	}
	return &Tenant{
		ID:         uuid.New(),
		Name:       name,
		APIKeyHash: apiKeyHash,
	}, nil
}
