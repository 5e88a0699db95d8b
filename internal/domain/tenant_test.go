package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewTenant(t *testing.T) {
	tenant, err := NewTenant("acme", "deadbeef")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tenant.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
	if tenant.Name != "acme" || tenant.APIKeyHash != "deadbeef" {
		t.Errorf("fields not carried: %+v", tenant)
	}

	t.Run("empty name", func(t *testing.T) {
		if _, err := NewTenant("", "deadbeef"); !errors.Is(err, ErrTenantInvalid) {
			t.Fatalf("expected ErrTenantInvalid, got %v", err)
		}
	})

	t.Run("empty key hash", func(t *testing.T) {
		if _, err := NewTenant("acme", ""); !errors.Is(err, ErrTenantInvalid) {
			t.Fatalf("expected ErrTenantInvalid, got %v", err)
		}
	})
}
