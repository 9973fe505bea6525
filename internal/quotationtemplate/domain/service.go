package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/document"
)

type CreateRequest struct {
	Name         string               `json:"name"`
	ValidityDays int                  `json:"validity_days"`
	IsDefault    bool                 `json:"is_default"`
	Notes        string               `json:"notes"`
	Items        []document.ItemInput `json:"items"`
}

type ListRequest struct {
	Name      string
	IsDefault *bool
}

type Response struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	Name           string               `json:"name"`
	ValidityDays   int                  `json:"validity_days"`
	IsDefault      bool                 `json:"is_default"`
	Notes          string               `json:"notes,omitempty"`
	Items          []document.ItemInput `json:"items"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	// GetDefault returns the organization's default template, or ErrNotFound when none is marked.
	GetDefault(ctx context.Context) (*Response, error)
	SetDefault(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidName         = apperr.Validation("invalid_name")
	ErrInvalidID           = apperr.Validation("invalid_id")
	ErrInvalidValidity     = apperr.Validation("invalid_validity_days")
	ErrNotFound            = apperr.NotFound("quotation_template_not_found")
)
