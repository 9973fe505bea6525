package domain

import "github.com/smallbiznis/billingcore/internal/apperr"

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidName         = apperr.Validation("invalid_name")
	ErrInvalidID           = apperr.Validation("invalid_id")
	ErrInvalidTaxType      = apperr.Validation("invalid_tax_type")
	ErrInvalidTaxRate      = apperr.Validation("invalid_tax_rate")
	ErrNotFound            = apperr.NotFound("tax_not_found")
	ErrProductNotFound     = apperr.NotFound("product_not_found")
	ErrNotAttached         = apperr.NotFound("tax_not_attached")
)
