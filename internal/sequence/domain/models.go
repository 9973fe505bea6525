package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"gorm.io/gorm"
)

type DocType string

const (
	DocTypeInvoice      DocType = "invoice"
	DocTypeQuotation    DocType = "quotation"
	DocTypePayment      DocType = "payment"
	DocTypeSubscription DocType = "subscription"
)

// Prefix returns the human-readable number prefix, e.g. INV for invoices.
func (t DocType) Prefix() string {
	switch t {
	case DocTypeInvoice:
		return "INV"
	case DocTypeQuotation:
		return "Q"
	case DocTypePayment:
		return "PAY"
	case DocTypeSubscription:
		return "S"
	default:
		return ""
	}
}

func (t DocType) Valid() bool {
	return t.Prefix() != ""
}

// Counter is the last number handed out per organization and document type.
type Counter struct {
	OrgID     snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	DocType   DocType      `gorm:"primaryKey;type:varchar(32)"`
	LastValue int64        `gorm:"not null;default:0"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Counter) TableName() string { return "document_sequences" }

type Service interface {
	// Next allocates the next number inside tx. A rolled back tx releases the number.
	Next(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType DocType) (string, error)
}

var (
	ErrInvalidDocType      = apperr.Validation("invalid_document_type")
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
)
