package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"gorm.io/gorm"
)

// Posting is one requested line of an entry.
type Posting struct {
	Account   AccountCode
	Direction Direction
	Amount    decimal.Decimal
}

type PostRequest struct {
	OrgID      snowflake.ID
	SourceType SourceType
	SourceID   snowflake.ID
	Currency   string
	OccurredAt time.Time
	Postings   []Posting
}

type Service interface {
	// PostTx writes a balanced entry inside tx. Posting the same source twice is a no-op and reports false.
	PostTx(ctx context.Context, tx *gorm.DB, req PostRequest) (bool, error)
	ListEntries(ctx context.Context, sourceType SourceType, sourceID string) ([]Entry, error)
	// Balance is the debit-minus-credit balance of an account for the context organization.
	Balance(ctx context.Context, code AccountCode) (decimal.Decimal, error)
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidSource       = apperr.Validation("invalid_ledger_source")
	ErrInvalidSourceID     = apperr.Validation("invalid_ledger_source_id")
	ErrInvalidCurrency     = apperr.Validation("invalid_currency")
	ErrInvalidAccount      = apperr.Validation("invalid_ledger_account")
	ErrInvalidDirection    = apperr.Validation("invalid_ledger_direction")
	ErrInvalidAmount       = apperr.Validation("invalid_ledger_amount")
	ErrUnbalanced          = apperr.Validation("ledger_entry_unbalanced")
)

// ValidateBalanced requires at least one debit and one credit and equal sums on both sides.
func ValidateBalanced(postings []Posting) error {
	debit := decimal.Zero
	credit := decimal.Zero
	var debits, credits int
	for _, posting := range postings {
		if _, ok := ChartOfAccounts[posting.Account]; !ok {
			return ErrInvalidAccount
		}
		if !posting.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		switch posting.Direction {
		case Debit:
			debit = debit.Add(posting.Amount)
			debits++
		case Credit:
			credit = credit.Add(posting.Amount)
			credits++
		default:
			return ErrInvalidDirection
		}
	}
	if debits == 0 || credits == 0 || !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}
