package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Policy *config.BillingPolicyHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	policy *config.BillingPolicyHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("sequence.service"),
		clock:  p.Clock,
		policy: p.Policy,
	}
}

func (s *Service) Next(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType domain.DocType) (string, error) {
	if orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}
	if !docType.Valid() {
		return "", domain.ErrInvalidDocType
	}

	if tx == nil {
		var number string
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = s.Next(ctx, tx, orgID, docType)
			return err
		})
		return number, err
	}

	value, err := s.increment(ctx, tx, orgID, docType)
	if err != nil {
		return "", err
	}
	return Format(docType, value, s.width(docType)), nil
}

// increment bumps the counter row with a single UPDATE so concurrent callers serialize on the row.
func (s *Service) increment(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType domain.DocType) (int64, error) {
	now := s.clock.Now().UTC()
	bump := func() (int64, error) {
		result := tx.WithContext(ctx).Exec(
			`UPDATE document_sequences SET last_value = last_value + 1, updated_at = ?
			 WHERE org_id = ? AND doc_type = ?`,
			now,
			orgID,
			docType,
		)
		return result.RowsAffected, result.Error
	}

	affected, err := bump()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		counter := domain.Counter{OrgID: orgID, DocType: docType, UpdatedAt: now}
		if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return 0, err
		}
		if affected, err = bump(); err != nil {
			return 0, err
		}
		if affected == 0 {
			return 0, errors.New("sequence counter row missing after insert")
		}
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT last_value FROM document_sequences WHERE org_id = ? AND doc_type = ?`,
		orgID,
		docType,
	).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Service) width(docType domain.DocType) int {
	padding := s.policy.Get().SequencePadding
	switch docType {
	case domain.DocTypeInvoice:
		return padding.Invoice
	case domain.DocTypeQuotation:
		return padding.Quotation
	case domain.DocTypePayment:
		return padding.Payment
	default:
		return padding.Subscription
	}
}

// Format renders a document number such as INV-00001.
func Format(docType domain.DocType, value int64, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s-%0*d", docType.Prefix(), width, value)
}
