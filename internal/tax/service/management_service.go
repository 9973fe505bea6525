package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serviceParams struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        taxdomain.Repository
	ProductRepo productdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        taxdomain.Repository
	productRepo productdomain.Repository
}

func NewService(p serviceParams) taxdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("tax.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
	}
}

func (s *Service) List(ctx context.Context, req taxdomain.ListRequest) ([]taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}

	items, err := s.repo.List(ctx, s.db, orgID, taxdomain.ListFilter{
		Name:     strings.TrimSpace(req.Name),
		TaxType:  string(normalizeTaxType(money.RateType(req.TaxType))),
		IsActive: req.IsActive,
	})
	if err != nil {
		return nil, err
	}

	return toResponses(items), nil
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, taxdomain.ErrInvalidName
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.clock.Now().UTC()
	record := &taxdomain.TaxRule{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		TaxType:     normalizeTaxType(req.TaxType),
		Rate:        req.Rate,
		Description: normalizeDescription(req.Description),
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("tax created", zap.String("tax_id", record.ID.String()), zap.String("tax_type", string(record.TaxType)))
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req taxdomain.UpdateRequest) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}

	taxID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, taxID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, taxdomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.TaxType != nil {
		item.TaxType = normalizeTaxType(*req.TaxType)
	}
	if req.Rate != nil {
		item.Rate = *req.Rate
	}
	if req.Description != nil {
		item.Description = normalizeDescription(req.Description)
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	item.UpdatedAt = s.clock.Now().UTC()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Disable(ctx context.Context, id string) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}

	taxID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, taxID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrNotFound
	}

	item.IsActive = false
	item.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

// AttachToProduct links a tax to a product. Attaching an already linked pair is a no-op.
func (s *Service) AttachToProduct(ctx context.Context, productID, taxID string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return taxdomain.ErrInvalidOrganization
	}

	pid, err := parseID(productID)
	if err != nil {
		return err
	}
	tid, err := parseID(taxID)
	if err != nil {
		return err
	}

	product, err := s.productRepo.FindByID(ctx, s.db, orgID, pid)
	if err != nil {
		return err
	}
	if product == nil {
		return taxdomain.ErrProductNotFound
	}
	rule, err := s.repo.FindByID(ctx, s.db, orgID, tid)
	if err != nil {
		return err
	}
	if rule == nil {
		return taxdomain.ErrNotFound
	}

	return s.repo.Attach(ctx, s.db, &taxdomain.ProductTax{
		ProductID: pid,
		TaxID:     tid,
		OrgID:     orgID,
		CreatedAt: s.clock.Now().UTC(),
	})
}

func (s *Service) DetachFromProduct(ctx context.Context, productID, taxID string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return taxdomain.ErrInvalidOrganization
	}

	pid, err := parseID(productID)
	if err != nil {
		return err
	}
	tid, err := parseID(taxID)
	if err != nil {
		return err
	}

	removed, err := s.repo.Detach(ctx, s.db, orgID, pid, tid)
	if err != nil {
		return err
	}
	if removed == 0 {
		return taxdomain.ErrNotAttached
	}
	return nil
}

func (s *Service) ListForProduct(ctx context.Context, productID string) ([]taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}

	pid, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListForProduct(ctx, s.db, orgID, pid)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, taxdomain.ErrInvalidID
	}
	return id, nil
}

func toResponses(items []taxdomain.TaxRule) []taxdomain.Response {
	resp := make([]taxdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp
}

func toResponse(rule *taxdomain.TaxRule) taxdomain.Response {
	return taxdomain.Response{
		ID:             rule.ID.String(),
		OrganizationID: rule.OrgID.String(),
		Name:           rule.Name,
		TaxType:        rule.TaxType,
		Rate:           rule.Rate,
		Description:    rule.Description,
		IsActive:       rule.IsActive,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}

func normalizeTaxType(value money.RateType) money.RateType {
	return money.RateType(strings.ToUpper(strings.TrimSpace(string(value))))
}

func normalizeDescription(value *string) *string {
	if value == nil {
		return nil
	}
	description := strings.TrimSpace(*value)
	if description == "" {
		return nil
	}
	return &description
}
