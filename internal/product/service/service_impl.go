package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"github.com/smallbiznis/billingcore/internal/product/domain"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	afterID, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	limit := req.Limit()

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListFilter{
		Name:        strings.ToLower(strings.TrimSpace(req.Name)),
		ProductType: strings.TrimSpace(req.ProductType),
		Active:      req.Active,
		AfterID:     afterID,
		Limit:       limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	page, pageInfo := pagination.Page(items, limit, func(p domain.Product) int64 { return p.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, toResponse(&page[i], nil))
	}

	return domain.ListResponse{PageInfo: pageInfo, Products: resp}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if req.SalesPrice.IsNegative() || !money.Representable(req.SalesPrice) {
		return nil, domain.ErrInvalidPrice
	}
	costPrice := decimal.Zero
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() || !money.Representable(*req.CostPrice) {
			return nil, domain.ErrInvalidPrice
		}
		costPrice = *req.CostPrice
	}

	var description *string
	if req.Description != nil {
		if trimmed := strings.TrimSpace(*req.Description); trimmed != "" {
			description = &trimmed
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := s.clock.Now().UTC()
	product := &domain.Product{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		ProductType: strings.TrimSpace(req.ProductType),
		Description: description,
		SalesPrice:  req.SalesPrice,
		CostPrice:   costPrice,
		Active:      active,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, product); err != nil {
		return nil, err
	}

	s.log.Info("product created", zap.String("product_id", product.ID.String()))
	resp := toResponse(product, nil)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	variants, err := s.repo.ListVariants(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(item, variants)
	return &resp, nil
}

func (s *Service) CreateVariant(ctx context.Context, req domain.CreateVariantRequest) (*domain.VariantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, err
	}

	attribute := strings.TrimSpace(req.Attribute)
	value := strings.TrimSpace(req.Value)
	if attribute == "" || value == "" {
		return nil, domain.ErrInvalidAttribute
	}
	if req.ExtraPrice.IsNegative() || !money.Representable(req.ExtraPrice) {
		return nil, domain.ErrInvalidPrice
	}

	product, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	variant := &domain.Variant{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ProductID:  productID,
		Attribute:  attribute,
		Value:      value,
		ExtraPrice: req.ExtraPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertVariant(ctx, s.db, variant); err != nil {
		return nil, err
	}

	resp := toVariantResponse(variant)
	return &resp, nil
}

func (s *Service) ListVariants(ctx context.Context, productID string) ([]domain.VariantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	id, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	variants, err := s.repo.ListVariants(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.VariantResponse, 0, len(variants))
	for i := range variants {
		resp = append(resp, toVariantResponse(&variants[i]))
	}
	return resp, nil
}

func (s *Service) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.PlanResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	period := domain.BillingPeriod(strings.ToLower(strings.TrimSpace(string(req.BillingPeriod))))
	if period == "" {
		period = domain.BillingPeriodMonthly
	}
	if !period.Valid() {
		return nil, domain.ErrInvalidBillingPeriod
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now().UTC()
	plan := &domain.Plan{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Name:          name,
		Price:         req.Price,
		BillingPeriod: period,
		Active:        active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.InsertPlan(ctx, s.db, plan); err != nil {
		return nil, err
	}

	s.log.Info("plan created", zap.String("plan_id", plan.ID.String()), zap.String("billing_period", string(period)))
	resp := toPlanResponse(plan)
	return &resp, nil
}

func (s *Service) ListPlans(ctx context.Context, req domain.ListPlanRequest) ([]domain.PlanResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	period := domain.BillingPeriod(strings.ToLower(strings.TrimSpace(req.BillingPeriod)))
	if period != "" && !period.Valid() {
		return nil, domain.ErrInvalidBillingPeriod
	}

	plans, err := s.repo.ListPlans(ctx, s.db, orgID, domain.ListPlanFilter{
		BillingPeriod: period,
		Active:        req.Active,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.PlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, toPlanResponse(&plans[i]))
	}
	return resp, nil
}

func (s *Service) GetPlan(ctx context.Context, id string) (*domain.PlanResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	planID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.FindPlanByID(ctx, s.db, orgID, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	resp := toPlanResponse(plan)
	return &resp, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func toResponse(p *domain.Product, variants []domain.Variant) domain.Response {
	var metadata map[string]any
	if len(p.Metadata) > 0 {
		metadata = map[string]any(p.Metadata)
	}

	resp := domain.Response{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		Name:           p.Name,
		ProductType:    p.ProductType,
		Description:    p.Description,
		SalesPrice:     p.SalesPrice,
		CostPrice:      p.CostPrice,
		Active:         p.Active,
		Metadata:       metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for i := range variants {
		resp.Variants = append(resp.Variants, toVariantResponse(&variants[i]))
	}
	return resp
}

func toVariantResponse(v *domain.Variant) domain.VariantResponse {
	return domain.VariantResponse{
		ID:         v.ID.String(),
		ProductID:  v.ProductID.String(),
		Attribute:  v.Attribute,
		Value:      v.Value,
		ExtraPrice: v.ExtraPrice,
		CreatedAt:  v.CreatedAt,
	}
}

func toPlanResponse(p *domain.Plan) domain.PlanResponse {
	return domain.PlanResponse{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		Name:           p.Name,
		Price:          p.Price,
		BillingPeriod:  p.BillingPeriod,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
