package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/money"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"github.com/smallbiznis/billingcore/pkg/db"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("discount.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
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

	kind := money.RateType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if !kind.Valid() {
		return nil, domain.ErrInvalidType
	}
	if !money.ValidateRate(kind, req.Value) {
		return nil, domain.ErrInvalidValue
	}
	if req.MinimumPurchase.IsNegative() || req.MinimumQuantity < 0 {
		return nil, domain.ErrInvalidMinimum
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, domain.ErrInvalidWindow
	}
	if req.LimitUsage != nil && *req.LimitUsage < 1 {
		return nil, domain.ErrInvalidLimit
	}

	appliesTo := domain.AppliesTo(strings.ToUpper(strings.TrimSpace(string(req.AppliesTo))))
	if appliesTo == "" {
		appliesTo = domain.AppliesToAll
	}
	if !appliesTo.Valid() {
		return nil, domain.ErrInvalidAppliesTo
	}

	productID, err := parseOptionalID(req.ProductID)
	if err != nil {
		return nil, err
	}
	subscriptionID, err := parseOptionalID(req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if appliesTo == domain.AppliesToProduct && productID == nil {
		return nil, domain.ErrInvalidAppliesTo
	}

	var code *string
	if trimmed := strings.ToUpper(strings.TrimSpace(req.Code)); trimmed != "" {
		if strings.ContainsAny(trimmed, " \t\n") {
			return nil, domain.ErrInvalidCode
		}
		code = &trimmed
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := s.clock.Now().UTC()
	record := &domain.Discount{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Name:            name,
		Code:            code,
		DiscountType:    kind,
		Value:           req.Value,
		MinimumPurchase: req.MinimumPurchase,
		MinimumQuantity: req.MinimumQuantity,
		StartDate:       utcPtr(req.StartDate),
		EndDate:         utcPtr(req.EndDate),
		LimitUsage:      req.LimitUsage,
		AppliesTo:       appliesTo,
		ProductID:       productID,
		SubscriptionID:  subscriptionID,
		IsActive:        true,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if code != nil {
		existing, err := s.repo.FindByCode(ctx, s.db, orgID, *code)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Code != nil {
			return nil, domain.ErrDuplicateCode
		}
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	s.emitAudit(ctx, "discount.created", record, nil)
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	appliesTo := domain.AppliesTo(strings.ToUpper(strings.TrimSpace(req.AppliesTo)))
	if appliesTo != "" && !appliesTo.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidAppliesTo
	}

	afterID, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	limit := req.Limit()

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListFilter{
		IsActive:  req.IsActive,
		AppliesTo: appliesTo,
		AfterID:   afterID,
		Limit:     limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	page, pageInfo := pagination.Page(items, limit, func(d domain.Discount) int64 { return d.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, toResponse(&page[i]))
	}
	return domain.ListResponse{PageInfo: pageInfo, Discounts: resp}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	discountID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, discountID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	discountID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Deactivate(ctx, s.db, orgID, discountID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, domain.ErrNotFound
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, discountID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	s.emitAudit(ctx, "discount.deactivated", item, nil)
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Validate(ctx context.Context, req domain.ValidateRequest) (domain.AppliedDiscount, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.AppliedDiscount{}, domain.ErrInvalidOrganization
	}
	return s.ValidateTx(ctx, s.db, orgID, req)
}

// ValidateTx looks the code up through tx and evaluates it. It does not consume a use.
func (s *Service) ValidateTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, req domain.ValidateRequest) (domain.AppliedDiscount, error) {
	if tx == nil {
		tx = s.db
	}
	if req.Subtotal.IsNegative() || req.Quantity < 0 {
		return domain.AppliedDiscount{}, domain.ErrInvalidMinimum
	}

	item, err := s.repo.FindByCode(ctx, tx, orgID, req.Code)
	if err != nil {
		return domain.AppliedDiscount{}, err
	}
	if item == nil {
		return domain.AppliedDiscount{}, domain.ErrNotFound
	}

	asOf := s.clock.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}
	return domain.Evaluate(*item, req.Subtotal, req.Quantity, asOf, req.Scope)
}

func (s *Service) Apply(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	discountID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var applied *domain.Discount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ApplyTx(ctx, tx, orgID, discountID); err != nil {
			return err
		}
		item, err := s.repo.FindByID(ctx, tx, orgID, discountID)
		if err != nil {
			return err
		}
		applied = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(applied)
	return &resp, nil
}

// ApplyTx consumes one use of the discount with a single guarded UPDATE, so concurrent
// redemptions can never push used_count past limit_usage.
func (s *Service) ApplyTx(ctx context.Context, tx *gorm.DB, orgID, discountID snowflake.ID) error {
	updated, err := s.repo.IncrementUsage(ctx, tx, orgID, discountID, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if updated == 1 {
		s.obsMetrics.RecordDiscountRedemption(ctx, "applied")
		return nil
	}

	item, err := s.repo.FindByID(ctx, tx, orgID, discountID)
	if err != nil {
		return err
	}
	if item == nil || !item.IsActive {
		return domain.ErrNotFound
	}

	s.obsMetrics.RecordDiscountRedemption(ctx, "limit_reached")
	s.log.Info("discount usage limit reached",
		zap.String("discount_id", discountID.String()),
		zap.Int64("used_count", item.UsedCount),
	)
	return domain.ErrUsageLimitReached
}

func (s *Service) emitAudit(ctx context.Context, action string, d *domain.Discount, extra map[string]any) {
	if s.auditSvc == nil || d == nil {
		return
	}
	metadata := map[string]any{
		"name":       d.Name,
		"type":       string(d.DiscountType),
		"value":      d.Value.String(),
		"applies_to": string(d.AppliesTo),
	}
	if d.Code != nil {
		metadata["code"] = *d.Code
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := d.ID.String()
	orgID := d.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "discount", &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(value string) (*snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func toResponse(d *domain.Discount) domain.Response {
	resp := domain.Response{
		ID:              d.ID.String(),
		OrganizationID:  d.OrgID.String(),
		Name:            d.Name,
		Code:            d.Code,
		Type:            d.DiscountType,
		Value:           d.Value,
		MinimumPurchase: d.MinimumPurchase,
		MinimumQuantity: d.MinimumQuantity,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		LimitUsage:      d.LimitUsage,
		UsedCount:       d.UsedCount,
		AppliesTo:       d.AppliesTo,
		IsActive:        d.IsActive,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.ProductID != nil {
		value := d.ProductID.String()
		resp.ProductID = &value
	}
	if d.SubscriptionID != nil {
		value := d.SubscriptionID.String()
		resp.SubscriptionID = &value
	}
	if len(d.Metadata) > 0 {
		resp.Metadata = map[string]any(d.Metadata)
	}
	return resp
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := t.UTC()
	return &value
}
