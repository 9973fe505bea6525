package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	sequencedomain "github.com/smallbiznis/billingcore/internal/sequence/domain"
	"github.com/smallbiznis/billingcore/internal/subscription/domain"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ProductRepo  productdomain.Repository
	Sequence     sequencedomain.Service
	Pricer       *document.Pricer
	Items        *document.ItemStore
	Discounts    discountdomain.Evaluator
	AuditSvc     auditdomain.Service `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	productRepo  productdomain.Repository
	sequence     sequencedomain.Service
	pricer       *document.Pricer
	items        *document.ItemStore
	discounts    discountdomain.Evaluator
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("subscription.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		productRepo:  p.ProductRepo,
		sequence:     p.Sequence,
		pricer:       p.Pricer,
		items:        p.Items,
		discounts:    p.Discounts,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}
	var planID *snowflake.ID
	if strings.TrimSpace(req.PlanID) != "" {
		id, err := parseID(req.PlanID, domain.ErrInvalidPlan)
		if err != nil {
			return nil, err
		}
		planID = &id
	}

	now := s.clock.Now().UTC()
	start := now
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	end := utcPtr(req.EndDate)
	if end != nil && end.Before(start) {
		return nil, domain.ErrInvalidPeriod
	}
	terms := 0
	if req.PaymentTermDays != nil {
		terms = *req.PaymentTermDays
	}
	if terms < 0 {
		return nil, domain.ErrInvalidPaymentTerms
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	subscription := &domain.Subscription{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		CustomerID:      customerID,
		PlanID:          planID,
		Status:          document.SubscriptionDraft,
		StartDate:       start,
		EndDate:         end,
		PaymentTermDays: terms,
		Notes:           strings.TrimSpace(req.Notes),
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var lines []document.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, orgID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		inputs := req.Items
		if planID != nil {
			plan, err := s.productRepo.FindPlanByID(ctx, tx, orgID, *planID)
			if err != nil {
				return err
			}
			if plan == nil {
				return domain.ErrPlanNotFound
			}
			next := plan.BillingPeriod.Next(start)
			subscription.NextInvoiceDate = &next
			if len(inputs) == 0 {
				price := plan.Price
				inputs = []document.ItemInput{{Description: plan.Name, Quantity: 1, UnitPrice: &price}}
			}
		}

		number, err := s.sequence.Next(ctx, tx, orgID, sequencedomain.DocTypeSubscription)
		if err != nil {
			return err
		}
		subscription.SubscriptionNumber = number

		lines, err = s.pricer.Price(ctx, tx, orgID, subscription.ID, inputs)
		if err != nil {
			return err
		}

		snapshot, discount, err := document.Redeem(ctx, tx, s.discounts, orgID, req.DiscountCode, lines, &subscription.ID, now)
		if err != nil {
			return err
		}
		subscription.DiscountSnapshot = snapshot
		subscription.Amounts = document.ComputeAmounts(lines, discount)

		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			return err
		}
		return s.items.ReplaceItems(ctx, tx, document.KindSubscription, orgID, subscription.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordDocumentCreated(ctx, string(document.KindSubscription))
	s.emitAudit(ctx, "subscription.created", subscription, nil)
	resp := toResponse(subscription, lines)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if req.PaymentTermDays != nil && *req.PaymentTermDays < 0 {
		return nil, domain.ErrInvalidPaymentTerms
	}

	var (
		subscription *domain.Subscription
		lines        []document.LineItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		subscription, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if subscription == nil {
			return domain.ErrNotFound
		}
		if document.Terminal(document.KindSubscription, subscription.Status) {
			return domain.ErrNotEditable
		}

		if req.EndDate != nil {
			end := req.EndDate.UTC()
			if end.Before(subscription.StartDate) {
				return domain.ErrInvalidPeriod
			}
			subscription.EndDate = &end
		}
		if req.PaymentTermDays != nil {
			subscription.PaymentTermDays = *req.PaymentTermDays
		}
		if req.Notes != nil {
			subscription.Notes = strings.TrimSpace(*req.Notes)
		}

		if req.Items != nil {
			lines, err = s.pricer.Price(ctx, tx, orgID, subscription.ID, *req.Items)
			if err != nil {
				return err
			}
			if err := s.items.ReplaceItems(ctx, tx, document.KindSubscription, orgID, subscription.ID, lines); err != nil {
				return err
			}
		} else {
			lines, err = s.items.ListItems(ctx, tx, document.KindSubscription, orgID, subscription.ID)
			if err != nil {
				return err
			}
		}

		discount := subscription.DiscountAmount
		if code := strings.TrimSpace(req.DiscountCode); code != "" {
			if subscription.DiscountID != nil {
				return domain.ErrDiscountApplied
			}
			snapshot, amount, err := document.Redeem(ctx, tx, s.discounts, orgID, code, lines, &subscription.ID, s.clock.Now().UTC())
			if err != nil {
				return err
			}
			subscription.DiscountSnapshot = snapshot
			discount = amount
		}

		subscription.Amounts = document.ComputeAmounts(lines, discount)
		subscription.UpdatedAt = s.clock.Now().UTC()
		return s.repo.Update(ctx, tx, subscription)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "subscription.updated", subscription, map[string]any{"item_count": len(lines)})
	resp := toResponse(subscription, lines)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	subscriptionID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	subscription, err := s.repo.FindByID(ctx, s.db, orgID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := s.items.ListItems(ctx, s.db, document.KindSubscription, orgID, subscriptionID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(subscription, lines)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Limit: req.Limit()}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.CustomerID = &id
	}
	if strings.TrimSpace(req.PlanID) != "" {
		id, err := parseID(req.PlanID, domain.ErrInvalidPlan)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.PlanID = &id
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := document.ParseStatus(document.KindSubscription, req.Status)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}

	afterID, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	filter.AfterID = afterID

	items, err := s.repo.List(ctx, s.db, orgID, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	page, pageInfo := pagination.Page(items, filter.Limit, func(item domain.Subscription) int64 { return item.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, toResponse(&page[i], nil))
	}
	return domain.ListResponse{PageInfo: pageInfo, Subscriptions: resp}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	subscriptionID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	target, err := document.ParseStatus(document.KindSubscription, status)
	if err != nil {
		return nil, err
	}

	var (
		subscription *domain.Subscription
		from         document.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		subscription, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return domain.ErrNotFound
		}
		from = subscription.Status
		if err := document.CanTransition(document.KindSubscription, from, target); err != nil {
			return err
		}
		return s.transition(ctx, tx, subscription, target)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordStatusTransition(ctx, string(document.KindSubscription), string(from), string(target))
	s.emitAudit(ctx, "subscription.status_changed", subscription, map[string]any{"from": string(from), "to": string(target)})
	return s.Get(ctx, id)
}

func (s *Service) ConfirmTx(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) error {
	subscription, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
	if err != nil {
		return err
	}
	if subscription == nil {
		return domain.ErrNotFound
	}

	switch subscription.Status {
	case document.SubscriptionConfirmed:
		return nil
	case document.SubscriptionDraft, document.SubscriptionQuotation, document.SubscriptionQuotationSent:
	default:
		return document.ErrInvalidStateTransition
	}

	from := subscription.Status
	if err := s.transition(ctx, tx, subscription, document.SubscriptionConfirmed); err != nil {
		return err
	}
	s.obsMetrics.RecordStatusTransition(ctx, string(document.KindSubscription), string(from), string(document.SubscriptionConfirmed))
	s.log.Info("subscription confirmed",
		zap.String("subscription_id", id.String()),
		zap.String("from", string(from)),
	)
	return nil
}

// transition stamps lifecycle timestamps and writes the status guarded by the previous value.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, subscription *domain.Subscription, target document.Status) error {
	now := s.clock.Now().UTC()
	from := subscription.Status

	switch target {
	case document.SubscriptionConfirmed:
		subscription.ConfirmedAt = &now
	case document.SubscriptionActive:
		subscription.ActivatedAt = &now
	case document.SubscriptionCancelled, document.SubscriptionClosed, document.SubscriptionExpired:
		subscription.EndedAt = &now
	}
	subscription.Status = target
	subscription.UpdatedAt = now

	updated, err := s.repo.UpdateStatus(ctx, tx, subscription, from)
	if err != nil {
		return err
	}
	if updated == 0 {
		return document.ErrInvalidStateTransition
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, subscription *domain.Subscription, extra map[string]any) {
	if s.auditSvc == nil || subscription == nil {
		return
	}
	metadata := map[string]any{
		"subscription_number": subscription.SubscriptionNumber,
		"customer_id":         subscription.CustomerID.String(),
		"status":              string(subscription.Status),
		"total":               subscription.Total.StringFixed(2),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := subscription.ID.String()
	orgID := subscription.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "subscription", &targetID, metadata)
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := t.UTC()
	return &value
}

func toResponse(subscription *domain.Subscription, lines []document.LineItem) domain.Response {
	resp := domain.Response{
		ID:                 subscription.ID.String(),
		OrganizationID:     subscription.OrgID.String(),
		SubscriptionNumber: subscription.SubscriptionNumber,
		CustomerID:         subscription.CustomerID.String(),
		Status:             subscription.Status,
		StartDate:          subscription.StartDate,
		EndDate:            subscription.EndDate,
		NextInvoiceDate:    subscription.NextInvoiceDate,
		PaymentTermDays:    subscription.PaymentTermDays,
		Notes:              subscription.Notes,
		DiscountCode:       subscription.DiscountCode,
		Items:              lines,
		ConfirmedAt:        subscription.ConfirmedAt,
		ActivatedAt:        subscription.ActivatedAt,
		EndedAt:            subscription.EndedAt,
		CreatedAt:          subscription.CreatedAt,
		UpdatedAt:          subscription.UpdatedAt,
		Amounts:            subscription.Amounts,
	}
	if subscription.PlanID != nil {
		value := subscription.PlanID.String()
		resp.PlanID = &value
	}
	if subscription.DiscountID != nil {
		value := subscription.DiscountID.String()
		resp.DiscountID = &value
	}
	if len(subscription.Metadata) > 0 {
		resp.Metadata = map[string]any(subscription.Metadata)
	}
	return resp
}
