package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"github.com/smallbiznis/billingcore/internal/quotation/domain"
	templatedomain "github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	sequencedomain "github.com/smallbiznis/billingcore/internal/sequence/domain"
	subscriptiondomain "github.com/smallbiznis/billingcore/internal/subscription/domain"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Policy        *config.BillingPolicyHolder
	Repo          domain.Repository
	CustomerRepo  customerdomain.Repository
	Sequence      sequencedomain.Service
	Pricer        *document.Pricer
	Items         *document.ItemStore
	Discounts     discountdomain.Evaluator
	Templates     templatedomain.Service
	Subscriptions subscriptiondomain.Service
	AuditSvc      auditdomain.Service `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	policy        *config.BillingPolicyHolder
	repo          domain.Repository
	customerRepo  customerdomain.Repository
	sequence      sequencedomain.Service
	pricer        *document.Pricer
	items         *document.ItemStore
	discounts     discountdomain.Evaluator
	templates     templatedomain.Service
	subscriptions subscriptiondomain.Service
	auditSvc      auditdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("quotation.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		policy:        p.Policy,
		repo:          p.Repo,
		customerRepo:  p.CustomerRepo,
		sequence:      p.Sequence,
		pricer:        p.Pricer,
		items:         p.Items,
		discounts:     p.Discounts,
		templates:     p.Templates,
		subscriptions: p.Subscriptions,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	return s.create(ctx, req, nil, 0)
}

func (s *Service) CreateFromTemplate(ctx context.Context, req domain.CreateFromTemplateRequest) (*domain.Response, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, domain.ErrInvalidOrganization
	}

	var (
		tmpl *templatedomain.Response
		err  error
	)
	if strings.TrimSpace(req.TemplateID) == "" {
		tmpl, err = s.templates.GetDefault(ctx)
	} else {
		tmpl, err = s.templates.Get(ctx, req.TemplateID)
	}
	if err != nil {
		return nil, err
	}

	templateID, err := parseID(tmpl.ID, domain.ErrInvalidTemplate)
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = tmpl.Notes
	}
	return s.create(ctx, domain.CreateRequest{
		CustomerID:     req.CustomerID,
		SubscriptionID: req.SubscriptionID,
		ValidUntil:     req.ValidUntil,
		Notes:          notes,
		DiscountCode:   req.DiscountCode,
		Items:          tmpl.Items,
	}, &templateID, tmpl.ValidityDays)
}

func (s *Service) create(ctx context.Context, req domain.CreateRequest, templateID *snowflake.ID, validityDays int) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}
	subscriptionID, err := s.resolveSubscription(ctx, req.SubscriptionID, customerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if validityDays <= 0 {
		validityDays = s.policy.Get().QuotationValidityDays
	}
	validUntil := now.AddDate(0, 0, validityDays)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if validUntil.Before(now) {
		return nil, domain.ErrInvalidValidUntil
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	quotation := &domain.Quotation{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		TemplateID:     templateID,
		Status:         document.QuotationDraft,
		IssueDate:      now,
		ValidUntil:     validUntil,
		Notes:          strings.TrimSpace(req.Notes),
		Terms:          strings.TrimSpace(req.Terms),
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
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

		number, err := s.sequence.Next(ctx, tx, orgID, sequencedomain.DocTypeQuotation)
		if err != nil {
			return err
		}
		quotation.QuotationNumber = number

		lines, err = s.pricer.Price(ctx, tx, orgID, quotation.ID, req.Items)
		if err != nil {
			return err
		}

		snapshot, discount, err := document.Redeem(ctx, tx, s.discounts, orgID, req.DiscountCode, lines, subscriptionID, now)
		if err != nil {
			return err
		}
		quotation.DiscountSnapshot = snapshot
		quotation.Amounts = document.ComputeAmounts(lines, discount)

		if err := s.repo.Insert(ctx, tx, quotation); err != nil {
			return err
		}
		return s.items.ReplaceItems(ctx, tx, document.KindQuotation, orgID, quotation.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordDocumentCreated(ctx, string(document.KindQuotation))
	s.emitAudit(ctx, "quotation.created", quotation, nil)
	resp := toResponse(quotation, lines)
	return &resp, nil
}

// resolveSubscription checks that a linked subscription exists and belongs to the customer.
func (s *Service) resolveSubscription(ctx context.Context, raw string, customerID snowflake.ID) (*snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, domain.ErrInvalidSubscription)
	if err != nil {
		return nil, err
	}
	subscription, err := s.subscriptions.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if subscription.CustomerID != customerID.String() {
		return nil, domain.ErrSubscriptionMismatch
	}
	return &id, nil
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

	var (
		quotation *domain.Quotation
		lines     []document.LineItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quotation, err = s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quotation == nil {
			return domain.ErrNotFound
		}
		if quotation.Status != document.QuotationDraft {
			return domain.ErrNotEditable
		}

		if req.ValidUntil != nil {
			validUntil := req.ValidUntil.UTC()
			if validUntil.Before(quotation.IssueDate) {
				return domain.ErrInvalidValidUntil
			}
			quotation.ValidUntil = validUntil
		}
		if req.Notes != nil {
			quotation.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Terms != nil {
			quotation.Terms = strings.TrimSpace(*req.Terms)
		}

		if req.Items != nil {
			lines, err = s.pricer.Price(ctx, tx, orgID, quotation.ID, *req.Items)
			if err != nil {
				return err
			}
			if err := s.items.ReplaceItems(ctx, tx, document.KindQuotation, orgID, quotation.ID, lines); err != nil {
				return err
			}
		} else {
			lines, err = s.items.ListItems(ctx, tx, document.KindQuotation, orgID, quotation.ID)
			if err != nil {
				return err
			}
		}

		discount := quotation.DiscountAmount
		if code := strings.TrimSpace(req.DiscountCode); code != "" {
			if quotation.DiscountID != nil {
				return domain.ErrDiscountApplied
			}
			snapshot, amount, err := document.Redeem(ctx, tx, s.discounts, orgID, code, lines, quotation.SubscriptionID, s.clock.Now().UTC())
			if err != nil {
				return err
			}
			quotation.DiscountSnapshot = snapshot
			discount = amount
		}

		quotation.Amounts = document.ComputeAmounts(lines, discount)
		quotation.UpdatedAt = s.clock.Now().UTC()
		return s.repo.Update(ctx, tx, quotation)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "quotation.updated", quotation, map[string]any{"item_count": len(lines)})
	resp := toResponse(quotation, lines)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	quotationID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	quotation, err := s.repo.FindByID(ctx, s.db, orgID, quotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := s.items.ListItems(ctx, s.db, document.KindQuotation, orgID, quotationID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(quotation, lines)
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
	if strings.TrimSpace(req.SubscriptionID) != "" {
		id, err := parseID(req.SubscriptionID, domain.ErrInvalidSubscription)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.SubscriptionID = &id
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := document.ParseStatus(document.KindQuotation, req.Status)
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

	page, pageInfo := pagination.Page(items, filter.Limit, func(item domain.Quotation) int64 { return item.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, toResponse(&page[i], nil))
	}
	return domain.ListResponse{PageInfo: pageInfo, Quotations: resp}, nil
}

func (s *Service) Send(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.QuotationSent, func(q *domain.Quotation, now time.Time) {
		q.SentAt = &now
	}, nil)
}

// Accept records the customer's acceptance and confirms the linked subscription in the same transaction.
func (s *Service) Accept(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.QuotationAccepted, func(q *domain.Quotation, now time.Time) {
		q.RespondedAt = &now
	}, func(tx *gorm.DB, q *domain.Quotation) error {
		if q.SubscriptionID == nil {
			return nil
		}
		return s.subscriptions.ConfirmTx(ctx, tx, q.OrgID, *q.SubscriptionID)
	})
}

func (s *Service) Reject(ctx context.Context, id string, reason string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.QuotationRejected, func(q *domain.Quotation, now time.Time) {
		q.RespondedAt = &now
		q.Notes = document.Annotate(q.Notes, "REJECTED", reason)
	}, nil)
}

func (s *Service) Expire(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.QuotationExpired, nil, nil)
}

func (s *Service) changeStatus(
	ctx context.Context,
	id string,
	target document.Status,
	stamp func(q *domain.Quotation, now time.Time),
	within func(tx *gorm.DB, q *domain.Quotation) error,
) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	quotationID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var (
		quotation *domain.Quotation
		from      document.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quotation, err = s.repo.FindByID(ctx, tx, orgID, quotationID)
		if err != nil {
			return err
		}
		if quotation == nil {
			return domain.ErrNotFound
		}
		from = quotation.Status
		if err := document.CanTransition(document.KindQuotation, from, target); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if stamp != nil {
			stamp(quotation, now)
		}
		quotation.Status = target
		quotation.UpdatedAt = now

		updated, err := s.repo.UpdateStatus(ctx, tx, quotation, from)
		if err != nil {
			return err
		}
		if updated == 0 {
			return document.ErrInvalidStateTransition
		}
		if within != nil {
			return within(tx, quotation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordStatusTransition(ctx, string(document.KindQuotation), string(from), string(target))
	s.emitAudit(ctx, "quotation.status_changed", quotation, map[string]any{"from": string(from), "to": string(target)})
	return s.Get(ctx, id)
}

func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}

	now := s.clock.Now().UTC()
	var (
		ids     []snowflake.ID
		expired int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ids, err = s.repo.ListStale(ctx, tx, orgID, now)
		if err != nil {
			return err
		}
		expired, err = s.repo.ExpireStale(ctx, tx, orgID, ids, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.obsMetrics.RecordStatusTransition(ctx, string(document.KindQuotation), string(document.QuotationSent), string(document.QuotationExpired))
		targetID := id.String()
		if s.auditSvc != nil {
			_ = s.auditSvc.AuditLog(ctx, &orgID, "system", nil, "quotation.expired", "quotation", &targetID, map[string]any{
				"from": string(document.QuotationSent),
				"to":   string(document.QuotationExpired),
			})
		}
	}
	if expired > 0 {
		s.log.Info("expired stale quotations",
			zap.String("org_id", orgID.String()),
			zap.Int64("count", expired),
		)
	}
	return expired, nil
}

func (s *Service) StaleOrganizations(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.StaleOrgIDs(ctx, s.db, s.clock.Now().UTC())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	quotationID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	var deleted *domain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotation, err := s.repo.FindByID(ctx, tx, orgID, quotationID)
		if err != nil {
			return err
		}
		if quotation == nil {
			return domain.ErrNotFound
		}
		if quotation.Status == document.QuotationAccepted {
			return domain.ErrAccepted
		}
		removed, err := s.repo.Delete(ctx, tx, orgID, quotationID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return domain.ErrAccepted
		}
		deleted = quotation
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "quotation.deleted", deleted, nil)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, quotation *domain.Quotation, extra map[string]any) {
	if s.auditSvc == nil || quotation == nil {
		return
	}
	metadata := map[string]any{
		"quotation_number": quotation.QuotationNumber,
		"customer_id":      quotation.CustomerID.String(),
		"status":           string(quotation.Status),
		"total":            quotation.Total.StringFixed(2),
	}
	if quotation.SubscriptionID != nil {
		metadata["subscription_id"] = quotation.SubscriptionID.String()
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := quotation.ID.String()
	orgID := quotation.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "quotation", &targetID, metadata)
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func toResponse(quotation *domain.Quotation, lines []document.LineItem) domain.Response {
	resp := domain.Response{
		ID:              quotation.ID.String(),
		OrganizationID:  quotation.OrgID.String(),
		QuotationNumber: quotation.QuotationNumber,
		CustomerID:      quotation.CustomerID.String(),
		Status:          quotation.Status,
		IssueDate:       quotation.IssueDate,
		ValidUntil:      quotation.ValidUntil,
		SentAt:          quotation.SentAt,
		RespondedAt:     quotation.RespondedAt,
		Notes:           quotation.Notes,
		Terms:           quotation.Terms,
		DiscountCode:    quotation.DiscountCode,
		Items:           lines,
		CreatedAt:       quotation.CreatedAt,
		UpdatedAt:       quotation.UpdatedAt,
		Amounts:         quotation.Amounts,
	}
	if quotation.SubscriptionID != nil {
		value := quotation.SubscriptionID.String()
		resp.SubscriptionID = &value
	}
	if quotation.TemplateID != nil {
		value := quotation.TemplateID.String()
		resp.TemplateID = &value
	}
	if len(quotation.Metadata) > 0 {
		resp.Metadata = map[string]any(quotation.Metadata)
	}
	return resp
}
