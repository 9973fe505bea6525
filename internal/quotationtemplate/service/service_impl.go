package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Pricer   *document.Pricer
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	pricer   *document.Pricer
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("quotationtemplate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		pricer:   p.Pricer,
		auditSvc: p.AuditSvc,
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
	if req.ValidityDays < 0 {
		return nil, domain.ErrInvalidValidity
	}

	now := s.clock.Now().UTC()
	tmpl := &domain.QuotationTemplate{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		ValidityDays: req.ValidityDays,
		IsDefault:    req.IsDefault,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var items []domain.TemplateItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Pricing the items once rejects unknown products and mismatched variants up front.
		lines, err := s.pricer.Price(ctx, tx, orgID, tmpl.ID, req.Items)
		if err != nil {
			return err
		}
		items = make([]domain.TemplateItem, 0, len(lines))
		for i, line := range lines {
			items = append(items, domain.TemplateItem{
				ID:          line.ID,
				OrgID:       orgID,
				TemplateID:  tmpl.ID,
				Position:    line.Position,
				ProductID:   line.ProductID,
				VariantID:   line.VariantID,
				Description: strings.TrimSpace(req.Items[i].Description),
				Quantity:    line.Quantity,
				UnitPrice:   req.Items[i].UnitPrice,
				CreatedAt:   now,
			})
		}

		if req.IsDefault {
			if err := s.repo.UnsetDefault(ctx, tx, orgID); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, tmpl, items)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "quotation_template.created", tmpl, map[string]any{"item_count": len(items)})
	return toResponse(tmpl, items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListRequest{
		Name:      strings.TrimSpace(req.Name),
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i], nil))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	templateID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.repo.FindByID(ctx, s.db, orgID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, domain.ErrNotFound
	}
	return s.withItems(ctx, tmpl)
}

func (s *Service) GetDefault(ctx context.Context) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	tmpl, err := s.repo.FindDefault(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, domain.ErrNotFound
	}
	return s.withItems(ctx, tmpl)
}

func (s *Service) SetDefault(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	templateID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var tmpl *domain.QuotationTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UnsetDefault(ctx, tx, orgID); err != nil {
			return err
		}
		updated, err := s.repo.SetDefault(ctx, tx, orgID, templateID)
		if err != nil {
			return err
		}
		if updated == 0 {
			return domain.ErrNotFound
		}
		tmpl, err = s.repo.FindByID(ctx, tx, orgID, templateID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "quotation_template.default_set", tmpl, nil)
	return s.withItems(ctx, tmpl)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	templateID, err := parseID(id)
	if err != nil {
		return err
	}

	var deleted *domain.QuotationTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tmpl, err := s.repo.FindByID(ctx, tx, orgID, templateID)
		if err != nil {
			return err
		}
		if tmpl == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.Delete(ctx, tx, orgID, templateID); err != nil {
			return err
		}
		deleted = tmpl
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "quotation_template.deleted", deleted, nil)
	return nil
}

func (s *Service) withItems(ctx context.Context, tmpl *domain.QuotationTemplate) (*domain.Response, error) {
	items, err := s.repo.ListItems(ctx, s.db, tmpl.OrgID, tmpl.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(tmpl, items), nil
}

func (s *Service) emitAudit(ctx context.Context, action string, tmpl *domain.QuotationTemplate, extra map[string]any) {
	if s.auditSvc == nil || tmpl == nil {
		return
	}
	metadata := map[string]any{
		"name":          tmpl.Name,
		"is_default":    tmpl.IsDefault,
		"validity_days": tmpl.ValidityDays,
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := tmpl.ID.String()
	orgID := tmpl.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "quotation_template", &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func toResponse(tmpl *domain.QuotationTemplate, items []domain.TemplateItem) *domain.Response {
	resp := &domain.Response{
		ID:             tmpl.ID.String(),
		OrganizationID: tmpl.OrgID.String(),
		Name:           tmpl.Name,
		ValidityDays:   tmpl.ValidityDays,
		IsDefault:      tmpl.IsDefault,
		Notes:          tmpl.Notes,
		Items:          make([]document.ItemInput, 0, len(items)),
		CreatedAt:      tmpl.CreatedAt,
		UpdatedAt:      tmpl.UpdatedAt,
	}
	for _, item := range items {
		input := document.ItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		if item.ProductID != nil {
			input.ProductID = item.ProductID.String()
		}
		if item.VariantID != nil {
			input.VariantID = item.VariantID.String()
		}
		resp.Items = append(resp.Items, input)
	}
	return resp
}
