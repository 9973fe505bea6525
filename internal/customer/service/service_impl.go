package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/customer/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
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
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := s.clock.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidOrganization
	}

	afterID, err := req.AfterID()
	if err != nil {
		return domain.ListCustomerResponse{}, domain.ErrInvalidPageToken
	}
	limit := req.Limit()

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListCustomerFilter{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		AfterID:     afterID,
		Limit:       limit,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	page, pageInfo := pagination.Page(items, limit, func(c *domain.Customer) int64 { return c.ID.Int64() })

	customers := make([]domain.Customer, 0, len(page))
	for _, item := range page {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

// Statement reports the customer's open balance as of now. A stored OVERDUE invoice and an open
// invoice past its due date both count toward Overdue.
func (s *Service) Statement(ctx context.Context, req domain.GetCustomerRequest) (domain.Statement, error) {
	customer, err := s.GetByID(ctx, req)
	if err != nil {
		return domain.Statement{}, err
	}

	now := s.clock.Now().UTC()
	open := []string{
		string(document.InvoiceSent),
		string(document.InvoicePartiallyPaid),
		string(document.InvoiceOverdue),
	}
	totals, err := s.repo.StatementTotals(ctx, s.db, customer.OrgID, customer.ID, open, string(document.InvoiceOverdue), now)
	if err != nil {
		return domain.Statement{}, err
	}

	return domain.Statement{
		CustomerID:   customer.ID.String(),
		Currency:     customer.Currency,
		OpenInvoices: totals.OpenInvoices,
		Outstanding:  money.Round(totals.Outstanding),
		Overdue:      money.Round(totals.Overdue),
		TotalPaid:    money.Round(totals.TotalPaid),
		AsOf:         now,
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
