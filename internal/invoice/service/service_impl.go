package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/invoice/domain"
	"github.com/smallbiznis/billingcore/internal/invoice/render"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
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
	Subscriptions subscriptiondomain.Service
	Quotations    quotationdomain.Service
	Ledger        ledgerdomain.Service
	Renderer      *render.Renderer
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
	subscriptions subscriptiondomain.Service
	quotations    quotationdomain.Service
	ledger        ledgerdomain.Service
	renderer      *render.Renderer
	auditSvc      auditdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		policy:        p.Policy,
		repo:          p.Repo,
		customerRepo:  p.CustomerRepo,
		sequence:      p.Sequence,
		pricer:        p.Pricer,
		items:         p.Items,
		discounts:     p.Discounts,
		subscriptions: p.Subscriptions,
		quotations:    p.Quotations,
		ledger:        p.Ledger,
		renderer:      p.Renderer,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
	}
}

// draft is a validated creation request.
type draft struct {
	customerID     snowflake.ID
	subscriptionID *snowflake.ID
	quotationID    *snowflake.ID
	currency       string
	issueDate      *time.Time
	dueDate        *time.Time
	termDays       int
	notes          string
	discountCode   string
	inputs         []document.ItemInput
	metadata       map[string]any

	// frozen carries a discount already redeemed by the billed subscription.
	frozen       *document.DiscountSnapshot
	frozenAmount decimal.Decimal
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, domain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}

	d := draft{
		customerID:   customerID,
		currency:     req.Currency,
		issueDate:    req.IssueDate,
		dueDate:      req.DueDate,
		notes:        req.Notes,
		discountCode: req.DiscountCode,
		inputs:       req.Items,
		metadata:     req.Metadata,
	}

	if strings.TrimSpace(req.SubscriptionID) != "" {
		id, err := parseID(req.SubscriptionID, domain.ErrInvalidSubscription)
		if err != nil {
			return nil, err
		}
		subscription, err := s.subscriptions.Get(ctx, id.String())
		if err != nil {
			return nil, err
		}
		if subscription.CustomerID != customerID.String() {
			return nil, domain.ErrCustomerMismatch
		}
		d.subscriptionID = &id
	}

	if strings.TrimSpace(req.QuotationID) != "" {
		id, err := parseID(req.QuotationID, domain.ErrInvalidQuotation)
		if err != nil {
			return nil, err
		}
		quotation, err := s.quotations.Get(ctx, id.String())
		if err != nil {
			return nil, err
		}
		if quotation.CustomerID != customerID.String() {
			return nil, domain.ErrCustomerMismatch
		}
		d.quotationID = &id
	}

	return s.create(ctx, d)
}

func (s *Service) CreateFromSubscription(ctx context.Context, req domain.CreateFromSubscriptionRequest) (*domain.Response, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, domain.ErrInvalidOrganization
	}

	subscriptionID, err := parseID(req.SubscriptionID, domain.ErrInvalidSubscription)
	if err != nil {
		return nil, err
	}
	subscription, err := s.subscriptions.Get(ctx, subscriptionID.String())
	if err != nil {
		return nil, err
	}
	if subscription.Status != document.SubscriptionConfirmed && subscription.Status != document.SubscriptionActive {
		return nil, domain.ErrSubscriptionNotBillable
	}

	customerID, err := parseID(subscription.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}

	inputs := lo.Map(subscription.Items, func(item document.LineItem, _ int) document.ItemInput {
		unitPrice := item.UnitPrice
		input := document.ItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   &unitPrice,
		}
		if item.ProductID != nil {
			input.ProductID = item.ProductID.String()
		}
		if item.VariantID != nil {
			input.VariantID = item.VariantID.String()
		}
		return input
	})

	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = "Billing for subscription " + subscription.SubscriptionNumber
	}

	d := draft{
		customerID:     customerID,
		subscriptionID: &subscriptionID,
		issueDate:      req.IssueDate,
		dueDate:        req.DueDate,
		termDays:       subscription.PaymentTermDays,
		notes:          notes,
		inputs:         inputs,
		metadata:       map[string]any{"subscription_number": subscription.SubscriptionNumber},
	}
	if subscription.DiscountID != nil {
		discountID, err := snowflake.ParseString(*subscription.DiscountID)
		if err == nil {
			d.frozen = &document.DiscountSnapshot{DiscountID: &discountID, DiscountCode: subscription.DiscountCode}
			d.frozenAmount = subscription.DiscountAmount
		}
	}

	return s.create(ctx, d)
}

func (s *Service) create(ctx context.Context, d draft) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	policy := s.policy.Get()
	now := s.clock.Now().UTC()

	currency := strings.ToUpper(strings.TrimSpace(d.currency))
	if currency == "" {
		currency = strings.ToUpper(policy.Currency)
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	issueDate := now
	if d.issueDate != nil {
		issueDate = d.issueDate.UTC()
	}
	termDays := policy.InvoiceDueDays
	if d.termDays > 0 {
		termDays = d.termDays
	}
	dueDate := issueDate.AddDate(0, 0, termDays)
	if d.dueDate != nil {
		dueDate = d.dueDate.UTC()
	}
	if dueDate.Before(issueDate) {
		return nil, domain.ErrInvalidDueDate
	}

	metadata := datatypes.JSONMap{}
	for key, value := range d.metadata {
		metadata[key] = value
	}

	invoice := &domain.Invoice{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		CustomerID:     d.customerID,
		SubscriptionID: d.subscriptionID,
		QuotationID:    d.quotationID,
		Status:         document.InvoiceDraft,
		Currency:       currency,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Notes:          strings.TrimSpace(d.notes),
		AmountPaid:     decimal.Zero,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var (
		lines []document.LineItem
		taxes []domain.InvoiceItemTax
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, orgID, d.customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		number, err := s.sequence.Next(ctx, tx, orgID, sequencedomain.DocTypeInvoice)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		lines, err = s.pricer.Price(ctx, tx, orgID, invoice.ID, d.inputs)
		if err != nil {
			return err
		}

		discount := decimal.Zero
		if d.frozen != nil {
			invoice.DiscountSnapshot = *d.frozen
			discount = d.frozenAmount
		} else {
			snapshot, amount, err := document.Redeem(ctx, tx, s.discounts, orgID, d.discountCode, lines, d.subscriptionID, now)
			if err != nil {
				return err
			}
			invoice.DiscountSnapshot = snapshot
			discount = amount
		}
		invoice.Amounts = document.ComputeAmounts(lines, discount)

		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return err
		}
		taxes, err = s.replaceItems(ctx, tx, invoice, lines)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordDocumentCreated(ctx, string(document.KindInvoice))
	s.emitAudit(ctx, "invoice.created", invoice, nil)
	resp := s.toResponse(invoice, lines, taxes, nil)
	return &resp, nil
}

// replaceItems swaps the line items of the invoice together with the tax rows each line was priced with.
func (s *Service) replaceItems(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, lines []document.LineItem) ([]domain.InvoiceItemTax, error) {
	if err := s.items.ReplaceItems(ctx, tx, document.KindInvoice, invoice.OrgID, invoice.ID, lines); err != nil {
		return nil, err
	}

	var taxes []domain.InvoiceItemTax
	for _, line := range lines {
		for _, applied := range line.Taxes {
			taxes = append(taxes, domain.InvoiceItemTax{
				ID:            s.genID.Generate(),
				OrgID:         invoice.OrgID,
				InvoiceID:     invoice.ID,
				InvoiceItemID: line.ID,
				TaxID:         snowflake.ID(applied.Rule.ID),
				TaxName:       applied.Rule.Name,
				TaxType:       applied.Rule.Type,
				Rate:          applied.Rule.Rate,
				Amount:        applied.Amount,
				CreatedAt:     invoice.UpdatedAt,
			})
		}
	}
	if err := s.repo.ReplaceItemTaxes(ctx, tx, invoice.OrgID, invoice.ID, taxes); err != nil {
		return nil, err
	}
	return taxes, nil
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
		invoice *domain.Invoice
		lines   []document.LineItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status != document.InvoiceDraft {
			return domain.ErrNotEditable
		}

		if req.DueDate != nil {
			dueDate := req.DueDate.UTC()
			if dueDate.Before(invoice.IssueDate) {
				return domain.ErrInvalidDueDate
			}
			invoice.DueDate = dueDate
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}

		if req.Items != nil {
			lines, err = s.pricer.Price(ctx, tx, orgID, invoice.ID, *req.Items)
			if err != nil {
				return err
			}
			if _, err := s.replaceItems(ctx, tx, invoice, lines); err != nil {
				return err
			}
		} else {
			lines, err = s.items.ListItems(ctx, tx, document.KindInvoice, orgID, invoice.ID)
			if err != nil {
				return err
			}
		}

		discount := invoice.DiscountAmount
		if code := strings.TrimSpace(req.DiscountCode); code != "" {
			if invoice.DiscountID != nil {
				return domain.ErrDiscountApplied
			}
			snapshot, amount, err := document.Redeem(ctx, tx, s.discounts, orgID, code, lines, invoice.SubscriptionID, s.clock.Now().UTC())
			if err != nil {
				return err
			}
			invoice.DiscountSnapshot = snapshot
			discount = amount
		}

		invoice.Amounts = document.ComputeAmounts(lines, discount)
		invoice.UpdatedAt = s.clock.Now().UTC()
		return s.repo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "invoice.updated", invoice, map[string]any{"item_count": len(lines)})
	return s.Get(ctx, req.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	invoiceID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := s.items.ListItems(ctx, s.db, document.KindInvoice, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	taxes, err := s.repo.ListItemTaxes(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(invoice, lines, taxes, payments)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Limit: req.Limit(), Now: s.clock.Now().UTC()}
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
		status, err := document.ParseStatus(document.KindInvoice, req.Status)
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

	page, pageInfo := pagination.Page(items, filter.Limit, func(item domain.Invoice) int64 { return item.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, s.toResponse(&page[i], nil, nil, nil))
	}
	return domain.ListResponse{PageInfo: pageInfo, Invoices: resp}, nil
}

func (s *Service) ListOverdue(ctx context.Context) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	invoices, err := s.repo.ListOverdue(ctx, s.db, orgID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(invoice domain.Invoice, _ int) domain.Response {
		return s.toResponse(&invoice, nil, nil, nil)
	}), nil
}

// Send issues the invoice and posts the receivable to the ledger.
func (s *Service) Send(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.InvoiceSent, func(invoice *domain.Invoice, now time.Time) error {
		invoice.SentAt = &now
		return nil
	}, func(tx *gorm.DB, invoice *domain.Invoice, _ document.Status) error {
		return s.postIssued(ctx, tx, invoice)
	})
}

// Cancel voids an invoice no money was received for and reverses its receivable.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.InvoiceCancelled, func(invoice *domain.Invoice, now time.Time) error {
		if invoice.AmountPaid.IsPositive() {
			return domain.ErrHasPayments
		}
		invoice.CancelledAt = &now
		return nil
	}, func(tx *gorm.DB, invoice *domain.Invoice, from document.Status) error {
		if from == document.InvoiceDraft {
			return nil
		}
		return s.postCancelled(ctx, tx, invoice)
	})
}

func (s *Service) MarkOverdue(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.InvoiceOverdue, nil, nil)
}

func (s *Service) MarkRefunded(ctx context.Context, id string) (*domain.Response, error) {
	return s.changeStatus(ctx, id, document.InvoiceRefunded, func(invoice *domain.Invoice, now time.Time) error {
		invoice.RefundedAt = &now
		return nil
	}, nil)
}

func (s *Service) changeStatus(
	ctx context.Context,
	id string,
	target document.Status,
	prepare func(invoice *domain.Invoice, now time.Time) error,
	within func(tx *gorm.DB, invoice *domain.Invoice, from document.Status) error,
) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	invoiceID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var (
		invoice *domain.Invoice
		from    document.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		from = invoice.Status
		if err := document.CanTransition(document.KindInvoice, from, target); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if prepare != nil {
			if err := prepare(invoice, now); err != nil {
				return err
			}
		}
		invoice.Status = target
		invoice.UpdatedAt = now

		updated, err := s.repo.UpdateStatus(ctx, tx, invoice, from)
		if err != nil {
			return err
		}
		if updated == 0 {
			return document.ErrInvalidStateTransition
		}
		if within != nil {
			return within(tx, invoice, from)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordStatusTransition(ctx, string(document.KindInvoice), string(from), string(target))
	s.emitAudit(ctx, "invoice.status_changed", invoice, map[string]any{"from": string(from), "to": string(target)})
	return s.Get(ctx, id)
}

func (s *Service) postIssued(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	postings := issuedPostings(invoice)
	if len(postings) == 0 {
		return nil
	}
	_, err := s.ledger.PostTx(ctx, tx, ledgerdomain.PostRequest{
		OrgID:      invoice.OrgID,
		SourceType: ledgerdomain.SourceInvoiceIssued,
		SourceID:   invoice.ID,
		Currency:   invoice.Currency,
		OccurredAt: lo.FromPtrOr(invoice.SentAt, invoice.UpdatedAt),
		Postings:   postings,
	})
	return err
}

func (s *Service) postCancelled(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	postings := lo.Map(issuedPostings(invoice), func(posting ledgerdomain.Posting, _ int) ledgerdomain.Posting {
		if posting.Direction == ledgerdomain.Debit {
			posting.Direction = ledgerdomain.Credit
		} else {
			posting.Direction = ledgerdomain.Debit
		}
		return posting
	})
	if len(postings) == 0 {
		return nil
	}
	_, err := s.ledger.PostTx(ctx, tx, ledgerdomain.PostRequest{
		OrgID:      invoice.OrgID,
		SourceType: ledgerdomain.SourceInvoiceCancelled,
		SourceID:   invoice.ID,
		Currency:   invoice.Currency,
		OccurredAt: lo.FromPtrOr(invoice.CancelledAt, invoice.UpdatedAt),
		Postings:   postings,
	})
	return err
}

// issuedPostings debits the receivable and discounts given, and credits revenue and tax payable.
func issuedPostings(invoice *domain.Invoice) []ledgerdomain.Posting {
	postings := []ledgerdomain.Posting{
		{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: invoice.Total},
		{Account: ledgerdomain.AccountDiscounts, Direction: ledgerdomain.Debit, Amount: invoice.DiscountAmount},
		{Account: ledgerdomain.AccountRevenue, Direction: ledgerdomain.Credit, Amount: invoice.Subtotal},
		{Account: ledgerdomain.AccountTaxPayable, Direction: ledgerdomain.Credit, Amount: invoice.Tax},
	}
	return lo.Filter(postings, func(posting ledgerdomain.Posting, _ int) bool {
		return posting.Amount.IsPositive()
	})
}

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	customerID, err := parseID(invoice.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, orgID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrCustomerNotFound
	}

	return s.renderer.Render(toDocument(invoice, customer))
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *domain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"customer_id":    invoice.CustomerID.String(),
		"status":         string(invoice.Status),
		"total":          invoice.Total.StringFixed(2),
		"amount_paid":    invoice.AmountPaid.StringFixed(2),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := invoice.ID.String()
	orgID := invoice.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "invoice", &targetID, metadata)
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func (s *Service) toResponse(invoice *domain.Invoice, lines []document.LineItem, taxes []domain.InvoiceItemTax, payments []domain.PaymentSummary) domain.Response {
	now := s.clock.Now().UTC()
	status := invoice.EffectiveStatus(now)

	resp := domain.Response{
		ID:             invoice.ID.String(),
		OrganizationID: invoice.OrgID.String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		CustomerID:     invoice.CustomerID.String(),
		Status:         status,
		StoredStatus:   invoice.Status,
		Currency:       invoice.Currency,
		IssueDate:      invoice.IssueDate,
		DueDate:        invoice.DueDate,
		SentAt:         invoice.SentAt,
		PaidAt:         invoice.PaidAt,
		CancelledAt:    invoice.CancelledAt,
		RefundedAt:     invoice.RefundedAt,
		Notes:          invoice.Notes,
		DiscountCode:   invoice.DiscountCode,
		AmountPaid:     invoice.AmountPaid.StringFixed(2),
		Balance:        invoice.Balance().StringFixed(2),
		Items:          lines,
		ItemTaxes:      taxes,
		Payments:       payments,
		CreatedAt:      invoice.CreatedAt,
		UpdatedAt:      invoice.UpdatedAt,
		Amounts:        invoice.Amounts,
	}
	if status == document.InvoiceOverdue && invoice.DueDate.Before(now) {
		resp.DaysOverdue = int(now.Sub(invoice.DueDate).Hours() / 24)
	}
	if invoice.SubscriptionID != nil {
		value := invoice.SubscriptionID.String()
		resp.SubscriptionID = &value
	}
	if invoice.QuotationID != nil {
		value := invoice.QuotationID.String()
		resp.QuotationID = &value
	}
	if len(invoice.Metadata) > 0 {
		resp.Metadata = map[string]any(invoice.Metadata)
	}
	return resp
}
