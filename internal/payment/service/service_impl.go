package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	"github.com/smallbiznis/billingcore/internal/money"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"github.com/smallbiznis/billingcore/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/billingcore/internal/sequence/domain"
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
	Invoices     invoicedomain.Repository
	CustomerRepo customerdomain.Repository
	Sequence     sequencedomain.Service
	Ledger       ledgerdomain.Service
	AuditSvc     auditdomain.Service `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	invoices     invoicedomain.Repository
	customerRepo customerdomain.Repository
	sequence     sequencedomain.Service
	ledger       ledgerdomain.Service
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		invoices:     p.Invoices,
		customerRepo: p.CustomerRepo,
		sequence:     p.Sequence,
		ledger:       p.Ledger,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	amount := money.Round(req.Amount)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	var invoiceID, customerID *snowflake.ID
	if strings.TrimSpace(req.InvoiceID) != "" {
		id, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
		if err != nil {
			return nil, err
		}
		invoiceID = &id
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return nil, err
		}
		customerID = &id
	}
	if invoiceID == nil && customerID == nil {
		return nil, domain.ErrCustomerRequired
	}

	now := s.clock.Now().UTC()
	paidAt := now
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	payment := &domain.Payment{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    method,
		Status:    domain.StatusPending,
		Reference: strings.TrimSpace(req.Reference),
		Notes:     strings.TrimSpace(req.Notes),
		PaidAt:    paidAt,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if invoiceID != nil {
			linked, err := s.invoices.FindByID(ctx, tx, orgID, *invoiceID)
			if err != nil {
				return err
			}
			if linked == nil {
				return domain.ErrInvoiceNotFound
			}
			if customerID != nil && *customerID != linked.CustomerID {
				return domain.ErrCustomerMismatch
			}
			payment.CustomerID = linked.CustomerID
		} else {
			customer, err := s.customerRepo.FindByID(ctx, tx, orgID, *customerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return domain.ErrCustomerNotFound
			}
			payment.CustomerID = customer.ID
		}

		number, err := s.sequence.Next(ctx, tx, orgID, sequencedomain.DocTypePayment)
		if err != nil {
			return err
		}
		payment.PaymentNumber = number

		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}
		if req.Pending {
			return nil
		}

		invoice, err = s.settle(ctx, tx, payment, now)
		if err != nil {
			return err
		}
		updated, err := s.repo.UpdateStatus(ctx, tx, payment, domain.StatusPending)
		if err != nil {
			return err
		}
		if updated == 0 {
			return domain.ErrNotPending
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOverpayment) {
			s.obsMetrics.RecordOverpaymentRejected(ctx)
		}
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	s.emitAudit(ctx, "payment.recorded", payment, nil)
	return toResponse(payment, invoice), nil
}

// settle completes a payment and applies it to its invoice under the overpayment guard.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, payment *domain.Payment, now time.Time) (*invoicedomain.Invoice, error) {
	payment.Status = domain.StatusCompleted
	payment.CompletedAt = &now
	payment.UpdatedAt = now

	var invoice *invoicedomain.Invoice
	if payment.InvoiceID != nil {
		current, err := s.invoices.FindByIDForUpdate(ctx, tx, payment.OrgID, *payment.InvoiceID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrInvoiceNotFound
		}
		if !current.Payable() {
			return nil, domain.ErrInvoiceNotPayable
		}

		next, ok := current.ReceivePayment(payment.Amount, now)
		if !ok {
			return nil, domain.ErrOverpayment
		}
		applied, err := s.invoices.UpdatePaymentState(ctx, tx, current, next, now)
		if err != nil {
			return nil, err
		}
		if applied == 0 {
			return nil, domain.ErrOverpayment
		}

		invoice, err = s.invoices.FindByID(ctx, tx, payment.OrgID, current.ID)
		if err != nil {
			return nil, err
		}
	}

	_, err := s.ledger.PostTx(ctx, tx, ledgerdomain.PostRequest{
		OrgID:      payment.OrgID,
		SourceType: ledgerdomain.SourcePayment,
		SourceID:   payment.ID,
		Currency:   currencyOf(invoice),
		OccurredAt: now,
		Postings: []ledgerdomain.Posting{
			{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: payment.Amount},
			{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Credit, Amount: payment.Amount},
		},
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) Complete(ctx context.Context, id string) (*domain.Response, error) {
	var invoice *invoicedomain.Invoice
	payment, err := s.transition(ctx, id, func(tx *gorm.DB, payment *domain.Payment, now time.Time) error {
		if payment.Status != domain.StatusPending {
			return domain.ErrNotPending
		}
		var err error
		invoice, err = s.settle(ctx, tx, payment, now)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrOverpayment) {
			s.obsMetrics.RecordOverpaymentRejected(ctx)
		}
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	s.emitAudit(ctx, "payment.completed", payment, nil)
	return toResponse(payment, invoice), nil
}

func (s *Service) Fail(ctx context.Context, id string) (*domain.Response, error) {
	payment, err := s.transition(ctx, id, func(_ *gorm.DB, payment *domain.Payment, now time.Time) error {
		if payment.Status != domain.StatusPending {
			return domain.ErrNotPending
		}
		payment.Status = domain.StatusFailed
		payment.FailedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(payment.Method), string(payment.Status))
	s.emitAudit(ctx, "payment.failed", payment, nil)
	return toResponse(payment, nil), nil
}

// PayInvoiceBalance records a completed payment for whatever is still owed on the invoice.
func (s *Service) PayInvoiceBalance(ctx context.Context, req domain.PayBalanceRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	invoiceID, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	balance := invoice.Balance()
	if !balance.IsPositive() {
		return nil, domain.ErrNothingDue
	}

	return s.Record(ctx, domain.RecordRequest{
		InvoiceID: req.InvoiceID,
		Amount:    balance,
		Method:    req.Method,
		Reference: req.Reference,
	})
}

// Refund reverses a completed payment and gives the amount back to the invoice balance.
func (s *Service) Refund(ctx context.Context, req domain.RefundRequest) (*domain.Response, error) {
	var invoice *invoicedomain.Invoice
	payment, err := s.transition(ctx, req.ID, func(tx *gorm.DB, payment *domain.Payment, now time.Time) error {
		switch payment.Status {
		case domain.StatusRefunded:
			return domain.ErrAlreadyRefunded
		case domain.StatusCompleted:
		default:
			return domain.ErrNotRefundable
		}

		payment.Status = domain.StatusRefunded
		payment.RefundedAt = &now
		payment.Notes = document.Annotate(payment.Notes, "REFUNDED", req.Reason)

		if payment.InvoiceID != nil {
			current, err := s.invoices.FindByIDForUpdate(ctx, tx, payment.OrgID, *payment.InvoiceID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrInvoiceNotFound
			}
			next, ok := current.ReturnPayment(payment.Amount)
			if !ok {
				return domain.ErrNotRefundable
			}
			reversed, err := s.invoices.UpdatePaymentState(ctx, tx, current, next, now)
			if err != nil {
				return err
			}
			if reversed == 0 {
				return domain.ErrNotRefundable
			}
			invoice, err = s.invoices.FindByID(ctx, tx, payment.OrgID, *payment.InvoiceID)
			if err != nil {
				return err
			}
		}

		_, err := s.ledger.PostTx(ctx, tx, ledgerdomain.PostRequest{
			OrgID:      payment.OrgID,
			SourceType: ledgerdomain.SourceRefund,
			SourceID:   payment.ID,
			Currency:   currencyOf(invoice),
			OccurredAt: now,
			Postings: []ledgerdomain.Posting{
				{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: payment.Amount},
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Credit, Amount: payment.Amount},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordRefund(ctx, string(payment.Method))
	s.emitAudit(ctx, "payment.refunded", payment, map[string]any{"reason": strings.TrimSpace(req.Reason)})
	return toResponse(payment, invoice), nil
}

// transition locks the payment, lets mutate change it and persists the result guarded on the prior status.
func (s *Service) transition(ctx context.Context, id string, mutate func(tx *gorm.DB, payment *domain.Payment, now time.Time) error) (*domain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	paymentID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		from := payment.Status
		now := s.clock.Now().UTC()
		if err := mutate(tx, payment, now); err != nil {
			return err
		}
		payment.UpdatedAt = now

		updated, err := s.repo.UpdateStatus(ctx, tx, payment, from)
		if err != nil {
			return err
		}
		if updated == 0 {
			return domain.ErrNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Delete erases a payment that never moved money. Completed payments must be refunded instead.
func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	paymentID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if payment.Status == domain.StatusCompleted {
			return domain.ErrPaymentCompleted
		}

		deleted, err := s.repo.Delete(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.ErrPaymentCompleted
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "payment.deleted", payment, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	paymentID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(payment, nil), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Limit: req.Limit()}
	if strings.TrimSpace(req.InvoiceID) != "" {
		id, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.InvoiceID = &id
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.CustomerID = &id
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Method) != "" {
		method, err := domain.ParseMethod(req.Method)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Method = method
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

	page, pageInfo := pagination.Page(items, filter.Limit, func(item domain.Payment) int64 { return item.ID.Int64() })
	resp := make([]domain.Response, 0, len(page))
	for i := range page {
		resp = append(resp, *toResponse(&page[i], nil))
	}
	return domain.ListResponse{PageInfo: pageInfo, Payments: resp}, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, payment *domain.Payment, extra map[string]any) {
	if s.auditSvc == nil || payment == nil {
		return
	}
	metadata := map[string]any{
		"payment_number": payment.PaymentNumber,
		"customer_id":    payment.CustomerID.String(),
		"amount":         payment.Amount.StringFixed(2),
		"method":         string(payment.Method),
		"status":         string(payment.Status),
	}
	if payment.InvoiceID != nil {
		metadata["invoice_id"] = payment.InvoiceID.String()
	}
	for key, value := range extra {
		metadata[key] = value
	}

	targetID := payment.ID.String()
	orgID := payment.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "payment", &targetID, metadata)
}

func currencyOf(invoice *invoicedomain.Invoice) string {
	if invoice == nil || invoice.Currency == "" {
		return "USD"
	}
	return invoice.Currency
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func toResponse(payment *domain.Payment, invoice *invoicedomain.Invoice) *domain.Response {
	resp := &domain.Response{
		ID:             payment.ID.String(),
		OrganizationID: payment.OrgID.String(),
		PaymentNumber:  payment.PaymentNumber,
		CustomerID:     payment.CustomerID.String(),
		Amount:         payment.Amount,
		Method:         payment.Method,
		Status:         payment.Status,
		Reference:      payment.Reference,
		Notes:          payment.Notes,
		PaidAt:         payment.PaidAt,
		CompletedAt:    payment.CompletedAt,
		FailedAt:       payment.FailedAt,
		RefundedAt:     payment.RefundedAt,
		CreatedAt:      payment.CreatedAt,
		UpdatedAt:      payment.UpdatedAt,
	}
	if payment.InvoiceID != nil {
		value := payment.InvoiceID.String()
		resp.InvoiceID = &value
	}
	if len(payment.Metadata) > 0 {
		resp.Metadata = map[string]any(payment.Metadata)
	}
	if invoice != nil {
		resp.Invoice = &domain.InvoiceState{
			Status:     invoice.Status,
			AmountPaid: invoice.AmountPaid.StringFixed(2),
			Balance:    invoice.Balance().StringFixed(2),
			PaidAt:     invoice.PaidAt,
		}
	}
	return resp
}

