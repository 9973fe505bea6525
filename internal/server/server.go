package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/billingcore/internal/audit"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/customer"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	"github.com/smallbiznis/billingcore/internal/discount"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/invoice"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
	"github.com/smallbiznis/billingcore/internal/ledger"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	"github.com/smallbiznis/billingcore/internal/observability"
	obsmiddleware "github.com/smallbiznis/billingcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/billingcore/internal/observability/tracing"
	"github.com/smallbiznis/billingcore/internal/payment"
	paymentdomain "github.com/smallbiznis/billingcore/internal/payment/domain"
	"github.com/smallbiznis/billingcore/internal/product"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	"github.com/smallbiznis/billingcore/internal/quotation"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate"
	quotationtemplatedomain "github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	"github.com/smallbiznis/billingcore/internal/sequence"
	"github.com/smallbiznis/billingcore/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/billingcore/internal/subscription/domain"
	"github.com/smallbiznis/billingcore/internal/tax"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DomainModules are the billing services behind the HTTP API.
var DomainModules = fx.Options(
	audit.Module,
	customer.Module,
	product.Module,
	tax.Module,
	discount.Module,
	sequence.Module,
	document.Module,
	ledger.Module,
	quotationtemplate.Module,
	quotation.Module,
	subscription.Module,
	invoice.Module,
	payment.Module,
)

var Module = fx.Module("http.server",
	DomainModules,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	auditSvc             auditdomain.Service
	customerSvc          customerdomain.Service
	productSvc           productdomain.Service
	taxSvc               taxdomain.Service
	discountSvc          discountdomain.Service
	quotationTemplateSvc quotationtemplatedomain.Service
	quotationSvc         quotationdomain.Service
	subscriptionSvc      subscriptiondomain.Service
	invoiceSvc           invoicedomain.Service
	paymentSvc           paymentdomain.Service
	ledgerSvc            ledgerdomain.Service
}

type ServerParams struct {
	fx.In

	Gin                  *gin.Engine
	Cfg                  config.Config
	AuditSvc             auditdomain.Service
	CustomerSvc          customerdomain.Service
	ProductSvc           productdomain.Service
	TaxSvc               taxdomain.Service
	DiscountSvc          discountdomain.Service
	QuotationTemplateSvc quotationtemplatedomain.Service
	QuotationSvc         quotationdomain.Service
	SubscriptionSvc      subscriptiondomain.Service
	InvoiceSvc           invoicedomain.Service
	PaymentSvc           paymentdomain.Service
	LedgerSvc            ledgerdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:               p.Gin,
		cfg:                  p.Cfg,
		auditSvc:             p.AuditSvc,
		customerSvc:          p.CustomerSvc,
		productSvc:           p.ProductSvc,
		taxSvc:               p.TaxSvc,
		discountSvc:          p.DiscountSvc,
		quotationTemplateSvc: p.QuotationTemplateSvc,
		quotationSvc:         p.QuotationSvc,
		subscriptionSvc:      p.SubscriptionSvc,
		invoiceSvc:           p.InvoiceSvc,
		paymentSvc:           p.PaymentSvc,
		ledgerSvc:            p.LedgerSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", OrgContext(s.cfg.DefaultOrgID))

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.GET("/customers/:id/statement", s.GetCustomerStatement)

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/:id", s.GetProductByID)
	api.GET("/products/:id/variants", s.ListProductVariants)
	api.POST("/products/:id/variants", s.CreateProductVariant)
	api.GET("/products/:id/taxes", s.ListProductTaxes)
	api.PUT("/products/:id/taxes/:tax_id", s.AttachProductTax)
	api.DELETE("/products/:id/taxes/:tax_id", s.DetachProductTax)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.POST("/plans", s.CreatePlan)
	api.GET("/plans/:id", s.GetPlanByID)

	// -------- Taxes --------
	api.GET("/taxes", s.ListTaxes)
	api.POST("/taxes", s.CreateTax)
	api.PATCH("/taxes/:id", s.UpdateTax)
	api.POST("/taxes/:id/disable", s.DisableTax)

	// -------- Discounts --------
	api.GET("/discounts", s.ListDiscounts)
	api.POST("/discounts", s.CreateDiscount)
	api.POST("/discounts/validate", s.ValidateDiscount)
	api.GET("/discounts/:id", s.GetDiscountByID)
	api.POST("/discounts/:id/apply", s.ApplyDiscount)
	api.POST("/discounts/:id/deactivate", s.DeactivateDiscount)

	// -------- Quotation Templates --------
	api.GET("/quotation-templates", s.ListQuotationTemplates)
	api.POST("/quotation-templates", s.CreateQuotationTemplate)
	api.GET("/quotation-templates/:id", s.GetQuotationTemplateByID)
	api.POST("/quotation-templates/:id/set-default", s.SetDefaultQuotationTemplate)
	api.DELETE("/quotation-templates/:id", s.DeleteQuotationTemplate)

	// -------- Quotations --------
	api.GET("/quotations", s.ListQuotations)
	api.POST("/quotations", s.CreateQuotation)
	api.POST("/quotations/from-template", s.CreateQuotationFromTemplate)
	api.GET("/quotations/:id", s.GetQuotationByID)
	api.PATCH("/quotations/:id", s.UpdateQuotation)
	api.DELETE("/quotations/:id", s.DeleteQuotation)
	api.POST("/quotations/:id/send", s.SendQuotation)
	api.POST("/quotations/:id/accept", s.AcceptQuotation)
	api.POST("/quotations/:id/reject", s.RejectQuotation)
	api.POST("/quotations/:id/expire", s.ExpireQuotation)
	api.GET("/quotations/:id/history", s.DocumentHistory("quotation"))

	// -------- Subscriptions --------
	api.GET("/subscriptions", s.ListSubscriptions)
	api.POST("/subscriptions", s.CreateSubscription)
	api.GET("/subscriptions/:id", s.GetSubscriptionByID)
	api.PATCH("/subscriptions/:id", s.UpdateSubscription)
	api.POST("/subscriptions/:id/status", s.UpdateSubscriptionStatus)
	api.GET("/subscriptions/:id/history", s.DocumentHistory("subscription"))

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/overdue", s.ListOverdueInvoices)
	api.POST("/invoices/from-subscription", s.CreateInvoiceFromSubscription)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.GET("/invoices/:id/pdf", s.RenderInvoicePDF)
	api.GET("/invoices/:id/ledger", s.ListInvoiceLedgerEntries)
	api.GET("/invoices/:id/history", s.DocumentHistory("invoice"))
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.POST("/invoices/:id/overdue", s.MarkInvoiceOverdue)
	api.POST("/invoices/:id/refunded", s.MarkInvoiceRefunded)
	api.POST("/invoices/:id/pay", s.PayInvoiceBalance)

	// -------- Payments --------
	api.GET("/payments", s.ListPayments)
	api.POST("/payments", s.RecordPayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.DELETE("/payments/:id", s.DeletePayment)
	api.POST("/payments/:id/complete", s.CompletePayment)
	api.POST("/payments/:id/fail", s.FailPayment)
	api.POST("/payments/:id/refund", s.RefundPayment)
	api.GET("/payments/:id/history", s.DocumentHistory("payment"))

	// -------- Ledger --------
	api.GET("/ledger/accounts/:code/balance", s.GetLedgerBalance)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}
