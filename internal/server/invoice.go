package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/billingcore/internal/payment/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.InvoiceNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateInvoiceFromSubscription(c *gin.Context) {
	var req invoicedomain.CreateFromSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.CreateFromSubscription(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.InvoiceNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query invoicedomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) ListOverdueInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.ListOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	pdf, err := s.invoiceSvc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "invoice-"+id+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ListInvoiceLedgerEntries returns the postings made when the invoice was issued and, if so, cancelled.
func (s *Server) ListInvoiceLedgerEntries(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.invoiceSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	entries := make([]ledgerdomain.Entry, 0, 2)
	for _, source := range []ledgerdomain.SourceType{ledgerdomain.SourceInvoiceIssued, ledgerdomain.SourceInvoiceCancelled} {
		found, err := s.ledgerSvc.ListEntries(c.Request.Context(), source, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		entries = append(entries, found...)
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) SendInvoice(c *gin.Context) {
	s.invoiceAction(c, s.invoiceSvc.Send)
}

func (s *Server) CancelInvoice(c *gin.Context) {
	s.invoiceAction(c, s.invoiceSvc.Cancel)
}

func (s *Server) MarkInvoiceOverdue(c *gin.Context) {
	s.invoiceAction(c, s.invoiceSvc.MarkOverdue)
}

func (s *Server) MarkInvoiceRefunded(c *gin.Context) {
	s.invoiceAction(c, s.invoiceSvc.MarkRefunded)
}

// PayInvoiceBalance records a completed payment for whatever the invoice still owes.
func (s *Server) PayInvoiceBalance(c *gin.Context) {
	var req paymentdomain.PayBalanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.InvoiceID = strings.TrimSpace(c.Param("id"))

	resp, err := s.paymentSvc.PayInvoiceBalance(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.PaymentNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) invoiceAction(c *gin.Context, action func(ctx context.Context, id string) (*invoicedomain.Response, error)) {
	resp, err := action(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.InvoiceNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
