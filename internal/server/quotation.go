package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
	quotationtemplatedomain "github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
)

func (s *Server) CreateQuotationTemplate(c *gin.Context) {
	var req quotationtemplatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationTemplateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuotationTemplates(c *gin.Context) {
	var query struct {
		Name      string `form:"name"`
		IsDefault string `form:"is_default"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isDefault, err := parseOptionalBool(query.IsDefault)
	if err != nil {
		AbortWithError(c, newValidationError("is_default", "invalid_is_default", "invalid is_default"))
		return
	}

	resp, err := s.quotationTemplateSvc.List(c.Request.Context(), quotationtemplatedomain.ListRequest{
		Name:      strings.TrimSpace(query.Name),
		IsDefault: isDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuotationTemplateByID(c *gin.Context) {
	resp, err := s.quotationTemplateSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetDefaultQuotationTemplate(c *gin.Context) {
	resp, err := s.quotationTemplateSvc.SetDefault(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuotationTemplate(c *gin.Context) {
	if err := s.quotationTemplateSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateQuotation(c *gin.Context) {
	var req quotationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.QuotationNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateQuotationFromTemplate(c *gin.Context) {
	var req quotationdomain.CreateFromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.CreateFromTemplate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.QuotationNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateQuotation(c *gin.Context) {
	var req quotationdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.quotationSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuotations(c *gin.Context) {
	var query quotationdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Quotations, "page_info": resp.PageInfo})
}

func (s *Server) GetQuotationByID(c *gin.Context) {
	resp, err := s.quotationSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuotation(c *gin.Context) {
	if err := s.quotationSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SendQuotation(c *gin.Context) {
	s.quotationAction(c, s.quotationSvc.Send)
}

// AcceptQuotation also confirms the linked subscription.
func (s *Server) AcceptQuotation(c *gin.Context) {
	s.quotationAction(c, s.quotationSvc.Accept)
}

func (s *Server) ExpireQuotation(c *gin.Context) {
	s.quotationAction(c, s.quotationSvc.Expire)
}

func (s *Server) RejectQuotation(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.quotationSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) quotationAction(c *gin.Context, action func(ctx context.Context, id string) (*quotationdomain.Response, error)) {
	resp, err := action(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_number", resp.QuotationNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
