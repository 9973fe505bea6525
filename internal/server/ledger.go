package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
)

func (s *Server) GetLedgerBalance(c *gin.Context) {
	code := ledgerdomain.AccountCode(strings.TrimSpace(c.Param("code")))
	balance, err := s.ledgerSvc.Balance(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"account": code,
		"balance": balance.StringFixed(2),
	}})
}
