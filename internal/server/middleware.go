package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/billingcore/internal/config"
	obscontext "github.com/smallbiznis/billingcore/internal/observability/context"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
)

const HeaderOrg = "X-Organization-Id"

var errInvalidOrganization = newValidationError("organization", "invalid_organization", "missing or invalid "+HeaderOrg)

// OrgContext scopes the request to the organization named by the X-Organization-Id header,
// falling back to the configured default organization.
func OrgContext(defaultOrgID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := defaultOrgID
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed <= 0 {
				AbortWithError(c, errInvalidOrganization)
				return
			}
			orgID = parsed
		}
		if orgID <= 0 {
			AbortWithError(c, errInvalidOrganization)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, strconv.FormatInt(orgID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CORS(cfg config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderOrg, "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	return cors.New(corsCfg)
}
