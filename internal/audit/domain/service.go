package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
	// History returns every entry recorded for one document, oldest first.
	History(ctx context.Context, targetType, targetID string) ([]AuditLog, error)
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidPageToken    = apperr.Validation("invalid_page_token")
	ErrInvalidTimeRange    = apperr.Validation("invalid_time_range")
	ErrInvalidAction       = apperr.Validation("invalid_action")
	ErrInvalidTarget       = apperr.Validation("invalid_target")
)
