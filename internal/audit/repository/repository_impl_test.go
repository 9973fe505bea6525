package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiltersByActionPrefix(t *testing.T) {
	db := testutil.NewDB(t)
	repo := Provide()
	ctx := context.Background()
	org := snowflake.ID(1)
	other := snowflake.ID(2)
	target := "42"
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []*domain.AuditLog{
		{ID: 1, OrgID: &org, ActorType: "system", Action: "invoice.created", TargetType: "invoice", TargetID: &target, CreatedAt: now},
		{ID: 2, OrgID: &org, ActorType: "system", Action: "invoice.sent", TargetType: "invoice", TargetID: &target, CreatedAt: now},
		{ID: 3, OrgID: &org, ActorType: "system", Action: "payment.recorded", TargetType: "payment", CreatedAt: now},
		{ID: 4, OrgID: &other, ActorType: "system", Action: "invoice.created", TargetType: "invoice", CreatedAt: now},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Insert(ctx, db, entry))
	}

	t.Run("prefix", func(t *testing.T) {
		logs, err := repo.List(ctx, db, domain.ListFilter{OrgID: org, Action: "invoice.*"})
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "invoice.sent", logs[0].Action)
		assert.Equal(t, "invoice.created", logs[1].Action)
	})

	t.Run("exact action and target", func(t *testing.T) {
		logs, err := repo.List(ctx, db, domain.ListFilter{OrgID: org, Action: "invoice.sent", TargetID: target})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, snowflake.ID(2), logs[0].ID)
	})

	t.Run("limit fetches one extra row", func(t *testing.T) {
		logs, err := repo.List(ctx, db, domain.ListFilter{OrgID: org, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, logs, 2)

		logs, err = repo.List(ctx, db, domain.ListFilter{OrgID: org, AfterID: 2})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, snowflake.ID(1), logs[0].ID)
	})
}
