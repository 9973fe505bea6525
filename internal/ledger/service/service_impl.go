package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	"github.com/smallbiznis/billingcore/internal/clock"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// PostTx must run inside the transaction that changes the source document, so the entry commits with it.
func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostRequest) (bool, error) {
	if req.OrgID == 0 {
		return false, ledgerdomain.ErrInvalidOrganization
	}
	if strings.TrimSpace(string(req.SourceType)) == "" {
		return false, ledgerdomain.ErrInvalidSource
	}
	if req.SourceID == 0 {
		return false, ledgerdomain.ErrInvalidSourceID
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return false, ledgerdomain.ErrInvalidCurrency
	}
	if err := ledgerdomain.ValidateBalanced(req.Postings); err != nil {
		return false, err
	}

	accounts, err := s.ensureAccounts(ctx, tx, req.OrgID)
	if err != nil {
		return false, err
	}

	now := s.clock.Now().UTC()
	occurredAt := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurredAt = now
	}

	entry := ledgerdomain.Entry{
		ID:         s.genID.Generate(),
		OrgID:      req.OrgID,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Currency:   currency,
		OccurredAt: occurredAt,
		CreatedAt:  now,
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(req.SourceType)),
			zap.String("source_id", req.SourceID.String()),
		)
		return false, nil
	}

	lines := lo.Map(req.Postings, func(posting ledgerdomain.Posting, _ int) ledgerdomain.EntryLine {
		return ledgerdomain.EntryLine{
			ID:        s.genID.Generate(),
			EntryID:   entry.ID,
			AccountID: accounts[posting.Account],
			Direction: posting.Direction,
			Amount:    posting.Amount,
			CreatedAt: now,
		}
	})
	if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
		return false, err
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(req.SourceType))
	if s.auditSvc != nil {
		entryID := entry.ID.String()
		orgID := req.OrgID
		if err := s.auditSvc.AuditLog(ctx, &orgID, "system", nil, "ledger.entry_posted", "ledger_entry", &entryID, map[string]any{
			"source_type": string(req.SourceType),
			"source_id":   req.SourceID.String(),
		}); err != nil {
			s.log.Warn("failed to write ledger audit log", zap.Error(err))
		}
	}
	return true, nil
}

// ensureAccounts creates the chart of accounts on first use and returns account ids by code.
func (s *Service) ensureAccounts(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (map[ledgerdomain.AccountCode]snowflake.ID, error) {
	var existing []ledgerdomain.Account
	if err := tx.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&existing).Error; err != nil {
		return nil, err
	}

	byCode := lo.SliceToMap(existing, func(account ledgerdomain.Account) (ledgerdomain.AccountCode, snowflake.ID) {
		return account.Code, account.ID
	})
	if len(byCode) == len(ledgerdomain.ChartOfAccounts) {
		return byCode, nil
	}

	now := s.clock.Now().UTC()
	for code, name := range ledgerdomain.ChartOfAccounts {
		if _, ok := byCode[code]; ok {
			continue
		}
		account := ledgerdomain.Account{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Code:      code,
			Name:      name,
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&account).Error; err != nil {
			return nil, err
		}
	}

	existing = existing[:0]
	if err := tx.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&existing).Error; err != nil {
		return nil, err
	}
	return lo.SliceToMap(existing, func(account ledgerdomain.Account) (ledgerdomain.AccountCode, snowflake.ID) {
		return account.Code, account.ID
	}), nil
}

func (s *Service) ListEntries(ctx context.Context, sourceType ledgerdomain.SourceType, sourceID string) ([]ledgerdomain.Entry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if strings.TrimSpace(string(sourceType)) != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	if strings.TrimSpace(sourceID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(sourceID))
		if err != nil {
			return nil, ledgerdomain.ErrInvalidSourceID
		}
		query = query.Where("source_id = ?", id)
	}

	var entries []ledgerdomain.Entry
	if err := query.Order("occurred_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	var accounts []ledgerdomain.Account
	if err := s.db.WithContext(ctx).Where("org_id = ?", orgID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	codeByID := lo.SliceToMap(accounts, func(account ledgerdomain.Account) (snowflake.ID, ledgerdomain.AccountCode) {
		return account.ID, account.Code
	})

	var lines []ledgerdomain.EntryLine
	entryIDs := lo.Map(entries, func(entry ledgerdomain.Entry, _ int) snowflake.ID { return entry.ID })
	if err := s.db.WithContext(ctx).
		Where("ledger_entry_id IN ?", entryIDs).
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	grouped := lo.GroupBy(lines, func(line ledgerdomain.EntryLine) snowflake.ID { return line.EntryID })
	for i := range entries {
		entries[i].Lines = lo.Map(grouped[entries[i].ID], func(line ledgerdomain.EntryLine, _ int) ledgerdomain.EntryLine {
			line.Account = codeByID[line.AccountID]
			return line
		})
	}
	return entries, nil
}

func (s *Service) Balance(ctx context.Context, code ledgerdomain.AccountCode) (decimal.Decimal, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return decimal.Zero, ledgerdomain.ErrInvalidOrganization
	}
	if _, ok := ledgerdomain.ChartOfAccounts[code]; !ok {
		return decimal.Zero, ledgerdomain.ErrInvalidAccount
	}

	var rows []struct {
		Direction ledgerdomain.Direction
		Amount    decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT l.direction, l.amount
		 FROM ledger_entry_lines l
		 JOIN ledger_accounts a ON a.id = l.account_id
		 WHERE a.org_id = ? AND a.code = ?`,
		orgID,
		code,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, row := range rows {
		if row.Direction == ledgerdomain.Debit {
			balance = balance.Add(row.Amount)
		} else {
			balance = balance.Sub(row.Amount)
		}
	}
	return balance, nil
}
