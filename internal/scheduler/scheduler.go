package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	obsmetrics "github.com/smallbiznis/billingcore/internal/observability/metrics"
	"github.com/smallbiznis/billingcore/internal/orgcontext"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobQuotationExpiry = "quotation_expiry"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Policy     *config.BillingPolicyHolder
	Quotations quotationdomain.Service
	Locker     Locker `optional:"true"`
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	policy     *config.BillingPolicyHolder
	quotations quotationdomain.Service
	locker     Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Quotations == nil {
		return nil, ErrInvalidConfig
	}
	locker := p.Locker
	if locker == nil {
		locker = LocalLocker{}
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		policy:     p.Policy,
		quotations: p.Quotations,
		locker:     locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}
	schedMetrics.IncJobError(name, err)

	// a deadline only cuts the tick short; the next tick continues the sweep
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobQuotationExpiry, s.ExpireQuotationsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		timer := time.NewTimer(s.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// ExpireQuotationsJob expires overdue SENT quotations one organization at a time.
func (s *Scheduler) ExpireQuotationsJob(ctx context.Context) error {
	orgIDs, err := s.quotations.StaleOrganizations(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			return errors.Join(errs, err)
		}
		errs = errors.Join(errs, s.expireForOrg(ctx, orgID))
	}
	return errs
}

func (s *Scheduler) expireForOrg(ctx context.Context, orgID snowflake.ID) error {
	key := s.cfg.LockPrefix + jobQuotationExpiry + ":" + orgID.String()
	token, ok, err := s.locker.TryLock(ctx, key, s.interval())
	if err != nil {
		return err
	}
	if !ok {
		obsmetrics.Scheduler().IncJobSkipped(jobQuotationExpiry, obsmetrics.SchedulerSkipReasonLockHeld)
		s.log.Debug("quotation expiry held by another replica", zap.String("org_id", orgID.String()))
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release scheduler lock", zap.String("key", key), zap.Error(err))
		}
	}()

	expired, err := s.quotations.ExpireStale(orgcontext.WithOrgID(ctx, orgID.Int64()))
	if err != nil {
		return err
	}
	obsmetrics.Scheduler().AddBatchProcessed(jobQuotationExpiry, "quotation", int(expired))
	if expired > 0 {
		s.log.Info("quotations expired", zap.String("org_id", orgID.String()), zap.Int64("count", expired))
	}
	return nil
}

func (s *Scheduler) interval() time.Duration {
	return s.policy.Get().ExpirySweepInterval
}
