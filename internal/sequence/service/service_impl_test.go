package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/sequence/domain"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.SystemClock{},
		Policy: config.NewStaticBillingPolicy(config.DefaultBillingPolicy()),
	}).(*Service)
	return svc, db
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-00001", Format(domain.DocTypeInvoice, 1, 5))
	assert.Equal(t, "S-0012", Format(domain.DocTypeSubscription, 12, 4))
	assert.Equal(t, "PAY-123456", Format(domain.DocTypePayment, 123456, 5))
}

func TestNextIsMonotonicPerOrgAndType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	org := snowflake.ID(1)

	first, err := svc.Next(ctx, nil, org, domain.DocTypeInvoice)
	require.NoError(t, err)
	second, err := svc.Next(ctx, nil, org, domain.DocTypeInvoice)
	require.NoError(t, err)
	sub, err := svc.Next(ctx, nil, org, domain.DocTypeSubscription)
	require.NoError(t, err)
	otherOrg, err := svc.Next(ctx, nil, snowflake.ID(2), domain.DocTypeInvoice)
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", first)
	assert.Equal(t, "INV-00002", second)
	assert.Equal(t, "S-0001", sub)
	assert.Equal(t, "INV-00001", otherOrg)
}

func TestNextRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Next(context.Background(), nil, snowflake.ID(1), domain.DocType("receipt"))
	assert.ErrorIs(t, err, domain.ErrInvalidDocType)

	_, err = svc.Next(context.Background(), nil, 0, domain.DocTypeInvoice)
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestRolledBackNumberIsReleased(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	org := snowflake.ID(7)

	errAbort := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		number, err := svc.Next(ctx, tx, org, domain.DocTypeQuotation)
		require.NoError(t, err)
		assert.Equal(t, "Q-00001", number)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	number, err := svc.Next(ctx, nil, org, domain.DocTypeQuotation)
	require.NoError(t, err)
	assert.Equal(t, "Q-00001", number)
}

func TestConcurrentNextNeverCollides(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	org := snowflake.ID(3)

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := svc.Next(ctx, nil, org, domain.DocTypePayment)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[number] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, numbers, workers)
	assert.Contains(t, numbers, "PAY-00020")
}

func TestPaddingFollowsPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	policy := config.DefaultBillingPolicy()
	policy.SequencePadding.Invoice = 7
	svc.policy = config.NewStaticBillingPolicy(policy)

	number, err := svc.Next(context.Background(), nil, snowflake.ID(1), domain.DocTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-0000001", number)
}
