package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingPolicy holds tunable billing defaults. It is reloaded when billing.yml changes.
type BillingPolicy struct {
	Currency              string          `mapstructure:"currency"`
	InvoiceDueDays        int             `mapstructure:"invoiceDueDays"`
	QuotationValidityDays int             `mapstructure:"quotationValidityDays"`
	ExpirySweepInterval   time.Duration   `mapstructure:"expirySweepInterval"`
	SequencePadding       SequencePadding `mapstructure:"sequencePadding"`
}

// SequencePadding is the zero-padding width of document numbers per document type.
type SequencePadding struct {
	Invoice      int `mapstructure:"invoice"`
	Quotation    int `mapstructure:"quotation"`
	Payment      int `mapstructure:"payment"`
	Subscription int `mapstructure:"subscription"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		Currency:              "USD",
		InvoiceDueDays:        30,
		QuotationValidityDays: 30,
		ExpirySweepInterval:   10 * time.Minute,
		SequencePadding: SequencePadding{
			Invoice:      5,
			Quotation:    5,
			Payment:      5,
			Subscription: 4,
		},
	}
}

type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

// NewStaticBillingPolicy returns a holder that never reloads.
func NewStaticBillingPolicy(policy BillingPolicy) *BillingPolicyHolder {
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewBillingPolicyHolder(cfg Config, log *zap.Logger) (*BillingPolicyHolder, error) {
	v := viper.New()

	if cfg.BillingConfigPath != "" {
		v.SetConfigFile(cfg.BillingConfigPath)
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/billingcore")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.invoiceDueDays", defaults.InvoiceDueDays)
	v.SetDefault("billing.quotationValidityDays", defaults.QuotationValidityDays)
	v.SetDefault("billing.expirySweepInterval", defaults.ExpirySweepInterval)
	v.SetDefault("billing.sequencePadding.invoice", defaults.SequencePadding.Invoice)
	v.SetDefault("billing.sequencePadding.quotation", defaults.SequencePadding.Quotation)
	v.SetDefault("billing.sequencePadding.payment", defaults.SequencePadding.Payment)
	v.SetDefault("billing.sequencePadding.subscription", defaults.SequencePadding.Subscription)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	if err := ValidateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticBillingPolicy(policy)
	if !watch {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing policy reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := ValidateBillingPolicy(updated); err != nil {
			log.Warn("invalid billing policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing policy reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingPolicyHolder) Get() BillingPolicy {
	if h == nil {
		return DefaultBillingPolicy()
	}
	return h.current.Load().(BillingPolicy)
}

func ValidateBillingPolicy(p BillingPolicy) error {
	if strings.TrimSpace(p.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if p.InvoiceDueDays < 0 {
		return errors.New("billing.invoiceDueDays cannot be negative")
	}
	if p.QuotationValidityDays < 0 {
		return errors.New("billing.quotationValidityDays cannot be negative")
	}
	if p.ExpirySweepInterval <= 0 {
		return errors.New("billing.expirySweepInterval must be positive")
	}
	pad := p.SequencePadding
	if pad.Invoice < 1 || pad.Quotation < 1 || pad.Payment < 1 || pad.Subscription < 1 {
		return errors.New("billing.sequencePadding widths must be at least 1")
	}
	return nil
}
