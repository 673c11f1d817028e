package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PayoutPolicy controls the operational knobs of the payout pipeline.
// TransferAttemptCount is never reset after a success; once
// attempts reach MaxAttempts the commission is flagged for manual review
// regardless of whether the last failure was retryable.
type PayoutPolicy struct {
	MaxAttempts               int   `mapstructure:"maxAttempts"`
	MinimumTransferMinorUnits int64 `mapstructure:"minimumTransferMinorUnits"`

	Alerting AlertingPolicy `mapstructure:"alerting"`
}

type AlertingPolicy struct {
	Emails       []string `mapstructure:"emails"`
	SlackChannel string   `mapstructure:"slackChannel"`
}

func DefaultPayoutPolicy() PayoutPolicy {
	return PayoutPolicy{
		MaxAttempts:               2,
		MinimumTransferMinorUnits: 1,
		Alerting: AlertingPolicy{
			Emails:       []string{"security@partnerpay.local"},
			SlackChannel: "#payout-alerts",
		},
	}
}

type PayoutPolicyHolder struct {
	current atomic.Value // holds PayoutPolicy
}

func NewPayoutPolicyHolder() (*PayoutPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("payout")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/partnerpay/config")
	v.AddConfigPath("/etc/partnerpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTNERPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPayoutPolicy()
		v.SetDefault("payout.maxAttempts", defaults.MaxAttempts)
		v.SetDefault("payout.minimumTransferMinorUnits", defaults.MinimumTransferMinorUnits)
		v.SetDefault("payout.alerting.emails", defaults.Alerting.Emails)
		v.SetDefault("payout.alerting.slackChannel", defaults.Alerting.SlackChannel)
	}

	var policy PayoutPolicy
	if err := v.UnmarshalKey("payout", &policy); err != nil {
		return nil, err
	}
	if err := validatePayoutPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PayoutPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayoutPolicy
		if err := v.UnmarshalKey("payout", &updated); err != nil {
			log.Printf("[payout-policy] reload failed: %v", err)
			return
		}
		if err := validatePayoutPolicy(updated); err != nil {
			log.Printf("[payout-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[payout-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPayoutPolicyHolder returns a holder pinned to the given policy.
// Intended for tests and tools that must not read config files.
func NewStaticPayoutPolicyHolder(policy PayoutPolicy) *PayoutPolicyHolder {
	holder := &PayoutPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PayoutPolicyHolder) Get() PayoutPolicy {
	return h.current.Load().(PayoutPolicy)
}

func validatePayoutPolicy(policy PayoutPolicy) error {
	if policy.MaxAttempts < 1 {
		return errors.New("payout.maxAttempts must be at least 1")
	}
	if policy.MinimumTransferMinorUnits < 1 {
		return errors.New("payout.minimumTransferMinorUnits must be at least 1")
	}
	return nil
}
