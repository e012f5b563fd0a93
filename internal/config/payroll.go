package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PayrollConfig carries operational payroll policy that ops can tune
// without a redeploy.
type PayrollConfig struct {
	TrialDays        int   `mapstructure:"trialDays"`
	MaxOpenAdvances  int   `mapstructure:"maxOpenAdvances"`
	MaxAdvanceAmount int64 `mapstructure:"maxAdvanceAmount"`
	SessionTTLHours  int   `mapstructure:"sessionTTLHours"`
}

func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		TrialDays:        14,
		MaxOpenAdvances:  5,
		MaxAdvanceAmount: 50_000_00,
		SessionTTLHours:  168,
	}
}

type PayrollConfigHolder struct {
	current atomic.Value // holds PayrollConfig
}

func NewPayrollConfigHolder() (*PayrollConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payroll")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/paybook/config")
	v.AddConfigPath("/etc/paybook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		fileLoaded = false
		defaults := DefaultPayrollConfig()
		v.SetDefault("payroll.trialDays", defaults.TrialDays)
		v.SetDefault("payroll.maxOpenAdvances", defaults.MaxOpenAdvances)
		v.SetDefault("payroll.maxAdvanceAmount", defaults.MaxAdvanceAmount)
		v.SetDefault("payroll.sessionTTLHours", defaults.SessionTTLHours)
	}

	var cfg PayrollConfig
	if err := v.UnmarshalKey("payroll", &cfg); err != nil {
		return nil, err
	}
	if err := validatePayrollConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PayrollConfigHolder{}
	holder.current.Store(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PayrollConfig
			if err := v.UnmarshalKey("payroll", &updated); err != nil {
				zap.L().Warn("payroll config reload failed", zap.Error(err))
				return
			}
			if err := validatePayrollConfig(updated); err != nil {
				zap.L().Warn("invalid payroll config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("payroll config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PayrollConfigHolder) Get() PayrollConfig {
	return h.current.Load().(PayrollConfig)
}

func validatePayrollConfig(cfg PayrollConfig) error {
	if cfg.TrialDays <= 0 {
		return errors.New("payroll.trialDays must be positive")
	}
	if cfg.MaxOpenAdvances <= 0 {
		return errors.New("payroll.maxOpenAdvances must be positive")
	}
	if cfg.MaxAdvanceAmount <= 0 {
		return errors.New("payroll.maxAdvanceAmount must be positive")
	}
	if cfg.SessionTTLHours <= 0 {
		return errors.New("payroll.sessionTTLHours must be positive")
	}
	return nil
}
