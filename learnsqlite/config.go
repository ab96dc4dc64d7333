// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/shann2345/go-learnsync/learnsync"
)

// Config holds the offline-access policy for the engine. The tolerance,
// forward-jump threshold and allowance values are deployment policy, not
// fixed law; deployments tune them here.
type Config struct {
	// TotalAllowanceHours is the rolling offline budget granted after each
	// successful online sync (24-168 hours depending on deployment).
	TotalAllowanceHours float64 `mapstructure:"total_allowance_hours"`

	// ToleranceSeconds absorbs normal clock sync jitter before a backward
	// movement is treated as tampering.
	ToleranceSeconds int64 `mapstructure:"tolerance_seconds"`

	// ForwardJumpSeconds is how far ahead of the expected elapse the device
	// clock may move between checks before the excess is debited from the
	// offline budget.
	ForwardJumpSeconds int64 `mapstructure:"forward_jump_seconds"`

	// RequestTimeout bounds each outbound request, including per-item
	// uploads during a flush.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// BackoffMin/BackoffMax shape the per-item retry delay applied to
	// failed pending uploads between flush triggers.
	BackoffMin time.Duration `mapstructure:"backoff_min"`
	BackoffMax time.Duration `mapstructure:"backoff_max"`

	// CheckInterval is the cron spec for the periodic budget check and
	// opportunistic flush while the app is foregrounded.
	CheckInterval string `mapstructure:"check_interval"`

	// WarningCooldown gates how often the "you are offline" explanatory
	// notice may be surfaced again.
	WarningCooldown time.Duration `mapstructure:"warning_cooldown"`

	// Retry is applied to short foreground requests such as the server-time
	// fetch. Pending-work uploads are retried on the next trigger instead.
	Retry learnsync.RetryPolicy `mapstructure:"-"`
}

// DefaultConfig returns the default offline-access policy.
func DefaultConfig() *Config {
	return &Config{
		TotalAllowanceHours: 168,
		ToleranceSeconds:    60,
		ForwardJumpSeconds:  300,
		RequestTimeout:      30 * time.Second,
		BackoffMin:          1 * time.Second,
		BackoffMax:          60 * time.Second,
		CheckInterval:       "@every 15m",
		WarningCooldown:     24 * time.Hour,
		Retry:               learnsync.DefaultRetryPolicy(),
	}
}

// LoadConfig reads the policy from an optional YAML file with LEARNSYNC_*
// environment overrides. An empty path loads defaults plus env only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("total_allowance_hours", def.TotalAllowanceHours)
	v.SetDefault("tolerance_seconds", def.ToleranceSeconds)
	v.SetDefault("forward_jump_seconds", def.ForwardJumpSeconds)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("backoff_min", def.BackoffMin)
	v.SetDefault("backoff_max", def.BackoffMax)
	v.SetDefault("check_interval", def.CheckInterval)
	v.SetDefault("warning_cooldown", def.WarningCooldown)

	v.SetEnvPrefix("LEARNSYNC")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Retry = learnsync.DefaultRetryPolicy()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TotalAllowanceHours <= 0 {
		return fmt.Errorf("total_allowance_hours must be positive, got %v", c.TotalAllowanceHours)
	}
	if c.ToleranceSeconds < 0 {
		return fmt.Errorf("tolerance_seconds must not be negative, got %d", c.ToleranceSeconds)
	}
	if c.ForwardJumpSeconds <= 0 {
		return fmt.Errorf("forward_jump_seconds must be positive, got %d", c.ForwardJumpSeconds)
	}
	return nil
}
