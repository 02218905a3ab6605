/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"fmt"
	"time"

	"github.com/acronis/go-rpcinvoker/config"
)

const cfgDefaultKeyPrefix = "grpcclient"

const (
	cfgKeyBreakerMaxRequests         = "breaker.maxRequests"
	cfgKeyBreakerInterval            = "breaker.interval"
	cfgKeyBreakerTimeout             = "breaker.timeout"
	cfgKeyBreakerConsecutiveFailures = "breaker.consecutiveFailures"
	cfgKeyAsyncCleanup               = "asyncCleanup"
)

const (
	defaultBreakerMaxRequests         = 1
	defaultBreakerTimeout             = time.Minute
	defaultBreakerConsecutiveFailures = 5
)

// AsyncCleanupMode defines when the channel of an asynchronous call is returned and its counter is released.
type AsyncCleanupMode string

// Async cleanup modes.
const (
	// AsyncCleanupOnReturn releases resources as soon as the Future is handed to the caller.
	AsyncCleanupOnReturn AsyncCleanupMode = "onReturn"
	// AsyncCleanupOnCompletion releases resources when the Future is resolved.
	AsyncCleanupOnCompletion AsyncCleanupMode = "onCompletion"
)

var availableAsyncCleanupModes = []string{string(AsyncCleanupOnReturn), string(AsyncCleanupOnCompletion)}

// Config represents a set of configuration parameters for Invoker.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Breaker      BreakerConfig    `mapstructure:"breaker" yaml:"breaker" json:"breaker"`
	AsyncCleanup AsyncCleanupMode `mapstructure:"asyncCleanup" yaml:"asyncCleanup" json:"asyncCleanup"`

	keyPrefix string
}

// BreakerConfig represents a set of configuration parameters for circuit breakers.
// One breaker is created per service method.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed to pass through when the breaker is half-open.
	MaxRequests uint32 `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`

	// Interval is the cyclic period of the closed state for clearing the internal counts.
	// Zero means the counts are never cleared while the breaker is closed.
	Interval config.TimeDuration `mapstructure:"interval" yaml:"interval" json:"interval"`

	// Timeout is the period of the open state after which the breaker becomes half-open.
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	// ConsecutiveFailures is the number of consecutive failures that opens the breaker.
	ConsecutiveFailures uint32 `mapstructure:"consecutiveFailures" yaml:"consecutiveFailures" json:"consecutiveFailures"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default "grpcclient" prefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Breaker: BreakerConfig{
			MaxRequests:         defaultBreakerMaxRequests,
			Timeout:             config.TimeDuration(defaultBreakerTimeout),
			ConsecutiveFailures: defaultBreakerConsecutiveFailures,
		},
		AsyncCleanup: AsyncCleanupOnReturn,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Invoker in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBreakerMaxRequests, defaultBreakerMaxRequests)
	dp.SetDefault(cfgKeyBreakerTimeout, defaultBreakerTimeout)
	dp.SetDefault(cfgKeyBreakerConsecutiveFailures, defaultBreakerConsecutiveFailures)
	dp.SetDefault(cfgKeyAsyncCleanup, string(AsyncCleanupOnReturn))
}

// Set sets Invoker configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := c.Breaker.Set(dp); err != nil {
		return err
	}
	mode, err := dp.GetStringFromSet(cfgKeyAsyncCleanup, availableAsyncCleanupModes, false)
	if err != nil {
		return err
	}
	c.AsyncCleanup = AsyncCleanupMode(mode)
	return nil
}

// Set sets circuit breaker configuration values from config.DataProvider.
func (b *BreakerConfig) Set(dp config.DataProvider) error {
	var err error
	var n int
	var dur time.Duration

	if n, err = dp.GetInt(cfgKeyBreakerMaxRequests); err != nil {
		return err
	}
	if n < 1 {
		return dp.WrapKeyErr(cfgKeyBreakerMaxRequests, fmt.Errorf("should be >= 1"))
	}
	b.MaxRequests = uint32(n)

	if dur, err = dp.GetDuration(cfgKeyBreakerInterval); err != nil {
		return err
	}
	if dur < 0 {
		return dp.WrapKeyErr(cfgKeyBreakerInterval, fmt.Errorf("cannot be negative"))
	}
	b.Interval = config.TimeDuration(dur)

	if dur, err = dp.GetDuration(cfgKeyBreakerTimeout); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyBreakerTimeout, fmt.Errorf("should be > 0"))
	}
	b.Timeout = config.TimeDuration(dur)

	if n, err = dp.GetInt(cfgKeyBreakerConsecutiveFailures); err != nil {
		return err
	}
	if n < 1 {
		return dp.WrapKeyErr(cfgKeyBreakerConsecutiveFailures, fmt.Errorf("should be >= 1"))
	}
	b.ConsecutiveFailures = uint32(n)

	return nil
}
