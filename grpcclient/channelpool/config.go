/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package channelpool

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-rpcinvoker/config"
)

const cfgDefaultKeyPrefix = "channelpool"

const (
	cfgKeyTargets    = "targets"
	cfgKeyInsecure   = "insecure"
	cfgKeyDNSServers = "dns.servers"
	cfgKeyDNSTimeout = "dns.timeout"
)

// DefaultDNSTimeout is the default timeout for a single query to a custom DNS server.
const DefaultDNSTimeout = 5 * time.Second

// Config represents a set of configuration parameters for Pool.
type Config struct {
	// Targets are gRPC targets (e.g. "dns:///users:9090" or "10.0.0.1:9090") calls are distributed over.
	Targets []string `mapstructure:"targets" yaml:"targets" json:"targets"`

	// Insecure disables transport security.
	Insecure bool `mapstructure:"insecure" yaml:"insecure" json:"insecure"`

	// DNS configures custom DNS servers for resolving target host names.
	DNS DNSConfig `mapstructure:"dns" yaml:"dns" json:"dns"`

	keyPrefix string
}

// DNSConfig represents a set of configuration parameters for custom name resolution.
// When Servers is empty, targets are resolved by gRPC itself.
type DNSConfig struct {
	Servers []string            `mapstructure:"servers" yaml:"servers" json:"servers"`
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Empty keyPrefix means the default "channelpool" prefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with the given targets and without transport security.
func NewDefaultConfig(targets ...string) *Config {
	return &Config{Targets: targets, Insecure: true, DNS: DNSConfig{Timeout: config.TimeDuration(DefaultDNSTimeout)}}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Pool in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyInsecure, true)
	dp.SetDefault(cfgKeyDNSTimeout, DefaultDNSTimeout.String())
}

// Set sets Pool configuration values from config.DataProvider.
// Targets may be specified either as a list or as a comma-separated string.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Targets, err = getList(dp, cfgKeyTargets); err != nil {
		return err
	}
	if len(c.Targets) == 0 {
		return dp.WrapKeyErr(cfgKeyTargets, fmt.Errorf("at least one target should be specified"))
	}

	if c.Insecure, err = dp.GetBool(cfgKeyInsecure); err != nil {
		return err
	}

	if c.DNS.Servers, err = getList(dp, cfgKeyDNSServers); err != nil {
		return err
	}
	var dnsTimeout time.Duration
	if dnsTimeout, err = dp.GetDuration(cfgKeyDNSTimeout); err != nil {
		return err
	}
	if dnsTimeout <= 0 {
		return dp.WrapKeyErr(cfgKeyDNSTimeout, fmt.Errorf("should be > 0"))
	}
	c.DNS.Timeout = config.TimeDuration(dnsTimeout)
	return nil
}

// getList reads a list that may be specified either as a sequence or as a comma-separated string.
func getList(dp config.DataProvider, key string) ([]string, error) {
	var items []string
	if s, ok := dp.Get(key).(string); ok {
		items = strings.Split(s, ",")
	} else {
		var err error
		if items, err = dp.GetStringSlice(key); err != nil {
			return nil, err
		}
	}
	res := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res, nil
}
