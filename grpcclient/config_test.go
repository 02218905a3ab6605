/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-rpcinvoker/config"
)

func TestConfig_Load(t *testing.T) {
	tests := []struct {
		name       string
		cfgData    string
		wantCfg    *Config
		wantErrMsg string
	}{
		{
			name:    "defaults",
			cfgData: ``,
			wantCfg: NewDefaultConfig(),
		},
		{
			name: "custom values",
			cfgData: `
grpcclient:
  breaker:
    maxRequests: 3
    interval: 30s
    timeout: 10s
    consecutiveFailures: 7
  asyncCleanup: onCompletion
`,
			wantCfg: &Config{
				Breaker: BreakerConfig{
					MaxRequests:         3,
					Interval:            config.TimeDuration(30 * time.Second),
					Timeout:             config.TimeDuration(10 * time.Second),
					ConsecutiveFailures: 7,
				},
				AsyncCleanup: AsyncCleanupOnCompletion,
			},
		},
		{
			name: "invalid async cleanup mode",
			cfgData: `
grpcclient:
  asyncCleanup: never
`,
			wantErrMsg: `grpcclient.asyncCleanup: unknown value "never", should be one of [onReturn onCompletion]`,
		},
		{
			name: "zero consecutive failures",
			cfgData: `
grpcclient:
  breaker:
    consecutiveFailures: 0
`,
			wantErrMsg: "grpcclient.breaker.consecutiveFailures: should be >= 1",
		},
		{
			name: "zero timeout",
			cfgData: `
grpcclient:
  breaker:
    timeout: 0s
`,
			wantErrMsg: "grpcclient.breaker.timeout: should be > 0",
		},
		{
			name: "invalid interval",
			cfgData: `
grpcclient:
  breaker:
    interval: soon
`,
			wantErrMsg: "grpcclient.breaker.interval",
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("")
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			if tt.wantErrMsg != "" {
				require.ErrorContains(t, err, tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			cfg.keyPrefix = ""
			require.Equal(t, tt.wantCfg, cfg)
		})
	}
}

func TestConfig_KeyPrefix(t *testing.T) {
	require.Equal(t, "grpcclient", NewConfig("").KeyPrefix())
	require.Equal(t, "clients.users", NewConfig("clients.users").KeyPrefix())
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`
breaker:
  maxRequests: 2
  timeout: 1m30s
asyncCleanup: onReturn
`), &cfg))
	require.Equal(t, uint32(2), cfg.Breaker.MaxRequests)
	require.Equal(t, config.TimeDuration(90*time.Second), cfg.Breaker.Timeout)
	require.Equal(t, AsyncCleanupOnReturn, cfg.AsyncCleanup)
}
