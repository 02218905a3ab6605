/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-rpcinvoker/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfgData string
		wantCfg *Config
		wantErr string
	}{
		{
			name:    "defaults",
			cfgData: ``,
			wantCfg: &Config{
				Level:  LevelInfo,
				Format: FormatJSON,
				Output: OutputStdout,
				File: FileOutputConfig{Rotation: FileRotationConfig{
					MaxSize:    DefaultFileRotationMaxSizeBytes,
					MaxBackups: DefaultFileRotationMaxBackups,
				}},
			},
		},
		{
			name: "file output",
			cfgData: `
log:
  level: DEBUG
  format: text
  output: file
  addCaller: true
  file:
    path: /tmp/invoker.log
    rotation:
      compress: true
      maxSize: 10M
      maxBackups: 3
`,
			wantCfg: &Config{
				Level:     LevelDebug,
				Format:    FormatText,
				Output:    OutputFile,
				AddCaller: true,
				File: FileOutputConfig{
					Path:     "/tmp/invoker.log",
					Rotation: FileRotationConfig{Compress: true, MaxSize: 10 * 1024 * 1024, MaxBackups: 3},
				},
			},
		},
		{
			name:    "unknown level",
			cfgData: "log:\n  level: trace\n",
			wantErr: `log.level: unknown value "trace"`,
		},
		{
			name:    "file output without path",
			cfgData: "log:\n  output: file\n",
			wantErr: `log.file.path: cannot be empty when "file" output is used`,
		},
		{
			name:    "too small rotation size",
			cfgData: "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
			wantErr: "log.file.rotation.maxSize: should be >= 1M",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("")
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			cfg.keyPrefix = ""
			require.Equal(t, tt.wantCfg, cfg)
		})
	}
}
