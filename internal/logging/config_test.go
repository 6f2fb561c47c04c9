package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.Stderr)
	assert.Empty(t, cfg.Output.File)
	assert.True(t, cfg.Caller.Enabled)
	assert.Equal(t, 1, cfg.Caller.Skip)
	assert.Equal(t, zapcore.ErrorLevel, cfg.Stacktrace.Level)
	assert.Equal(t, "claude-memory-mcp", cfg.Fields["service"])
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			modify: func(c *Config) {},
		},
		{
			name:   "console format",
			modify: func(c *Config) { c.Format = "console" },
		},
		{
			name:    "invalid format",
			modify:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "no outputs",
			modify:  func(c *Config) { c.Output = OutputConfig{} },
			wantErr: "at least one output",
		},
		{
			name:   "file only",
			modify: func(c *Config) { c.Output = OutputConfig{File: "/tmp/x.log"} },
		},
		{
			name:    "negative caller skip",
			modify:  func(c *Config) { c.Caller.Skip = -1 },
			wantErr: "caller skip",
		},
		{
			name:   "negative skip ignored when caller disabled",
			modify: func(c *Config) { c.Caller = CallerConfig{Enabled: false, Skip: -1} },
		},
		{
			name:    "empty field key",
			modify:  func(c *Config) { c.Fields[""] = "x" },
			wantErr: "field key cannot be empty",
		},
		{
			name:    "empty field value",
			modify:  func(c *Config) { c.Fields["env"] = "" },
			wantErr: `field "env" has empty value`,
		},
		{
			name:   "nil fields",
			modify: func(c *Config) { c.Fields = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
