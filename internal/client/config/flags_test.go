package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "provider, callback and session",
			args: []string{"cmd", "-p", "memory", "-a", "127.0.0.1:9090", "-s", "state.db", "-timeout", "10s"},
			expected: &Config{Provider: "memory", CallbackAddr: "127.0.0.1:9090", SessionDSN: "state.db",
				RequestTimeout: 10 * time.Second},
		},
		{
			name:     "log flags and template dir",
			args:     []string{"cmd", "-log-level", "debug", "-log-format", "json", "-t", "./tpl", "-c", "ignored.json"},
			expected: &Config{LogLevel: "debug", LogFormat: "json", TemplateDir: "./tpl"},
		},
		{name: "incorrect timeout", args: []string{"cmd", "-timeout", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
