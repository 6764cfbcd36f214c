package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		names     []string
		boolFlags []string
		want      []string
	}{
		{
			name:  "short flag with separate value",
			args:  []string{"-c", "conf.json", "-p", "dropbox"},
			names: []string{"c", "config"},
			want:  []string{"-c", "conf.json"},
		},
		{
			name:  "long flag with equals",
			args:  []string{"--config=alt.json", "-p", "s3"},
			names: []string{"c", "config"},
			want:  []string{"--config=alt.json"},
		},
		{
			name:  "both short and long present, preserve order",
			args:  []string{"--config=first.json", "-c", "second.json", "-x", "1"},
			names: []string{"c", "config"},
			want:  []string{"--config=first.json", "-c", "second.json"},
		},
		{
			name:  "unknown flags ignored",
			args:  []string{"-x", "1", "--y=2", "positional"},
			names: []string{"c", "config"},
			want:  []string{},
		},
		{
			name:  "flag without value at end is kept as-is",
			args:  []string{"-c"},
			names: []string{"c", "config"},
			want:  []string{"-c"},
		},
		{
			name:  "flag followed by another flag (no value)",
			args:  []string{"-c", "-notvalue"},
			names: []string{"c", "config"},
			want:  []string{"-c"},
		},
		{
			name:  "value that looks like a flag but with equals form",
			args:  []string{"--config=--weird.json"},
			names: []string{"config"},
			want:  []string{"--config=--weird.json"},
		},
		{
			name:  "multiple allowed flags kept",
			args:  []string{"-a", "127.0.0.1:53682", "-c", "conf.json", "--other", "x"},
			names: []string{"c", "a"},
			want:  []string{"-a", "127.0.0.1:53682", "-c", "conf.json"},
		},
		{
			name:  "empty args",
			args:  []string{},
			names: []string{"c", "config"},
			want:  []string{},
		},
		{
			name:  "path with spaces remains single arg",
			args:  []string{"-c", "/home/user/.config/flogger.json"},
			names: []string{"c"},
			want:  []string{"-c", "/home/user/.config/flogger.json"},
		},
		{
			name:  "do not treat next dash-starting token as value",
			args:  []string{"-c", "--config=alt.json"},
			names: []string{"c", "config"},
			want:  []string{"-c", "--config=alt.json"},
		},
		{
			name:  "repeated allowed flag is preserved in order",
			args:  []string{"-c", "one.json", "-c", "two.json"},
			names: []string{"c"},
			want:  []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:  "single and double dash are the same flag",
			args:  []string{"--c", "a.json", "-config", "b.json"},
			names: []string{"c", "config"},
			want:  []string{"--c", "a.json", "-config", "b.json"},
		},
		{
			name:      "bool flag does not consume next token",
			args:      []string{"-v", "positional", "-c", "x.json"},
			names:     []string{"c"},
			boolFlags: []string{"v"},
			want:      []string{"-v", "-c", "x.json"},
		},
		{
			name:  "arguments after -- are not flags",
			args:  []string{"-c", "a.json", "--", "-c", "b.json"},
			names: []string{"c"},
			want:  []string{"-c", "a.json"},
		},
		{
			name:  "lone dash is not a flag",
			args:  []string{"-", "-c", "a.json"},
			names: []string{"c"},
			want:  []string{"-c", "a.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.names, tt.boolFlags...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", JsonConfigFlags())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", JsonConfigFlags())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "-x", "1", "-y", "2"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", JsonConfigFlags())
	})
}

func TestJsonConfigFrom(t *testing.T) {
	assert.Equal(t, "a.json", JsonConfigFrom([]string{"-p", "memory", "--config=a.json"}))
	assert.Equal(t, "b.json", JsonConfigFrom([]string{"-s", "session.db", "-c", "b.json", "-log-level", "debug"}))
	assert.Empty(t, JsonConfigFrom(nil))
}
