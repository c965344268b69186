package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		boolFlags    []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-w", "/tmp"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-w", "/tmp"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "bool flag does not swallow next argument",
			args:         []string{"-dry-run", "positional", "-p", "3"},
			allowedFlags: []string{"-dry-run", "-p"},
			boolFlags:    []string{"-dry-run"},
			want:         []string{"-dry-run", "-p", "3"},
		},
		{
			name:         "bool flag with explicit value",
			args:         []string{"-dry-run=false"},
			allowedFlags: []string{"-dry-run"},
			boolFlags:    []string{"-dry-run"},
			want:         []string{"-dry-run=false"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags, tt.boolFlags...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"bin"}, args...)
}

func TestJsonConfigFlags(t *testing.T) {
	withArgs(t, "-w", "/tmp", "-config", "bot.json")
	assert.Equal(t, "bot.json", JsonConfigFlags())

	withArgs(t, "-c=short.json")
	assert.Equal(t, "short.json", JsonConfigFlags())

	withArgs(t, "-w", "/tmp")
	assert.Equal(t, "", JsonConfigFlags())
}

func TestEnvFileFlags(t *testing.T) {
	withArgs(t, "-e", "prod.env", "-c", "x.json")
	assert.Equal(t, "prod.env", EnvFileFlags())

	withArgs(t, "--env-file=.env.local")
	assert.Equal(t, ".env.local", EnvFileFlags())
}
