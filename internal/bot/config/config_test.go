package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"profilebot"}, args...)
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://id.creality.com", c.IDBaseURL)
	assert.Equal(t, "internal-creality-usa", c.OSSModelBucket)
	assert.Equal(t, 2*time.Second, c.UploadDelay)
	assert.Equal(t, 5, c.MaxPages)
	assert.Equal(t, "json", c.CatalogDriver)
	assert.False(t, c.SendContentMD5)
}

func Test_parseJson_PartialOverlay(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"work_dir":       "/srv/work",
		"upload_delay":   "5s",
		"max_pages":      2,
		"catalog_driver": "sqlite",
	})
	withArgs(t, "-config", path)

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, "/srv/work", c.WorkDir)
	assert.Equal(t, 5*time.Second, c.UploadDelay)
	assert.Equal(t, 2, c.MaxPages)
	assert.Equal(t, "sqlite", c.CatalogDriver)
	assert.Equal(t, "plantillas", c.TemplatesDir, "fields absent from the file keep their value")
}

func Test_parseJson_InvalidPanics(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
	withArgs(t, "-c", bad)

	require.Panics(t, func() { parseJson(&Config{}) })
}

func Test_applyEnv(t *testing.T) {
	env := map[string]string{
		"CREALITY_ACCOUNT":            "me@example.com",
		"CREALITY_PASSWORD":           "secret",
		"PROFILEBOT_MAX_PAGES":        "7",
		"PROFILEBOT_UPLOAD_DELAY":     "500ms",
		"PROFILEBOT_SEND_CONTENT_MD5": "true",
		"PROFILEBOT_MIRROR_BUCKET":    "  ",
		"PROFILEBOT_CATALOG_IMPORT":   "old.json",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	var c Config
	c.LoadDefaults()
	require.NoError(t, applyEnv(&c, lookup))

	assert.Equal(t, "me@example.com", c.Account)
	assert.Equal(t, "secret", c.Password)
	assert.Equal(t, 7, c.MaxPages)
	assert.Equal(t, 500*time.Millisecond, c.UploadDelay)
	assert.True(t, c.SendContentMD5)
	assert.Empty(t, c.MirrorBucket, "blank values are ignored")
	assert.Equal(t, "old.json", c.CatalogImport)
}

func Test_applyEnv_BadValue(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "PROFILEBOT_MAX_PAGES" {
			return "many", true
		}
		return "", false
	}
	err := applyEnv(&Config{}, lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROFILEBOT_MAX_PAGES")
}

func Test_parseEnv_FileDoesNotOverrideEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CREALITY_ACCOUNT=file@example.com\nCREALITY_PASSWORD='from-file'\n"), 0o600))
	t.Setenv("CREALITY_ACCOUNT", "shell@example.com")
	t.Setenv("CREALITY_PASSWORD", "")
	require.NoError(t, os.Unsetenv("CREALITY_PASSWORD"))
	withArgs(t, "-e", envFile)

	var c Config
	parseEnv(&c)

	assert.Equal(t, "shell@example.com", c.Account)
	assert.Equal(t, "from-file", c.Password)
}

func Test_parseEnv_MissingExplicitFilePanics(t *testing.T) {
	withArgs(t, "-env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.Panics(t, func() { parseEnv(&Config{}) })
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "overrides",
			args: []string{"-w", "/tmp/w", "-t", "/tmp/t", "-p", "3", "-d", "0", "-dry-run", "-db", "cat.db"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/tmp/w", c.WorkDir)
				assert.Equal(t, "/tmp/t", c.TemplatesDir)
				assert.Equal(t, 3, c.MaxPages)
				assert.Equal(t, time.Duration(0), c.UploadDelay)
				assert.True(t, c.DryRun)
				assert.Equal(t, "cat.db", c.CatalogPath)
			},
		},
		{
			name: "delay untouched when flag absent",
			args: []string{"-c", "ignored.json"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 1500*time.Millisecond, c.UploadDelay)
			},
		},
		{name: "bad page count", args: []string{"-p", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)
			c := &Config{UploadDelay: 1500 * time.Millisecond}
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(c) })
				return
			}
			require.NotPanics(t, func() { parseFlags(c) })
			tt.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREALITY_ACCOUNT")
	assert.Contains(t, err.Error(), "CREALITY_PASSWORD")

	c.Account, c.Password = "a", "b"
	require.NoError(t, c.Validate())

	c.CatalogDriver = "redis"
	require.Error(t, c.Validate())
}
