package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// envBindings maps environment variables onto Config fields.
var envBindings = map[string]func(*Config, string) error{
	"CREALITY_ACCOUNT":    func(c *Config, v string) error { c.Account = v; return nil },
	"CREALITY_PASSWORD":   func(c *Config, v string) error { c.Password = v; return nil },
	"CREALITY_CLIENT_ID":  func(c *Config, v string) error { c.ClientID = v; return nil },
	"CREALITY_USER_AGENT": func(c *Config, v string) error { c.UserAgent = v; return nil },
	"CREALITY_DUID":       func(c *Config, v string) error { c.DUID = v; return nil },

	"PROFILEBOT_WORK_DIR":         func(c *Config, v string) error { c.WorkDir = v; return nil },
	"PROFILEBOT_TEMPLATES_DIR":    func(c *Config, v string) error { c.TemplatesDir = v; return nil },
	"PROFILEBOT_CATALOG":          func(c *Config, v string) error { c.CatalogPath = v; return nil },
	"PROFILEBOT_CATALOG_DRIVER":   func(c *Config, v string) error { c.CatalogDriver = v; return nil },
	"PROFILEBOT_PRINTERS_FILE":    func(c *Config, v string) error { c.PrintersFile = v; return nil },
	"PROFILEBOT_CATALOG_IMPORT":   func(c *Config, v string) error { c.CatalogImport = v; return nil },
	"PROFILEBOT_OSS_ACCESS_KEY":   func(c *Config, v string) error { c.OSSAccessKeyID = v; return nil },
	"PROFILEBOT_OSS_SECRET_KEY":   func(c *Config, v string) error { c.OSSAccessKeySecret = v; return nil },
	"PROFILEBOT_MIRROR_BUCKET":    func(c *Config, v string) error { c.MirrorBucket = v; return nil },
	"PROFILEBOT_MIRROR_REGION":    func(c *Config, v string) error { c.MirrorRegion = v; return nil },
	"PROFILEBOT_MIRROR_ENDPOINT":  func(c *Config, v string) error { c.MirrorEndpoint = v; return nil },
	"PROFILEBOT_MIRROR_ACCESS":    func(c *Config, v string) error { c.MirrorAccessKey = v; return nil },
	"PROFILEBOT_MIRROR_SECRET":    func(c *Config, v string) error { c.MirrorSecretKey = v; return nil },
	"PROFILEBOT_METRICS_TEXTFILE": func(c *Config, v string) error { c.MetricsTextfile = v; return nil },
	"PROFILEBOT_LOG_LEVEL":        func(c *Config, v string) error { c.LogLevel = v; return nil },
	"PROFILEBOT_MAX_PAGES": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.MaxPages = n
		return nil
	},
	"PROFILEBOT_UPLOAD_DELAY": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.UploadDelay = d
		return nil
	},
	"PROFILEBOT_SEND_CONTENT_MD5": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.SendContentMD5 = b
		return nil
	},
}

// parseEnv loads the env file (if any) into the process environment and
// overlays Config with the bound variables. Values already exported in the
// environment win over the file. It panics on malformed files or values.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		panic(err)
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for name, set := range envBindings {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			return &envError{name: name, err: err}
		}
	}
	return nil
}

type envError struct {
	name string
	err  error
}

func (e *envError) Error() string { return "env " + e.name + ": " + e.err.Error() }
func (e *envError) Unwrap() error { return e.err }
