package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the bot.
type Config struct {
	// Platform endpoints.
	IDBaseURL       string
	CloudBaseURL    string
	OSSModelBaseURL string
	OSSModelBucket  string
	OSSImageBaseURL string
	OSSImageBucket  string
	CDNImageBaseURL string

	// Client identity presented to the platform.
	ClientID  string
	UserAgent string
	DUID      string
	Platform  int
	Locale    string
	Lang      int
	Timezone  int

	Account  string
	Password string

	RequestTimeout time.Duration
	UploadTimeout  time.Duration

	WorkDir       string
	TemplatesDir  string
	CatalogPath   string
	CatalogDriver string
	PrintersFile  string

	// CatalogImport names a JSON catalog copied into an empty SQLite
	// catalog on start.
	CatalogImport string

	MaxPages    int
	PageSize    int
	UploadDelay time.Duration

	// SendContentMD5 adds Content-MD5 to the multipart upload-part phase.
	SendContentMD5 bool

	// Static storage key. When both are set the bot does not ask the
	// platform for temporary credentials.
	OSSAccessKeyID     string
	OSSAccessKeySecret string

	// Optional S3-compatible mirror of produced variants.
	MirrorBucket    string
	MirrorRegion    string
	MirrorEndpoint  string
	MirrorAccessKey string
	MirrorSecretKey string

	MetricsTextfile string

	LogLevel string
	LogJSON  bool
	DryRun   bool
}

// LoadDefaults populates c with the values the live platform expects.
func (c *Config) LoadDefaults() {
	c.IDBaseURL = "https://id.creality.com"
	c.CloudBaseURL = "https://www.crealitycloud.com"
	c.OSSModelBaseURL = "https://internal-creality-usa.oss-us-east-1.aliyuncs.com"
	c.OSSModelBucket = "internal-creality-usa"
	c.OSSImageBaseURL = "https://pic2-creality.oss-us-east-1.aliyuncs.com"
	c.OSSImageBucket = "pic2-creality"
	c.CDNImageBaseURL = "https://pic2-cdn.creality.com/crealityCloud/upload"

	c.ClientID = "f9c302ecc29c59a0a6e921ff39a073ca"
	c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	c.Platform = 2
	c.Locale = "es-ES"
	c.Lang = 7
	c.Timezone = 3600

	c.RequestTimeout = 15 * time.Second
	c.UploadTimeout = 120 * time.Second

	c.WorkDir = "work"
	c.TemplatesDir = "plantillas"
	c.CatalogPath = "models_db.json"
	c.CatalogDriver = "json"

	c.MaxPages = 5
	c.PageSize = 20
	c.UploadDelay = 2 * time.Second

	c.MirrorRegion = "us-east-1"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Account == "" {
		errs = append(errs, errors.New("CREALITY_ACCOUNT is not set"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("CREALITY_PASSWORD is not set"))
	}
	if c.CatalogDriver != "json" && c.CatalogDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown catalog driver %q", c.CatalogDriver))
	}
	if c.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("max pages must be positive, got %d", c.MaxPages))
	}
	if c.UploadDelay < 0 {
		errs = append(errs, fmt.Errorf("upload delay must not be negative"))
	}
	return errors.Join(errs...)
}
