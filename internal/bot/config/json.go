package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/profilebot/internal/flagx"
	"github.com/dmitrijs2005/profilebot/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from a zero value so that a partial file only
// overrides what it names.
type JsonConfig struct {
	IDBaseURL       *string `json:"id_base_url"`
	CloudBaseURL    *string `json:"cloud_base_url"`
	OSSModelBaseURL *string `json:"oss_model_base_url"`
	OSSModelBucket  *string `json:"oss_model_bucket"`
	OSSImageBaseURL *string `json:"oss_image_base_url"`
	OSSImageBucket  *string `json:"oss_image_bucket"`
	CDNImageBaseURL *string `json:"cdn_image_base_url"`

	ClientID  *string `json:"client_id"`
	UserAgent *string `json:"user_agent"`
	Platform  *int    `json:"platform"`
	Locale    *string `json:"locale"`

	RequestTimeout *timex.Duration `json:"request_timeout"`
	UploadTimeout  *timex.Duration `json:"upload_timeout"`

	WorkDir       *string `json:"work_dir"`
	TemplatesDir  *string `json:"templates_dir"`
	CatalogPath   *string `json:"catalog_path"`
	CatalogDriver *string `json:"catalog_driver"`
	PrintersFile  *string `json:"printers_file"`
	CatalogImport *string `json:"catalog_import"`

	MaxPages    *int            `json:"max_pages"`
	PageSize    *int            `json:"page_size"`
	UploadDelay *timex.Duration `json:"upload_delay"`

	SendContentMD5 *bool `json:"send_content_md5"`

	MirrorBucket   *string `json:"mirror_bucket"`
	MirrorRegion   *string `json:"mirror_region"`
	MirrorEndpoint *string `json:"mirror_endpoint"`

	MetricsTextfile *string `json:"metrics_textfile"`
	LogLevel        *string `json:"log_level"`
	LogJSON         *bool   `json:"log_json"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.IDBaseURL, jc.IDBaseURL)
	setString(&cfg.CloudBaseURL, jc.CloudBaseURL)
	setString(&cfg.OSSModelBaseURL, jc.OSSModelBaseURL)
	setString(&cfg.OSSModelBucket, jc.OSSModelBucket)
	setString(&cfg.OSSImageBaseURL, jc.OSSImageBaseURL)
	setString(&cfg.OSSImageBucket, jc.OSSImageBucket)
	setString(&cfg.CDNImageBaseURL, jc.CDNImageBaseURL)
	setString(&cfg.ClientID, jc.ClientID)
	setString(&cfg.UserAgent, jc.UserAgent)
	setString(&cfg.Locale, jc.Locale)
	setString(&cfg.WorkDir, jc.WorkDir)
	setString(&cfg.TemplatesDir, jc.TemplatesDir)
	setString(&cfg.CatalogPath, jc.CatalogPath)
	setString(&cfg.CatalogDriver, jc.CatalogDriver)
	setString(&cfg.PrintersFile, jc.PrintersFile)
	setString(&cfg.CatalogImport, jc.CatalogImport)
	setString(&cfg.MirrorBucket, jc.MirrorBucket)
	setString(&cfg.MirrorRegion, jc.MirrorRegion)
	setString(&cfg.MirrorEndpoint, jc.MirrorEndpoint)
	setString(&cfg.MetricsTextfile, jc.MetricsTextfile)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.Platform != nil {
		cfg.Platform = *jc.Platform
	}
	if jc.MaxPages != nil {
		cfg.MaxPages = *jc.MaxPages
	}
	if jc.PageSize != nil {
		cfg.PageSize = *jc.PageSize
	}
	if jc.SendContentMD5 != nil {
		cfg.SendContentMD5 = *jc.SendContentMD5
	}
	if jc.LogJSON != nil {
		cfg.LogJSON = *jc.LogJSON
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UploadTimeout != nil {
		cfg.UploadTimeout = jc.UploadTimeout.Duration
	}
	if jc.UploadDelay != nil {
		cfg.UploadDelay = jc.UploadDelay.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
