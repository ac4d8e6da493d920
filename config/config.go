// Package config loads service configuration from a YAML file, a .env file,
// and environment variable overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Site struct {
		BaseURL    string `yaml:"base_url"`
		SitemapURL string `yaml:"sitemap_url"`
	} `yaml:"site"`
	Engine struct {
		WindowWords    int `yaml:"window_words"`
		SuggestWorkers int `yaml:"suggest_workers"`
	} `yaml:"engine"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	GetImg struct {
		APIKey string `yaml:"api_key"`
		APIURL string `yaml:"api_url"`
	} `yaml:"getimg"`
	Serper struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"serper"`
	WordPress struct {
		Username    string `yaml:"username"`
		AppPassword string `yaml:"app_password"`
	} `yaml:"wordpress"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Backend  string `yaml:"backend"` // "filesystem" or "s3"
		BasePath string `yaml:"base_path"`
		S3       struct {
			Endpoint        string `yaml:"endpoint"`
			Region          string `yaml:"region"`
			Bucket          string `yaml:"bucket"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
			UsePathStyle    bool   `yaml:"use_path_style"`
		} `yaml:"s3"`
	} `yaml:"storage"`
}

// Load reads the YAML file at path and applies environment overrides.
// path may be empty, in which case only .env and the environment apply.
func Load(path string) (*Config, error) {
	// .env is a convenience for local development; absence is fine.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setIfPresent(&cfg.Site.BaseURL, "AUGMENTER_BASE_URL")
	setIfPresent(&cfg.Site.SitemapURL, "AUGMENTER_SITEMAP_URL")
	setIfPresent(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setIfPresent(&cfg.Gemini.Model, "GEMINI_MODEL")
	setIfPresent(&cfg.GetImg.APIKey, "GETIMG_API_KEY")
	setIfPresent(&cfg.GetImg.APIURL, "GETIMG_API_URL")
	setIfPresent(&cfg.Serper.APIKey, "SERPER_API_KEY")
	setIfPresent(&cfg.WordPress.Username, "WORDPRESS_USERNAME")
	setIfPresent(&cfg.WordPress.AppPassword, "WORDPRESS_APP_PASSWORD")
	setIfPresent(&cfg.Database.DSN, "DATABASE_DSN")
	setIfPresent(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setIfPresent(&cfg.Storage.BasePath, "STORAGE_BASE_PATH")
	setIfPresent(&cfg.Storage.S3.Endpoint, "S3_ENDPOINT")
	setIfPresent(&cfg.Storage.S3.Region, "S3_REGION")
	setIfPresent(&cfg.Storage.S3.Bucket, "S3_BUCKET")
	setIfPresent(&cfg.Storage.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setIfPresent(&cfg.Storage.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
}

// SitemapURL returns the configured sitemap location, defaulting to the
// conventional path under the site's base URL.
func (c *Config) SitemapURL() string {
	if c.Site.SitemapURL != "" {
		return c.Site.SitemapURL
	}
	return c.Site.BaseURL + "/sitemap.xml"
}
