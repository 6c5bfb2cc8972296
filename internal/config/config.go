// Package config loads service configuration from the environment (prefix
// GOFR_DOC) with an optional YAML file underneath.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the service.
type Config struct {
	// Filesystem roots.
	DataDir      string `mapstructure:"data_dir"`
	TemplatesDir string `mapstructure:"templates_dir"`
	FragmentsDir string `mapstructure:"fragments_dir"`
	StylesDir    string `mapstructure:"styles_dir"`
	StockDir     string `mapstructure:"stock_dir"`

	// HTTP surface.
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Housekeeping.
	MaxStorageMB             int           `mapstructure:"max_storage_mb"`
	HousekeepingInterval     time.Duration `mapstructure:"housekeeping_interval"`
	HousekeeperLockStaleFor  time.Duration `mapstructure:"housekeeper_lock_stale"`

	// Image fragment validation.
	ImageMaxSizeMB         int           `mapstructure:"image_max_size_mb"`
	ImageValidationTimeout time.Duration `mapstructure:"image_validation_timeout"`
	ImageRequireHTTPS      bool          `mapstructure:"image_require_https"`

	// Auth.
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SecretCacheTTL time.Duration `mapstructure:"secret_cache_ttl"`

	// Storage.
	MaxBlobSizeMB int `mapstructure:"max_blob_size_mb"`

	// Rendering.
	PDFTimeout time.Duration `mapstructure:"pdf_timeout"`
}

// Load reads configuration from the environment and, when present, from the
// file at path (YAML). Environment always wins.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOFR_DOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The published env names use suffixes like _MINS and _SECONDS; map them
	// onto the duration keys.
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("templates_dir", "./templates")
	v.SetDefault("fragments_dir", "./fragments")
	v.SetDefault("styles_dir", "./styles")
	v.SetDefault("stock_dir", "./stock_images")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetDefault("max_storage_mb", 1024)
	v.SetDefault("housekeeping_interval", time.Hour)
	v.SetDefault("housekeeper_lock_stale", time.Hour)

	v.SetDefault("image_max_size_mb", 10)
	v.SetDefault("image_validation_timeout", 10*time.Second)
	v.SetDefault("image_require_https", true)

	v.SetDefault("secret_cache_ttl", 5*time.Minute)
	v.SetDefault("max_blob_size_mb", 64)
	v.SetDefault("pdf_timeout", 60*time.Second)
}

func bindLegacyEnv(v *viper.Viper) {
	if mins := v.GetInt("housekeeping_interval_mins"); mins > 0 {
		v.Set("housekeeping_interval", time.Duration(mins)*time.Minute)
	}
	if secs := v.GetInt("housekeeper_lock_stale_seconds"); secs > 0 {
		v.Set("housekeeper_lock_stale", time.Duration(secs)*time.Second)
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxStorageMB <= 0 {
		return fmt.Errorf("max_storage_mb must be positive, got %d", c.MaxStorageMB)
	}
	if c.ImageMaxSizeMB <= 0 {
		return fmt.Errorf("image_max_size_mb must be positive, got %d", c.ImageMaxSizeMB)
	}
	return nil
}

// MaxStorageBytes returns the housekeeper threshold in bytes.
func (c *Config) MaxStorageBytes() int64 { return int64(c.MaxStorageMB) * 1024 * 1024 }

// ImageMaxSizeBytes returns the image fragment cap in bytes.
func (c *Config) ImageMaxSizeBytes() int64 { return int64(c.ImageMaxSizeMB) * 1024 * 1024 }

// MaxBlobSizeBytes returns the storage save cap in bytes.
func (c *Config) MaxBlobSizeBytes() int64 { return int64(c.MaxBlobSizeMB) * 1024 * 1024 }
