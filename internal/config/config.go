package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Retention policies for the remote copy of each converted artifact.
const (
	RetentionBestEffort = "best-effort" // failures are logged, the response proceeds
	RetentionRequired   = "required"    // failures abort the request with a 500
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	CORSOrigins string `yaml:"cors_origins"`

	// Scratch directories, relative to the working directory unless absolute
	UploadDir    string `yaml:"upload_dir"`
	ConvertedDir string `yaml:"converted_dir"`

	// Converter
	SofficePath    string        `yaml:"soffice_path"`
	ConvertTimeout time.Duration `yaml:"convert_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`

	// Remote retention (Cloudinary)
	CloudinaryCloudName string        `yaml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string        `yaml:"cloudinary_api_key"`
	CloudinaryAPISecret string        `yaml:"-"` // env only
	RetentionFolder     string        `yaml:"retention_folder"`
	RetentionPolicy     string        `yaml:"retention_policy"`
	RetentionTimeout    time.Duration `yaml:"retention_timeout"`

	// PublicEndpoint is the conversion URL rendered into the upload page
	PublicEndpoint string `yaml:"public_endpoint"`

	LogDir      string `yaml:"log_dir"`
	LogPrefix   string `yaml:"log_prefix"`
	LogMaxFiles int    `yaml:"log_max_files"`

	Debug bool `yaml:"debug"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Port:             "5000",
		Environment:      "dev",
		CORSOrigins:      "*",
		UploadDir:        "uploads",
		ConvertedDir:     "converted",
		SofficePath:      "soffice",
		ConvertTimeout:   2 * time.Minute,
		MaxUploadMB:      DefaultMaxUploadMB,
		RetentionFolder:  "converted_docs",
		RetentionPolicy:  RetentionBestEffort,
		RetentionTimeout: 30 * time.Second,
		PublicEndpoint:   "/convert",
		LogPrefix:        "docconvert",
		LogMaxFiles:      10,
		Debug:            true,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and finally environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.CORSOrigins = getEnv("CORS_ORIGINS", c.CORSOrigins)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.ConvertedDir = getEnv("CONVERTED_DIR", c.ConvertedDir)
	c.SofficePath = getEnv("SOFFICE_PATH", c.SofficePath)
	c.CloudinaryCloudName = getEnv("CLOUDINARY_CLOUD_NAME", c.CloudinaryCloudName)
	c.CloudinaryAPIKey = getEnv("CLOUDINARY_API_KEY", c.CloudinaryAPIKey)
	c.CloudinaryAPISecret = getEnv("CLOUDINARY_API_SECRET", c.CloudinaryAPISecret)
	c.RetentionFolder = getEnv("RETENTION_FOLDER", c.RetentionFolder)
	c.RetentionPolicy = getEnv("RETENTION_POLICY", c.RetentionPolicy)
	c.PublicEndpoint = getEnv("PUBLIC_ENDPOINT", c.PublicEndpoint)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.LogPrefix = getEnv("LOG_PREFIX", c.LogPrefix)

	var err error
	if c.ConvertTimeout, err = getDuration("CONVERT_TIMEOUT", c.ConvertTimeout); err != nil {
		return err
	}
	if c.RetentionTimeout, err = getDuration("RETENTION_TIMEOUT", c.RetentionTimeout); err != nil {
		return err
	}
	if c.MaxUploadMB, err = getInt64("MAX_UPLOAD_MB", c.MaxUploadMB); err != nil {
		return err
	}
	maxFiles, err := getInt64("LOG_MAX_FILES", int64(c.LogMaxFiles))
	if err != nil {
		return err
	}
	c.LogMaxFiles = int(maxFiles)

	// Debug defaults to on outside production unless set explicitly
	c.Debug = getEnv("DEBUG", getDefaultDebug(c.Environment, c.Debug)) == "true"
	return nil
}

// Validate checks that the configuration can run a server.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.By(isPort)),
		validation.Field(&c.Environment, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.UploadDir, validation.Required),
		validation.Field(&c.ConvertedDir, validation.Required, validation.NotIn(c.UploadDir).Error("must differ from upload_dir")),
		validation.Field(&c.SofficePath, validation.Required),
		validation.Field(&c.ConvertTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(int64(1)), validation.Max(int64(MaxUploadMBLimit))),
		validation.Field(&c.RetentionFolder, validation.Required),
		validation.Field(&c.RetentionPolicy, validation.Required, validation.In(RetentionBestEffort, RetentionRequired)),
		validation.Field(&c.RetentionTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PublicEndpoint, validation.Required),
		validation.Field(&c.LogPrefix, validation.Required, validation.Match(logPrefixPattern)),
		validation.Field(&c.LogMaxFiles, validation.Min(1)),
	)
}

// RetentionEnabled reports whether all three Cloudinary credentials are set.
func (c *Config) RetentionEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// AllowedOrigins splits CORSOrigins into the list rs/cors expects.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// logPrefixPattern keeps the prefix a single file name element.
var logPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func isPort(value interface{}) error {
	s, _ := value.(string)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a TCP port between 1 and 65535")
	}
	return nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string, current bool) string {
	if env == "prod" {
		return "false"
	}
	return strconv.FormatBool(current)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
