package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/timmy/altseo/internal/quality"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Providers    []ProviderConfig   `mapstructure:"providers"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Multilingual MultilingualConfig `mapstructure:"multilingual"`
	Pricing      PricingConfig      `mapstructure:"pricing"`
	Batch        BatchConfig        `mapstructure:"batch"`
	Auth         AuthConfig         `mapstructure:"auth"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the gorm driver and its connection settings.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres or mysql
	Path            string        `mapstructure:"path"`   // sqlite file path
	URL             string        `mapstructure:"url"`    // full DSN, overrides the parts below
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	default:
		return c.Path
	}
}

// StorageConfig selects where original image bytes live.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // s3, r2, s3compatible or local
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	LocalRoot string `mapstructure:"local_root"`
}

// AnalysisConfig is the raw form of Settings as read from the config file.
type AnalysisConfig struct {
	AIRole               string            `mapstructure:"ai_role"`
	SiteContext          string            `mapstructure:"site_context"`
	AltMaxLength         int               `mapstructure:"alt_max_length"`
	PromptVariant        string            `mapstructure:"prompt_variant"`
	TemplateFile         string            `mapstructure:"template_file"`
	AutoApproveThreshold float64           `mapstructure:"auto_approve_threshold"`
	AutoApply            bool              `mapstructure:"auto_apply"`
	RateLimitRPM         int               `mapstructure:"rate_limit_rpm"`
	FallbackOrder        []string          `mapstructure:"fallback_order"`
	ProviderTimeout      time.Duration     `mapstructure:"provider_timeout"`
	QualityRules         quality.Rules     `mapstructure:"quality_rules"`
	Templates            map[string]string `mapstructure:"templates"`
}

type MultilingualConfig struct {
	DefaultLanguage string              `mapstructure:"default_language"`
	HubLanguage     string              `mapstructure:"hub_language"`
	Languages       []string            `mapstructure:"languages"`
	FallbackChains  map[string][]string `mapstructure:"fallback_chains"`
}

type PricingConfig struct {
	SourceURL   string        `mapstructure:"source_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.region", "S3_REGION")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("pricing.source_url", "PRICING_SOURCE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = DefaultProviders()
	}
	for i := range cfg.Providers {
		cfg.Providers[i].ResolveEnvVars()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/altseo.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_root", "./data/uploads")
	v.SetDefault("storage.bucket", "altseo")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("analysis.ai_role", "SEO specialist writing accessible image metadata")
	v.SetDefault("analysis.alt_max_length", 125)
	v.SetDefault("analysis.prompt_variant", "standard")
	v.SetDefault("analysis.auto_approve_threshold", 0.85)
	v.SetDefault("analysis.auto_apply", true)
	v.SetDefault("analysis.rate_limit_rpm", 60)
	v.SetDefault("analysis.fallback_order", []string{"openai", "anthropic", "gemini"})
	v.SetDefault("analysis.provider_timeout", 30*time.Second)
	v.SetDefault("multilingual.default_language", "en")
	v.SetDefault("multilingual.hub_language", "en")
	v.SetDefault("multilingual.languages", []string{"en"})
	v.SetDefault("pricing.timeout", 15*time.Second)
	v.SetDefault("pricing.max_attempts", 3)
	v.SetDefault("pricing.lock_ttl", 5*time.Minute)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("auth.issuer", "altseo")
}
