// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads ./configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and applies
// environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	candidates := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		candidates = append(candidates, filepath.Join(rootDir, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders inside string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that were left empty in YAML from plain env vars.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.LLM.APIKey, "LLM_API_KEY"},
		{&cfg.LLM.BaseURL, "LLM_BASE_URL"},
		{&cfg.Mail.SMTP.Username, "SMTP_USERNAME"},
		{&cfg.Mail.SMTP.Password, "SMTP_PASSWORD"},
		{&cfg.Mail.AdminEmail, "ADMIN_EMAIL"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.Alerts.TopicARN, "ALERTS_TOPIC_ARN"},
	}
	for _, o := range overrides {
		if *o.target != "" {
			continue
		}
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.HTTPAddress == "" {
		cfg.App.HTTPAddress = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Report generation is slow; workers get a longer lease than the Camunda default.
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 2
		}
		if worker.Timeout == 0 {
			worker.Timeout = 600000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120000
	}
	if cfg.LLM.DistillTimeout == 0 {
		cfg.LLM.DistillTimeout = 45000
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}

	if cfg.PDF.RenderPath == "" {
		cfg.PDF.RenderPath = "/generate-pdf"
	}
	if cfg.PDF.HealthPath == "" {
		cfg.PDF.HealthPath = "/health"
	}
	if cfg.PDF.Timeout == 0 {
		cfg.PDF.Timeout = 90000
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "none"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SubjectDE == "" {
		cfg.Mail.SubjectDE = "Ihr KI-Statusbericht"
	}
	if cfg.Mail.SubjectEN == "" {
		cfg.Mail.SubjectEN = "Your AI status report"
	}

	if cfg.Delivery.IdempotencyBackend == "" {
		cfg.Delivery.IdempotencyBackend = "memory"
	}
	if cfg.Delivery.IdempotencyTTL == 0 {
		cfg.Delivery.IdempotencyTTL = 30 * 60 * 1000
	}
	if cfg.Delivery.JobStore == "" {
		cfg.Delivery.JobStore = "memory"
	}
	if cfg.Delivery.Filename == "" {
		cfg.Delivery.Filename = "ki-statusbericht.pdf"
	}
	if cfg.Delivery.GuardWindow == 0 {
		cfg.Delivery.GuardWindow = 400
	}

	if cfg.Report.DefaultLanguage == "" {
		cfg.Report.DefaultLanguage = "de"
	}
	if cfg.Report.ChapterConcurrency == 0 {
		cfg.Report.ChapterConcurrency = 1
	}
	if cfg.Report.Archive.Index == "" {
		cfg.Report.Archive.Index = "reports"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Mail.Provider {
	case "none", "ses":
	case "smtp":
		if cfg.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail.smtp.host is required when mail.provider is smtp")
		}
	default:
		return fmt.Errorf("mail.provider must be one of smtp, ses, none (got %q)", cfg.Mail.Provider)
	}
	if cfg.Mail.Provider != "none" && cfg.Mail.From == "" {
		return fmt.Errorf("mail.from is required when mail delivery is enabled")
	}

	switch cfg.Delivery.IdempotencyBackend {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis idempotency backend")
		}
	default:
		return fmt.Errorf("delivery.idempotency_backend must be memory or redis (got %q)", cfg.Delivery.IdempotencyBackend)
	}

	switch cfg.Delivery.JobStore {
	case "memory":
	case "postgres":
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" || cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres host, database and user are required for the postgres job store")
		}
	default:
		return fmt.Errorf("delivery.job_store must be memory or postgres (got %q)", cfg.Delivery.JobStore)
	}

	if cfg.Report.Archive.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when the report archive is enabled")
	}
	if cfg.Alerts.Enabled && cfg.Alerts.TopicARN == "" {
		return fmt.Errorf("alerts.topic_arn is required when alerts are enabled")
	}
	if cfg.Report.ChapterConcurrency < 1 {
		return fmt.Errorf("report.chapter_concurrency must be at least 1")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 2,
		Timeout:       600000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
