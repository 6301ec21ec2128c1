// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	LLM      LLMConfig               `mapstructure:"llm"`
	PDF      PDFConfig               `mapstructure:"pdf"`
	Mail     MailConfig              `mapstructure:"mail"`
	Delivery DeliveryConfig          `mapstructure:"delivery"`
	Report   ReportConfig            `mapstructure:"report"`
	Prompts  PromptsConfig           `mapstructure:"prompts"`
	Alerts   AlertsConfig            `mapstructure:"alerts"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Report pipeline ---

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
// An empty APIKey disables LLM calls and chapters fall back to static text.
type LLMConfig struct {
	BaseURL               string  `mapstructure:"base_url"`
	APIKey                string  `mapstructure:"api_key"`
	Model                 string  `mapstructure:"model"`
	ExecutiveSummaryModel string  `mapstructure:"executive_summary_model"`
	Temperature           float64 `mapstructure:"temperature"`
	MaxTokens             int     `mapstructure:"max_tokens"`
	Timeout               int     `mapstructure:"timeout"`         // milliseconds, per chapter
	DistillTimeout        int     `mapstructure:"distill_timeout"` // milliseconds, per distillation call
	MaxRetries            int     `mapstructure:"max_retries"`
}

type PDFConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	RenderPath string `mapstructure:"render_path"`
	HealthPath string `mapstructure:"health_path"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	Warmup     bool   `mapstructure:"warmup"`
}

// MailConfig selects the transport used for report delivery: smtp, ses or none.
type MailConfig struct {
	Provider   string `mapstructure:"provider"`
	From       string `mapstructure:"from"`
	AdminEmail string `mapstructure:"admin_email"`
	SubjectDE  string `mapstructure:"subject_de"`
	SubjectEN  string `mapstructure:"subject_en"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`

	SES struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"ses"`
}

type DeliveryConfig struct {
	IdempotencyBackend string `mapstructure:"idempotency_backend"` // memory | redis
	IdempotencyTTL     int    `mapstructure:"idempotency_ttl"`     // milliseconds
	JobStore           string `mapstructure:"job_store"`           // memory | postgres
	Filename           string `mapstructure:"filename"`
	GuardWindow        int    `mapstructure:"guard_window"` // leading runes scanned for template markers
}

type ReportConfig struct {
	DefaultLanguage    string `mapstructure:"default_language"`
	ChapterConcurrency int    `mapstructure:"chapter_concurrency"`
	Archive            struct {
		Enabled bool   `mapstructure:"enabled"`
		Index   string `mapstructure:"index"`
	} `mapstructure:"archive"`
}

// PromptsConfig optionally overrides the embedded prompt templates with a directory on disk.
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// AlertsConfig configures operator notification via SNS when a delivery job fails.
type AlertsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
