package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
	"github.com/devricklin/inbox-autopilot/internal/data"
	"github.com/devricklin/inbox-autopilot/internal/service"
)

// Config represents application configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Meta app configuration (webhook verification)
	Meta MetaConfig

	// Graph API configuration
	Graph GraphConfig

	// Completion API configuration
	Completion CompletionConfig

	// Database configuration
	DB DBConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// Tracing configuration (optional)
	Tracing TracingConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// MCP configuration
	MCP MCPConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	ListenAddr      string
	APIToken        string // bearer token for /api, empty disables auth
	ShutdownTimeout time.Duration
}

// MetaConfig contains Meta app configuration
type MetaConfig struct {
	AppSecret   string
	VerifyToken string
}

// GraphConfig contains Graph API configuration
type GraphConfig struct {
	BaseURL string
	Version string
	Timeout time.Duration
	SendRPS float64
}

// CompletionConfig contains completion API configuration
type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DBConfig contains database configuration
type DBConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// PipelineConfig contains pipeline tuning values
type PipelineConfig struct {
	DedupTTL        time.Duration
	ContentWindow   time.Duration
	IdentityTimeout time.Duration
	MaxInFlight     int64
	PerDelivery     int
	EventTimeout    time.Duration
	MaxRetries      int
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Endpoint    string // OTLP/HTTP endpoint, empty disables export
	ServiceName string
}

// MCPConfig contains MCP binary configuration
type MCPConfig struct {
	APIURL string // approval API base URL
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	// Database
	dbDriver := envString("DB_DRIVER", data.DriverSQLite)
	dbDSN := os.Getenv("DB_DSN")
	if dbDSN == "" && dbDriver == data.DriverSQLite {
		dbDSN = os.Getenv("SQLITE_PATH")
		if dbDSN == "" {
			homeDir, _ := os.UserHomeDir()
			dbDSN = filepath.Join(homeDir, ".inbox-autopilot", "autopilot.db")
		}
	}

	prompts, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		return nil, &ConfigError{Field: "PROMPTS_CONFIG_PATH", Message: err.Error()}
	}
	if v := envInt("MAX_CORRECTIONS", 0); v > 0 {
		prompts.Generator.MaxCorrections = v
	}

	ingest := service.DefaultIngestConfig()
	retry := usecase.DefaultRetryPolicy()

	port := envString("PORT", "8080")

	return &Config{
		Server: ServerConfig{
			ListenAddr:      envString("LISTEN_ADDR", ":"+port),
			APIToken:        os.Getenv("API_TOKEN"),
			ShutdownTimeout: envSeconds("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		},
		Meta: MetaConfig{
			AppSecret:   os.Getenv("META_APP_SECRET"),
			VerifyToken: os.Getenv("META_VERIFY_TOKEN"),
		},
		Graph: GraphConfig{
			BaseURL: envString("GRAPH_API_BASE_URL", "https://graph.instagram.com"),
			Version: envString("GRAPH_API_VERSION", "v21.0"),
			Timeout: envSeconds("GRAPH_TIMEOUT_SECONDS", 10*time.Second),
			SendRPS: envFloat("GRAPH_SEND_RPS", 5),
		},
		Completion: CompletionConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
			Timeout: envSeconds("COMPLETION_TIMEOUT_SECONDS", 30*time.Second),
		},
		DB: DBConfig{
			Driver: dbDriver,
			DSN:    dbDSN,
		},
		Pipeline: PipelineConfig{
			DedupTTL:        envSeconds("DEDUP_TTL_SECONDS", data.DefaultDedupTTL),
			ContentWindow:   envSeconds("CONTENT_DEDUP_WINDOW_SECONDS", usecase.DefaultContentWindow),
			IdentityTimeout: envSeconds("IDENTITY_TIMEOUT_SECONDS", 5*time.Second),
			MaxInFlight:     int64(envInt("MAX_IN_FLIGHT", int(ingest.MaxInFlight))),
			PerDelivery:     envInt("EVENTS_PER_DELIVERY", ingest.PerDelivery),
			EventTimeout:    envSeconds("EVENT_TIMEOUT_SECONDS", ingest.EventTimeout),
			MaxRetries:      envInt("COMPLETION_MAX_RETRIES", retry.MaxRetries),
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: envString("OTEL_SERVICE_NAME", "inbox-autopilot"),
		},
		Prompts: prompts,
		MCP: MCPConfig{
			APIURL: envString("AUTOPILOT_API_URL", "http://127.0.0.1:"+port),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}, nil
}

// ToGraphConfig converts to the Graph client configuration
func (c *Config) ToGraphConfig() data.GraphConfig {
	return data.GraphConfig{
		BaseURL: c.Graph.BaseURL,
		Version: c.Graph.Version,
		Timeout: c.Graph.Timeout,
		SendRPS: c.Graph.SendRPS,
	}
}

// ToCompletionConfig converts to the completion client configuration
func (c *Config) ToCompletionConfig() data.CompletionConfig {
	return data.CompletionConfig{
		APIKey:  c.Completion.APIKey,
		BaseURL: c.Completion.BaseURL,
		Model:   c.Completion.Model,
		Timeout: c.Completion.Timeout,
	}
}

// ToDataOptions converts to repository options
func (c *Config) ToDataOptions() data.Options {
	return data.Options{
		DedupTTL:   c.Pipeline.DedupTTL,
		Graph:      c.ToGraphConfig(),
		Completion: c.ToCompletionConfig(),
	}
}

// ToIngestConfig converts to ingest configuration
func (c *Config) ToIngestConfig() service.IngestConfig {
	return service.IngestConfig{
		MaxInFlight:  c.Pipeline.MaxInFlight,
		PerDelivery:  c.Pipeline.PerDelivery,
		EventTimeout: c.Pipeline.EventTimeout,
	}
}

// ToRetryPolicy converts to the generator retry policy
func (c *Config) ToRetryPolicy() usecase.RetryPolicy {
	p := usecase.DefaultRetryPolicy()
	p.MaxRetries = c.Pipeline.MaxRetries
	return p
}

// ToPromptConfig converts to generator prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig()
	}
	return c.Prompts.ToPromptConfig()
}

// Validate validates the configuration needed to serve webhooks
func (c *Config) Validate() error {
	if c.Meta.AppSecret == "" {
		return &ConfigError{Field: "META_APP_SECRET", Message: "required"}
	}
	if c.Meta.VerifyToken == "" {
		return &ConfigError{Field: "META_VERIFY_TOKEN", Message: "required"}
	}
	if c.DB.Driver != data.DriverSQLite && c.DB.Driver != data.DriverPostgres {
		return &ConfigError{Field: "DB_DRIVER", Message: "must be sqlite or postgres"}
	}
	if c.DB.DSN == "" {
		return &ConfigError{Field: "DB_DSN", Message: "required"}
	}
	if c.Pipeline.MaxRetries < 0 {
		return &ConfigError{Field: "COMPLETION_MAX_RETRIES", Message: "must not be negative"}
	}
	return nil
}

// DefaultAccountMode is the mode for accounts created without one
func DefaultAccountMode() domain.OperatingMode {
	return domain.ParseMode(os.Getenv("DEFAULT_MODE"))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return time.Duration(parsed * float64(time.Second))
		}
	}
	return def
}
