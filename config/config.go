// Package config provides configuration management for the copysmith
// generation gateway: the HTTP server, the backend function-execution
// platform and REST fallback, chat behavior, availability probing, and
// logging.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gateway configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Backend    Backend    `yaml:"backend"`
	Generation Generation `yaml:"generation"`
	Chat       Chat       `yaml:"chat"`
	Probe      Probe      `yaml:"probe"`
	Queue      Queue      `yaml:"queue"`
	Logging    Logging    `yaml:"logging"`
}

// Server holds the HTTP server settings.
type Server struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response (default: 45s)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for graceful shutdown
	// before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Backend describes the remote generation surfaces. The execution platform
// hosts the generate and chat functions; the REST base URL is the
// independent secondary path.
type Backend struct {
	// Endpoint is the execution platform base URL
	Endpoint string `yaml:"endpoint"`

	// ProjectID identifies the platform project
	ProjectID string `yaml:"project_id"`

	// APIKey authenticates function executions.
	// Use environment variables (e.g. ${COPYSMITH_API_KEY}) in YAML.
	APIKey string `yaml:"api_key"`

	// Session is the ambient session secret read (never mutated) by the
	// account surface
	Session string `yaml:"session"`

	// GenerateFunctionID is the tool-execution function
	GenerateFunctionID string `yaml:"generate_function_id"`

	// ChatFunctionID is the conversational function
	ChatFunctionID string `yaml:"chat_function_id"`

	// RESTBaseURL is the secondary channel's web API base
	RESTBaseURL string `yaml:"rest_base_url"`

	// Timeout bounds each channel call
	Timeout time.Duration `yaml:"timeout"`
}

// Generation holds request defaults and limits.
type Generation struct {
	// DefaultOutputCount is applied when a request omits outputCount
	DefaultOutputCount int `yaml:"default_output_count"`

	// MaxOutputCount caps requested variations per call
	MaxOutputCount int `yaml:"max_output_count"`

	// MaxInputTokens caps the token footprint of one request's inputs
	MaxInputTokens int `yaml:"max_input_tokens"`
}

// Chat holds conversational generation settings.
type Chat struct {
	// SystemPrompt provides the assistant's standing instructions
	SystemPrompt string `yaml:"system_prompt"`
}

// Probe holds availability monitoring settings.
type Probe struct {
	Enabled          bool          `yaml:"enabled"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// Queue defines the request queue middleware settings.
type Queue struct {
	// Enabled determines if the queue middleware is active
	Enabled bool `yaml:"enabled"`

	// InitialSize is the starting maximum size of the queue
	InitialSize int64 `yaml:"initial_size"`
}

// Logging holds logging-specific configuration.
type Logging struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// defaultSystemPrompt is the assistant's standing instructions, embedded so a
// bare config still produces useful conversations.
const defaultSystemPrompt = `You are MarketBot, an expert AI marketing assistant.
You help users with:
- Writing ad copy (Google Ads, Facebook, Instagram)
- Marketing strategies and campaigns
- Email marketing and subject lines
- Social media content
- SEO optimization
- E-commerce product descriptions

Be helpful, specific, and provide actionable advice. Use formatting with bullet points and sections when appropriate.`

// DefaultConfig returns a configuration that passes Validate and matches the
// production backend contract.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Backend: Backend{
			Endpoint:           "https://cloud.example.com/v1",
			ProjectID:          "copysmith",
			GenerateFunctionID: "tool-executor",
			ChatFunctionID:     "chat-ai",
			RESTBaseURL:        "https://app.marketingtool.pro",
			Timeout:            120 * time.Second,
		},
		Generation: Generation{
			DefaultOutputCount: 3,
			MaxOutputCount:     10,
			MaxInputTokens:     4096,
		},
		Chat: Chat{
			SystemPrompt: defaultSystemPrompt,
		},
		Probe: Probe{
			Enabled:          true,
			Interval:         time.Minute,
			Timeout:          5 * time.Second,
			FailureThreshold: 3,
		},
		Queue: Queue{
			Enabled:     false,
			InitialSize: 1000,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFile loads configuration from a YAML file.
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variables in configuration strings,
// supporting the ${VAR} and ${VAR:-default} forms, and nested references.
func expandEnvVars(s string) string {
	result := os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]
			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})

	prev := ""
	for prev != result {
		prev = result
		result = os.Expand(result, os.Getenv)
	}

	return result
}

// Load loads configuration from an io.Reader, layering the YAML over
// DefaultConfig and validating the result.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expandEnvVars(string(data))))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	if c.Backend.Endpoint == "" {
		return fmt.Errorf("empty backend endpoint")
	}
	if c.Backend.ProjectID == "" {
		return fmt.Errorf("empty backend project id")
	}
	if c.Backend.GenerateFunctionID == "" {
		return fmt.Errorf("empty generate function id")
	}
	if c.Backend.ChatFunctionID == "" {
		return fmt.Errorf("empty chat function id")
	}
	if c.Backend.RESTBaseURL == "" {
		return fmt.Errorf("empty REST base url")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("negative backend timeout: %v", c.Backend.Timeout)
	}

	if c.Generation.DefaultOutputCount < 1 {
		return fmt.Errorf("default output count must be positive: %d", c.Generation.DefaultOutputCount)
	}
	if c.Generation.MaxOutputCount < c.Generation.DefaultOutputCount {
		return fmt.Errorf("max output count %d below default %d",
			c.Generation.MaxOutputCount, c.Generation.DefaultOutputCount)
	}
	if c.Generation.MaxInputTokens < 0 {
		return fmt.Errorf("negative max input tokens: %d", c.Generation.MaxInputTokens)
	}

	if c.Chat.SystemPrompt == "" {
		return fmt.Errorf("empty chat system prompt")
	}

	if c.Probe.Enabled {
		if c.Probe.Interval <= 0 {
			return fmt.Errorf("probe interval must be positive: %v", c.Probe.Interval)
		}
		if c.Probe.Timeout <= 0 {
			return fmt.Errorf("probe timeout must be positive: %v", c.Probe.Timeout)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
