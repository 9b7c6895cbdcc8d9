// Package config loads the agent's settings. Values are layered: built-in
// defaults, then a YAML file, then a .env file, then the process
// environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spetersoncode/perpetual/internal/logging"
	"github.com/spetersoncode/perpetual/internal/retry"
	"github.com/spetersoncode/perpetual/llm"
	"github.com/spetersoncode/perpetual/tool"
)

// Config holds every setting of the agent.
type Config struct {
	Keys    KeysConfig    `yaml:"api_keys"`
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Storage StorageConfig `yaml:"storage"`
	Tools   ToolsConfig   `yaml:"tools"`
	Log     LogConfig     `yaml:"log"`
}

// KeysConfig holds provider API keys. Only the providers in use need one.
type KeysConfig struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
}

// LLMConfig selects the models and shapes every model call.
type LLMConfig struct {
	Model          string         `yaml:"model"`           // default "gpt-4o-mini"
	EmbeddingModel string         `yaml:"embedding_model"` // default "text-embedding-3-small"
	Temperature    *float64       `yaml:"temperature"`
	ReservedTokens int            `yaml:"reserved_tokens"` // default 1024
	RetryAttempts  int            `yaml:"retry_attempts"`  // default 5
	ModelLimits    map[string]int `yaml:"model_limits"`
}

// AgentConfig tunes the step loop.
type AgentConfig struct {
	StepMemory          int     `yaml:"step_memory"`          // default 100
	MaxSteps            int     `yaml:"max_steps"`            // 0 = unlimited
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // default 0.5
	Improve             bool    `yaml:"improve"`              // default true
	ArgumentsWidth      int     `yaml:"arguments_width"`      // default 200
}

// StorageConfig locates the tool directory, its index and the session database.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir"`   // default "~/.perpetual"
	ToolDir   string `yaml:"tool_dir"`   // default DataDir/tools
	IndexPath string `yaml:"index_path"` // default next to ToolDir
	SessionDB string `yaml:"session_db"` // default DataDir/sessions.db
}

// ToolsConfig restricts what tools may touch through the files and http
// modules.
type ToolsConfig struct {
	BasePath          string        `yaml:"base_path"`          // default DataDir/workspace
	AllowedExtensions []string      `yaml:"allowed_extensions"` // empty allows all
	AllowedHosts      []string      `yaml:"allowed_hosts"`      // empty allows all
	BlockedHosts      []string      `yaml:"blocked_hosts"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`      // default 30s
	MaxFileSize       int64         `yaml:"max_file_size"`     // bytes, default 10MB
	MaxResponseSize   int64         `yaml:"max_response_size"` // bytes, default 1MB
	MaxSteps          uint64        `yaml:"max_steps"`         // Starlark steps per call
}

// LogConfig sets the terminal level and the optional JSON log file.
type LogConfig struct {
	Level string `yaml:"level"` // default "info"
	File  string `yaml:"file"`  // JSON log file, empty disables it
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			ReservedTokens: llm.DefaultReservedTokens,
			RetryAttempts:  retry.DefaultConfig().MaxAttempts,
		},
		Agent: AgentConfig{
			StepMemory:          100,
			SimilarityThreshold: 0.5,
			Improve:             true,
			ArgumentsWidth:      200,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Tools: ToolsConfig{
			HTTPTimeout:     30 * time.Second,
			MaxFileSize:     10 * 1024 * 1024,
			MaxResponseSize: 1024 * 1024,
			MaxSteps:        tool.DefaultMaxSteps,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaultDataDir is ~/.perpetual, or a directory under the system temp
// directory when there is no home.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "perpetual")
	}
	return filepath.Join(home, ".perpetual")
}

// Load builds the configuration. An empty path skips the YAML layer; a
// named file must exist. Missing env files are ignored, and with none
// given ".env" in the working directory is tried. Variables already set in
// the environment are never overwritten by an env file.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Keys.OpenAI = envString("OPENAI_API_KEY", c.Keys.OpenAI)
	c.Keys.Anthropic = envString("ANTHROPIC_API_KEY", c.Keys.Anthropic)
	c.Keys.Google = envString("GOOGLE_API_KEY", c.Keys.Google)

	c.LLM.Model = envString("PERPETUAL_MODEL", c.LLM.Model)
	c.LLM.EmbeddingModel = envString("PERPETUAL_EMBEDDING_MODEL", c.LLM.EmbeddingModel)
	c.Storage.DataDir = envString("PERPETUAL_DATA_DIR", c.Storage.DataDir)
	c.Storage.ToolDir = envString("PERPETUAL_TOOL_DIR", c.Storage.ToolDir)
	c.Storage.IndexPath = envString("PERPETUAL_INDEX_PATH", c.Storage.IndexPath)
	c.Storage.SessionDB = envString("PERPETUAL_SESSION_DB", c.Storage.SessionDB)
	c.Tools.BasePath = envString("PERPETUAL_WORKSPACE", c.Tools.BasePath)
	c.Tools.AllowedHosts = envList("PERPETUAL_ALLOWED_HOSTS", c.Tools.AllowedHosts)
	c.Tools.BlockedHosts = envList("PERPETUAL_BLOCKED_HOSTS", c.Tools.BlockedHosts)
	c.Tools.AllowedExtensions = envList("PERPETUAL_ALLOWED_EXTENSIONS", c.Tools.AllowedExtensions)
	c.Log.Level = envString("PERPETUAL_LOG_LEVEL", c.Log.Level)
	c.Log.File = envString("PERPETUAL_LOG_FILE", c.Log.File)

	var errs []error
	intVar := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	floatVar := func(key string, dst *float64) bool {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
				return false
			}
			*dst = f
			return true
		}
		return false
	}

	intVar("PERPETUAL_STEP_MEMORY", &c.Agent.StepMemory)
	intVar("PERPETUAL_MAX_STEPS", &c.Agent.MaxSteps)
	intVar("PERPETUAL_RESERVED_TOKENS", &c.LLM.ReservedTokens)
	intVar("PERPETUAL_RETRY_ATTEMPTS", &c.LLM.RetryAttempts)
	intVar("PERPETUAL_ARGUMENTS_WIDTH", &c.Agent.ArgumentsWidth)
	floatVar("PERPETUAL_SIMILARITY_THRESHOLD", &c.Agent.SimilarityThreshold)

	if v, ok := os.LookupEnv("PERPETUAL_HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("PERPETUAL_HTTP_TIMEOUT: %q is not a duration", v))
		} else {
			c.Tools.HTTPTimeout = d
		}
	}

	var temp float64
	if floatVar("PERPETUAL_TEMPERATURE", &temp) {
		c.LLM.Temperature = &temp
	}
	if v, ok := os.LookupEnv("PERPETUAL_IMPROVE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PERPETUAL_IMPROVE: %q is not a boolean", v))
		} else {
			c.Agent.Improve = b
		}
	}
	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the settings and that the providers serving the chat and
// embedding models have API keys.
func (c *Config) Validate() error {
	var errs []error

	info, err := llm.LookupModel(c.LLM.Model, c.LLM.ModelLimits)
	if err != nil {
		errs = append(errs, err)
	} else if c.keyOf(string(info.Provider)) == "" {
		errs = append(errs, fmt.Errorf("%s is required for model %s", keyEnv(string(info.Provider)), c.LLM.Model))
	}
	embedding := string(llm.EmbeddingProviderOf(c.LLM.EmbeddingModel))
	if c.keyOf(embedding) == "" {
		errs = append(errs, fmt.Errorf("%s is required for embedding model %s", keyEnv(embedding), c.LLM.EmbeddingModel))
	}

	if c.Agent.StepMemory <= 0 {
		errs = append(errs, fmt.Errorf("step_memory must be positive, got %d", c.Agent.StepMemory))
	}
	if c.Agent.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.Agent.MaxSteps))
	}
	if c.Agent.SimilarityThreshold < 0 || c.Agent.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be within [0, 1], got %g", c.Agent.SimilarityThreshold))
	}
	if c.LLM.ReservedTokens < 0 {
		errs = append(errs, fmt.Errorf("reserved_tokens must not be negative, got %d", c.LLM.ReservedTokens))
	}
	if c.LLM.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1, got %d", c.LLM.RetryAttempts))
	}
	if c.Tools.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("tools.http_timeout must not be negative, got %s", c.Tools.HTTPTimeout))
	}
	if c.Tools.MaxFileSize <= 0 || c.Tools.MaxResponseSize <= 0 {
		errs = append(errs, errors.New("tools.max_file_size and tools.max_response_size must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) keyOf(provider string) string {
	switch provider {
	case "openai":
		return c.Keys.OpenAI
	case "anthropic":
		return c.Keys.Anthropic
	case "google":
		return c.Keys.Google
	}
	return ""
}

func keyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// ToolDir returns the tool directory.
func (c *Config) ToolDir() string {
	if c.Storage.ToolDir != "" {
		return c.Storage.ToolDir
	}
	return filepath.Join(c.Storage.DataDir, "tools")
}

// SessionDB returns the path of the session database.
func (c *Config) SessionDB() string {
	if c.Storage.SessionDB != "" {
		return c.Storage.SessionDB
	}
	return filepath.Join(c.Storage.DataDir, "sessions.db")
}

// Workspace returns the directory the files module of tools is confined to.
func (c *Config) Workspace() string {
	if c.Tools.BasePath != "" {
		return c.Tools.BasePath
	}
	return filepath.Join(c.Storage.DataDir, "workspace")
}

// HostOptions returns the sandbox settings tools run with.
func (c *Config) HostOptions() []tool.HostOption {
	return []tool.HostOption{
		tool.WithBasePath(c.Workspace()),
		tool.WithAllowedExtensions(c.Tools.AllowedExtensions...),
		tool.WithAllowedHosts(c.Tools.AllowedHosts...),
		tool.WithBlockedHosts(c.Tools.BlockedHosts...),
		tool.WithHTTPTimeout(c.Tools.HTTPTimeout),
		tool.WithMaxFileSize(c.Tools.MaxFileSize),
		tool.WithMaxResponseSize(c.Tools.MaxResponseSize),
		tool.WithMaxSteps(c.Tools.MaxSteps),
	}
}

// ClientConfig returns the model client configuration.
func (c *Config) ClientConfig() llm.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = c.LLM.RetryAttempts
	return llm.Config{
		APIKeys: llm.APIKeys{
			OpenAI:    c.Keys.OpenAI,
			Anthropic: c.Keys.Anthropic,
			Google:    c.Keys.Google,
		},
		Model:          c.LLM.Model,
		EmbeddingModel: c.LLM.EmbeddingModel,
		ReservedTokens: c.LLM.ReservedTokens,
		ModelLimits:    c.LLM.ModelLimits,
		Temperature:    c.LLM.Temperature,
		RetryConfig:    &rc,
	}
}

// LoggingOptions returns the logger settings.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, File: c.Log.File}
}
