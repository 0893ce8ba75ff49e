// Package config carrega a configuração do serviço: valores padrão, arquivo
// opcional (TOML ou YAML) e variáveis de ambiente, nessa ordem.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Backends suportados para a sessão de chat
const (
	BackendGenAI = "genai"
	BackendADK   = "adk"
)

const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 60 * time.Second
	DefaultSessionIdle    = 30 * time.Minute
	DefaultRateLimitRPS   = 2.0
	DefaultRateLimitBurst = 5
)

// Config reúne todas as opções do MovieRecs
type Config struct {
	APIKey                string
	Model                 string
	Backend               string
	Addr                  string
	MCPEndpoint           string
	MCPToken              string
	SystemInstructionFile string
	RequestTimeout        time.Duration
	SessionIdleTimeout    time.Duration
	RateLimitRPS          float64
	RateLimitBurst        int
	LogLevel              string
	LogFormat             string
	LogFile               string
	RunHTTPServer         bool
	// TrustProxy faz o limitador usar X-Forwarded-For/X-Real-IP
	TrustProxy bool
}

// fileConfig é o formato do arquivo apontado por MOVIERECS_CONFIG
type fileConfig struct {
	APIKey                string  `toml:"api_key" yaml:"api_key"`
	Model                 string  `toml:"model" yaml:"model"`
	Backend               string  `toml:"backend" yaml:"backend"`
	Addr                  string  `toml:"addr" yaml:"addr"`
	MCPEndpoint           string  `toml:"mcp_endpoint" yaml:"mcp_endpoint"`
	MCPToken              string  `toml:"mcp_token" yaml:"mcp_token"`
	SystemInstructionFile string  `toml:"system_instruction_file" yaml:"system_instruction_file"`
	RequestTimeout        string  `toml:"request_timeout" yaml:"request_timeout"`
	SessionIdleTimeout    string  `toml:"session_idle_timeout" yaml:"session_idle_timeout"`
	RateLimitRPS          float64 `toml:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst        int     `toml:"rate_limit_burst" yaml:"rate_limit_burst"`
	LogLevel              string  `toml:"log_level" yaml:"log_level"`
	LogFormat             string  `toml:"log_format" yaml:"log_format"`
	LogFile               string  `toml:"log_file" yaml:"log_file"`
	TrustProxy            bool    `toml:"trust_proxy" yaml:"trust_proxy"`
}

// Default retorna a configuração padrão
func Default() Config {
	return Config{
		Model:              DefaultModel,
		Backend:            BackendGenAI,
		Addr:               DefaultAddr,
		RequestTimeout:     DefaultRequestTimeout,
		SessionIdleTimeout: DefaultSessionIdle,
		RateLimitRPS:       DefaultRateLimitRPS,
		RateLimitBurst:     DefaultRateLimitBurst,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load monta a configuração a partir do arquivo em MOVIERECS_CONFIG (se houver)
// e das variáveis de ambiente
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("MOVIERECS_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile lê um arquivo TOML ou YAML sobre os valores padrão
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	setString(&c.APIKey, fc.APIKey)
	setString(&c.Model, fc.Model)
	setString(&c.Backend, fc.Backend)
	setString(&c.Addr, fc.Addr)
	setString(&c.MCPEndpoint, fc.MCPEndpoint)
	setString(&c.MCPToken, fc.MCPToken)
	setString(&c.SystemInstructionFile, fc.SystemInstructionFile)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.LogFile, fc.LogFile)

	if err := setDuration(&c.RequestTimeout, "request_timeout", fc.RequestTimeout); err != nil {
		return err
	}
	if err := setDuration(&c.SessionIdleTimeout, "session_idle_timeout", fc.SessionIdleTimeout); err != nil {
		return err
	}
	if fc.RateLimitRPS != 0 {
		c.RateLimitRPS = fc.RateLimitRPS
	}
	if fc.RateLimitBurst != 0 {
		c.RateLimitBurst = fc.RateLimitBurst
	}
	if fc.TrustProxy {
		c.TrustProxy = true
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	// GOOGLE_API_KEY é o nome usado pelo SDK; API_KEY vem da versão web
	setString(&c.APIKey, getenv("API_KEY"))
	setString(&c.APIKey, getenv("GOOGLE_API_KEY"))
	setString(&c.Model, getenv("GEMINI_MODEL"))
	setString(&c.Backend, getenv("CHAT_BACKEND"))
	setString(&c.Addr, getenv("HTTP_ADDR"))
	setString(&c.MCPEndpoint, getenv("MCP_ENDPOINT"))
	setString(&c.MCPToken, getenv("MCP_TOKEN"))
	setString(&c.SystemInstructionFile, getenv("SYSTEM_INSTRUCTION_FILE"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))
	setString(&c.LogFormat, getenv("LOG_FORMAT"))
	setString(&c.LogFile, getenv("LOG_FILE"))

	if err := setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT", getenv("REQUEST_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&c.SessionIdleTimeout, "SESSION_IDLE_TIMEOUT", getenv("SESSION_IDLE_TIMEOUT")); err != nil {
		return err
	}

	if v := strings.TrimSpace(getenv("RATE_LIMIT_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = rps
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT_BURST")); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		c.RateLimitBurst = burst
	}

	c.RunHTTPServer = strings.EqualFold(strings.TrimSpace(getenv("RUN_HTTP_SERVER")), "true")
	if v := strings.TrimSpace(getenv("TRUST_PROXY")); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		c.TrustProxy = trust
	}
	return nil
}

// Validate verifica valores que impediriam o serviço de funcionar
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGenAI, BackendADK:
	default:
		return fmt.Errorf("unknown chat backend %q", c.Backend)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = d
	return nil
}
