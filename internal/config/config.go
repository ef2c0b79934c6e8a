package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Chat    ChatConfig
	Log     LogConfig
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string
}

// BackendConfig 描述远端 /chat 接口。
type BackendConfig struct {
	URL string `env:"CHAT_API_URL" envDefault:"http://localhost:8000/chat"`
	// Timeout 为 0 表示不设超时。
	Timeout        time.Duration `env:"CHAT_API_TIMEOUT" envDefault:"0s"`
	ForwardSession bool          `env:"CHAT_FORWARD_SESSION" envDefault:"false"`
}

// Submit policies.
const (
	PolicyOverlap = "overlap"
	PolicySerial  = "serial"
)

// ChatConfig 描述会话行为与界面文案。
type ChatConfig struct {
	Policy      string        `env:"CHAT_SUBMIT_POLICY" envDefault:"overlap"`
	SessionTTL  time.Duration `env:"CHAT_SESSION_TTL" envDefault:"30m"`
	LoadingText string        `env:"CHAT_LOADING_TEXT" envDefault:"Searching official HDFC files..."`
	Title       string        `env:"CHAT_TITLE" envDefault:"HDFC Mutual Fund Assistant"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load 从进程环境变量加载配置。
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses configuration from the supplied variables only, ignoring the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := resolveAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Chat.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveAddr 解析服务器监听地址。
func resolveAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func (c BackendConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil {
		return fmt.Errorf("invalid CHAT_API_URL value %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid CHAT_API_URL value %q: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid CHAT_API_URL value %q: missing host", c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid CHAT_API_TIMEOUT value %s: must not be negative", c.Timeout)
	}
	return nil
}

func (c ChatConfig) validate() error {
	switch c.Policy {
	case PolicyOverlap, PolicySerial:
	default:
		return fmt.Errorf("invalid CHAT_SUBMIT_POLICY value %q: want %s or %s", c.Policy, PolicyOverlap, PolicySerial)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("invalid CHAT_SESSION_TTL value %s: must not be negative", c.SessionTTL)
	}
	return nil
}
