package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant hub
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"` // auth middleware is disabled when empty
}

// GatewayConfig contains settings for the backend AI gateway
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	Backoff time.Duration `mapstructure:"backoff"`
}

func (g GatewayConfig) Validate() error {
	if strings.TrimSpace(g.BaseURL) == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if g.Retries < 0 {
		return fmt.Errorf("gateway.retries cannot be negative")
	}
	return nil
}

// AgentConfig contains Agent Mode orchestration settings
type AgentConfig struct {
	MaxInstructions int           `mapstructure:"max_instructions"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

func (a AgentConfig) Validate() error {
	if a.MaxInstructions <= 0 {
		return fmt.Errorf("agent.max_instructions must be > 0")
	}
	if a.RunTimeout <= 0 {
		return fmt.Errorf("agent.run_timeout must be > 0")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port cannot be negative when telemetry is enabled")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("gateway.timeout", 30*time.Second)
	viper.SetDefault("gateway.retries", 2)
	viper.SetDefault("gateway.backoff", 300*time.Millisecond)
	viper.SetDefault("agent.max_instructions", 20)
	viper.SetDefault("agent.run_timeout", 5*time.Minute)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.metrics_port", 0)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PAGEPILOT")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (PAGEPILOT_*)

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional as long as the gateway URL arrives via env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Gateway.Validate(); err != nil {
		panic(err)
	}
	if err := config.Agent.Validate(); err != nil {
		panic(err)
	}
	if err := config.Telemetry.Validate(); err != nil {
		panic(err)
	}
	return &config
}
