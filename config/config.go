package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Collaborators holds the endpoints of the external services the overseer
// consults. Empty endpoints leave the corresponding collaborator unwired,
// which is only valid for test deployments.
type Collaborators struct {
	OracleEndpoint           string `toml:"OracleEndpoint"`
	MarketEndpoint           string `toml:"MarketEndpoint"`
	LiquidationModelEndpoint string `toml:"LiquidationModelEndpoint"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// Pauses lists the modules administratively halted at startup.
type Pauses struct {
	Overseer bool `toml:"Overseer"`
}

// IsPaused reports whether the named module is halted.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "overseer":
		return p.Overseer
	default:
		return false
	}
}

// Config is the overseer daemon configuration.
type Config struct {
	ListenAddress string        `toml:"ListenAddress"`
	DataDir       string        `toml:"DataDir"`
	GenesisFile   string        `toml:"GenesisFile"`
	Environment   string        `toml:"Environment"`
	Collaborators Collaborators `toml:"Collaborators"`
	Telemetry     Telemetry     `toml:"Telemetry"`
	Pauses        Pauses        `toml:"Pauses"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./overseer-data"
	}
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must not be empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if cfg.Telemetry.Endpoint == "" && (cfg.Telemetry.Metrics || cfg.Telemetry.Traces) {
		return fmt.Errorf("config: Telemetry.Endpoint required when exporters are enabled")
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./overseer-data",
		GenesisFile:   "",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
