package application

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SocietyConfig identifies the society on printed documents and optionally
// seeds the charge line breakdown.
type SocietyConfig struct {
	Name         string `yaml:"name"`
	Registration string `yaml:"registration"`
	Address      string `yaml:"address"`
	Phone        string `yaml:"phone"`

	ChargeLines []ChargeLineConfig `yaml:"charge_lines"`
}

// ChargeLineConfig is one configured charge line.
type ChargeLineConfig struct {
	Label  string  `yaml:"label"`
	Amount float64 `yaml:"amount"`
}

// LoadSocietyConfig loads the society profile from yaml or env.
func LoadSocietyConfig() (SocietyConfig, error) {
	cfg := SocietyConfig{
		Name: getenvDefault("SOCIETY_NAME", "Cooperative Housing Society"),
	}

	if path := os.Getenv("SOCIETY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if value := os.Getenv("SOCIETY_NAME"); value != "" {
		cfg.Name = value
	}
	if cfg.Registration == "" {
		cfg.Registration = os.Getenv("SOCIETY_REGISTRATION")
	}
	if cfg.Address == "" {
		cfg.Address = os.Getenv("SOCIETY_ADDRESS")
	}
	if cfg.Phone == "" {
		cfg.Phone = os.Getenv("SOCIETY_PHONE")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
