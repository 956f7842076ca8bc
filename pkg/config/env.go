package config

import (
	"flag"
	"os"
)

var configPath string

func init() {
	if val := os.Getenv("RTT_CONFIG"); val != "" {
		configPath = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configPath, "config", configPath, "Control block layout file (YAML).")
}

// Path returns the layout file from -config or RTT_CONFIG.
func Path() string {
	return configPath
}

// LoadDefault loads the file named by Path, or returns DefaultConfig if
// none is set.
func LoadDefault() (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	return Load(configPath)
}
