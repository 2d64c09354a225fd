package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points at a running gateway, e.g. "localhost:8080".
	// The suite skips itself when unset.
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// Tokens and session id come from the seed command's output.
	RequesterToken   string `envconfig:"E2E_REQUESTER_TOKEN"`
	CounterpartToken string `envconfig:"E2E_COUNTERPART_TOKEN"`
	SessionID        string `envconfig:"E2E_SESSION_ID"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
