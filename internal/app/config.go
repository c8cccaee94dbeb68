package app

import (
	"errors"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/triviabot/core/config"
	coredatabase "github.com/m3rciful/triviabot/core/database"
	"github.com/m3rciful/triviabot/internal/trivia"
)

// TriviaConfig configures the trivia API client.
type TriviaConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"TRIVIA_API_URL"`
	Amount  int    `yaml:"amount" envconfig:"TRIVIA_AMOUNT"`
	// TimeoutSeconds bounds one fetch; 0 keeps the HTTP client default.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"TRIVIA_TIMEOUT_SECONDS"`
}

// Timeout returns the fetch timeout as a duration.
func (t TriviaConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Config is the complete bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Trivia   TriviaConfig        `yaml:"trivia"`
	Database coredatabase.Config `yaml:"database"`
}

// LoadConfig reads the optional YAML file at path, applies the environment and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Trivia.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (t *TriviaConfig) normalize() error {
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	if t.BaseURL == "" {
		t.BaseURL = trivia.DefaultBaseURL
	}
	if t.Amount < 0 || t.TimeoutSeconds < 0 {
		return errors.New("trivia.amount and trivia.timeout_seconds must be >= 0")
	}
	if t.Amount == 0 {
		t.Amount = trivia.DefaultAmount
	}
	return nil
}
