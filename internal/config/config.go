package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

type Config struct {
	Port             string        `envconfig:"PORT" default:"8080"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	LogLevel         slog.Level    `envconfig:"LOG_LEVEL" default:"info"`
	SinkURL          string        `envconfig:"SINK_URL"`
	SinkSecret       string        `envconfig:"SINK_SECRET"`
	RulesFile        string        `envconfig:"RULES_FILE"`
	CollationLocale  string        `envconfig:"COLLATION_LOCALE" default:"und"`
	MaxUploadBytes   int64         `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	NormalizeWorkers int           `envconfig:"NORMALIZE_WORKERS" default:"0"`
	CORSOrigins      []string      `envconfig:"CORS_ORIGINS" default:"*"`

	Rules models.SuggestionRules `ignored:"true"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}
	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Rules = rules
	if _, err := language.Parse(cfg.CollationLocale); err != nil {
		return Config{}, fmt.Errorf("invalid COLLATION_LOCALE %q: %w", cfg.CollationLocale, err)
	}
	return cfg, nil
}

// Collation returns the language used to sort aggregate details.
func (c Config) Collation() language.Tag {
	tag, err := language.Parse(c.CollationLocale)
	if err != nil {
		return language.Und
	}
	return tag
}

var validate = validator.New()

// ValidateRules checks the rule thresholds.
func ValidateRules(r models.SuggestionRules) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid suggestion rules: %w", err)
	}
	return nil
}

// ValidateFilter checks the date bounds and conversion category of a filter.
func ValidateFilter(f models.FilterPredicateSet) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	return nil
}

// LoadRules reads thresholds from a YAML file over the defaults. An empty
// path yields the defaults.
func LoadRules(path string) (models.SuggestionRules, error) {
	rules := models.DefaultRules()
	if path == "" {
		return rules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}
	if err := ValidateRules(rules); err != nil {
		return rules, err
	}
	return rules, nil
}
