package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/auracx/agent/contract"
	openrouterx "github.com/tanpawarit/auracx/pkg/openrouter"
)

type Role string

const (
	RoleClassifier Role = "classifier"
	RoleGenerator  Role = "generator"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.4"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"1"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string        `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	GeneratorModel        string        `envconfig:"GENERATOR_MODEL" split_words:"true"`
	ClassifierTemperature float32       `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0"`
	GeneratorTemperature  float32       `envconfig:"GENERATOR_TEMPERATURE" split_words:"true" default:"-1"`
	ClassifierTimeout     time.Duration `envconfig:"CLASSIFIER_TIMEOUT" split_words:"true" default:"8s"`
	GeneratorTimeout      time.Duration `envconfig:"GENERATOR_TIMEOUT" split_words:"true" default:"20s"`
}

// Enabled reports whether an external model is configured. Without it the service
// runs on the keyword classifier and template generator.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) TimeoutFor(role Role) time.Duration {
	switch role {
	case RoleClassifier:
		if c.ClassifierTimeout > 0 {
			return c.ClassifierTimeout
		}
	case RoleGenerator:
		if c.GeneratorTimeout > 0 {
			return c.GeneratorTimeout
		}
	}
	return c.Timeout
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			modelName = v
		}
		if c.ClassifierTemperature >= 0 {
			temp = c.ClassifierTemperature
		}
	case RoleGenerator:
		if v := strings.TrimSpace(c.GeneratorModel); v != "" {
			modelName = v
		}
		if c.GeneratorTemperature >= 0 {
			temp = c.GeneratorTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
