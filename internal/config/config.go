package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	app_errors "onlinellm-gateway/backend/internal/errors"
)

// Config is loaded once at startup and treated as immutable afterwards.
// Components receive the pieces they need explicitly.
type Config struct {
	Port     int    `mapstructure:"PORT" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AzureEndpoint   string `mapstructure:"AZURE_OPENAI_ENDPOINT" validate:"required,url"`
	AzureKey        string `mapstructure:"AZURE_OPENAI_KEY" validate:"required"`
	AzureDeployment string `mapstructure:"AZURE_OPENAI_DEPLOYMENT_NAME" validate:"required"`
	AzureAPIVersion string `mapstructure:"AZURE_OPENAI_API_VERSION" validate:"required"`

	// GatewayAPIKey gates inbound access. Empty means "same as AzureKey".
	GatewayAPIKey string `mapstructure:"GATEWAY_API_KEY"`

	OnlineModelMarker  string        `mapstructure:"ONLINE_MODEL_MARKER" validate:"required"`
	SearchBaseURL      string        `mapstructure:"SEARCH_BASE_URL" validate:"required,url"`
	SearchSnippetClass string        `mapstructure:"SEARCH_SNIPPET_CLASS" validate:"required"`
	SearchMaxResults   int           `mapstructure:"SEARCH_MAX_RESULTS" validate:"min=1"`
	SearchTimeout      time.Duration `mapstructure:"SEARCH_TIMEOUT"`
	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	Sampling SamplingProfile `mapstructure:",squash"`
}

// SamplingProfile holds the generation parameters sent with every upstream call.
type SamplingProfile struct {
	MaxTokens        int64   `mapstructure:"MAX_TOKENS" validate:"min=1"`
	Temperature      float64 `mapstructure:"TEMPERATURE" validate:"min=0,max=2"`
	TopP             float64 `mapstructure:"TOP_P" validate:"min=0,max=1"`
	FrequencyPenalty float64 `mapstructure:"FREQUENCY_PENALTY" validate:"min=-2,max=2"`
	PresencePenalty  float64 `mapstructure:"PRESENCE_PENALTY" validate:"min=-2,max=2"`
}

// DefaultSampling is the sampling profile used when nothing is configured.
func DefaultSampling() SamplingProfile {
	return SamplingProfile{
		MaxTokens:        1200,
		Temperature:      0.7,
		TopP:             0.95,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// InboundAPIKey returns the secret callers must present in the `api-key` header.
func (c *Config) InboundAPIKey() string {
	if c.GatewayAPIKey != "" {
		return c.GatewayAPIKey
	}
	return c.AzureKey
}

// Keys without a default must be bound explicitly, otherwise viper.Unmarshal
// never sees them when they only exist in the environment.
var envOnlyKeys = []string{
	"AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_KEY",
	"AZURE_OPENAI_DEPLOYMENT_NAME",
	"AZURE_OPENAI_API_VERSION",
	"GATEWAY_API_KEY",
}

// LoadConfig reads configuration from the environment, an optional env file and
// the given command-line flags (nil is allowed). Flags set explicitly win over
// environment variables, which win over the env file.
func LoadConfig(envFile string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := viper.New()

	sampling := DefaultSampling()
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("ONLINE_MODEL_MARKER", "_onlinellm")
	v.SetDefault("SEARCH_BASE_URL", "https://html.duckduckgo.com/html/")
	v.SetDefault("SEARCH_SNIPPET_CLASS", "result__snippet")
	v.SetDefault("SEARCH_MAX_RESULTS", 5)
	v.SetDefault("SEARCH_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_TIMEOUT", "60s")
	v.SetDefault("REQUEST_TIMEOUT", "90s")
	v.SetDefault("MAX_TOKENS", sampling.MaxTokens)
	v.SetDefault("TEMPERATURE", sampling.Temperature)
	v.SetDefault("TOP_P", sampling.TopP)
	v.SetDefault("FREQUENCY_PENALTY", sampling.FrequencyPenalty)
	v.SetDefault("PRESENCE_PENALTY", sampling.PresencePenalty)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, nil, fmt.Errorf("%w: bind %s: %s", app_errors.ErrConfig, key, err.Error())
		}
	}

	if flags != nil {
		if f := flags.Lookup("port"); f != nil {
			if err := v.BindPFlag("PORT", f); err != nil {
				return nil, nil, fmt.Errorf("%w: bind port flag: %s", app_errors.ErrConfig, err.Error())
			}
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			// SetConfigFile reports a missing file as a plain fs error.
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("%w: read %s: %s", app_errors.ErrConfig, envFile, err.Error())
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", app_errors.ErrConfig, err.Error())
	}
	cfg.AzureEndpoint = strings.TrimRight(cfg.AzureEndpoint, "/")

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, v, nil
}

// Validate checks the config against its struct tags and reports missing or
// malformed keys by their environment variable names.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s", app_errors.ErrConfig, err.Error())
	}

	var problems []string
	for _, fieldErr := range validationErrors {
		if fieldErr.Tag() == "required" {
			problems = append(problems, fmt.Sprintf("%s is not set", fieldErr.Field()))
			continue
		}
		problems = append(problems, fmt.Sprintf("%s failed on the '%s' rule", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", app_errors.ErrConfig, strings.Join(problems, "; "))
}
