// Package config loads the settings of the perceptron command from defaults,
// an optional config file, PERCEPTRON_* environment variables and flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PERCEPTRON"

// Default values.
const (
	DefaultMaxIter  = 10
	DefaultJobs     = 1
	DefaultLogLevel = "info"
)

// Config holds the settings of a training run.
type Config struct {
	TrainImages string `mapstructure:"train_images" validate:"required"`
	TrainLabels string `mapstructure:"train_labels" validate:"required"`
	TestImages  string `mapstructure:"test_images" validate:"required_with=TestLabels"`
	TestLabels  string `mapstructure:"test_labels" validate:"required_with=TestImages"`

	// Classes to train. Empty means every label found in the training set.
	Classes []int `mapstructure:"classes" validate:"omitempty,unique,dive,min=0"`

	// Jobs is the number of classes trained at once; 0 or less uses every CPU.
	Jobs    int `mapstructure:"jobs"`
	MaxIter int `mapstructure:"max_iter" validate:"min=1"`
	Limit   int `mapstructure:"limit" validate:"min=0"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	Plot     string `mapstructure:"plot"`

	LeastNegativeFallback bool `mapstructure:"least_negative_fallback"`
}

// HasTestSet reports whether a held-out set was configured.
func (c *Config) HasTestSet() bool {
	return c.TestImages != "" && c.TestLabels != ""
}

// New returns a viper instance with every key defaulted and environment
// lookup enabled. Flags can be bound to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("train_images", "")
	v.SetDefault("train_labels", "")
	v.SetDefault("test_images", "")
	v.SetDefault("test_labels", "")
	v.SetDefault("classes", []int{})
	v.SetDefault("max_iter", DefaultMaxIter)
	v.SetDefault("jobs", DefaultJobs)
	v.SetDefault("limit", 0)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("plot", "")
	v.SetDefault("least_negative_fallback", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, if not empty, into v and decodes and validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags and reports the first failure as a
// ValidationError naming the config key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(keyFor(fe.StructField()), fmt.Sprintf("failed %q check", fe.Tag()), fe.Value())
	}
	return errors.Wrap(err, "validating config")
}

// keyFor maps a Config field name to its mapstructure key.
func keyFor(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
