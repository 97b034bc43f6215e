// Package config loads the unbundler worker configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bjaus/flatjson"
	"github.com/bjaus/flatjson/internal/logging"
	"github.com/go-playground/validator/v10"
)

// Environment variable names. The first four keep the names the batch
// environment template already sets.
const (
	EnvInputBucket       = "s3InputBucket"
	EnvOutputBucket      = "s3OutputBucket"
	EnvQueue             = "SQSBatchQueue"
	EnvRegion            = "AWSRegion"
	EnvOutputPrefix      = "UNBUNDLER_OUTPUT_PREFIX"
	EnvWorkDir           = "UNBUNDLER_WORK_DIR"
	EnvFormat            = "UNBUNDLER_FORMAT"
	EnvSeparator         = "UNBUNDLER_SEPARATOR"
	EnvArrays            = "UNBUNDLER_ARRAYS"
	EnvPath              = "UNBUNDLER_PATH"
	EnvStripNewlines     = "UNBUNDLER_STRIP_NEWLINES"
	EnvIndex             = "UNBUNDLER_INDEX"
	EnvMaxMessages       = "UNBUNDLER_MAX_MESSAGES"
	EnvWaitTime          = "UNBUNDLER_WAIT_TIME"
	EnvVisibilityTimeout = "UNBUNDLER_VISIBILITY_TIMEOUT"
	EnvMetricsAddr       = "UNBUNDLER_METRICS_ADDR"
	EnvLogLevel          = "UNBUNDLER_LOG_LEVEL"
	EnvLogFile           = "UNBUNDLER_LOG_FILE"
)

// DefaultSeparator joins key path segments in worker output. Consumers of
// the batch tables expect underscore-joined column names.
const DefaultSeparator = "_"

// Config holds the worker configuration.
type Config struct {
	Storage StorageConfig
	Queue   QueueConfig
	Flatten FlattenConfig
	Metrics MetricsConfig
	Log     LogConfig

	// envErrs holds malformed environment values seen by Load.
	envErrs []error
}

// StorageConfig holds S3 and local work directory settings.
type StorageConfig struct {
	Region       string `validate:"required"`
	InputBucket  string `validate:"required"`
	OutputBucket string `validate:"required"`
	OutputPrefix string
	WorkDir      string `validate:"required"`
}

// QueueConfig holds SQS polling settings.
type QueueConfig struct {
	Name              string        `validate:"required"`
	MaxMessages       int32         `validate:"min=1,max=10"`
	WaitTime          time.Duration `validate:"min=0s,max=20s"`
	VisibilityTimeout time.Duration `validate:"min=0s,max=12h"`
}

// FlattenConfig holds the document conversion settings.
type FlattenConfig struct {
	Format        string `validate:"required"`
	Separator     string `validate:"required"`
	Arrays        string `validate:"oneof=index json"`
	Path          string
	StripNewlines bool
	Index         bool
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	Addr string `validate:"omitempty,hostname_port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables with defaults. A
// malformed number, duration, or boolean keeps its default and is reported
// by [Config.Validate].
func Load() Config {
	var env envReader
	cfg := Config{
		Storage: StorageConfig{
			Region:       os.Getenv(EnvRegion),
			InputBucket:  os.Getenv(EnvInputBucket),
			OutputBucket: os.Getenv(EnvOutputBucket),
			OutputPrefix: env.string(EnvOutputPrefix, "flattened/"),
			WorkDir:      env.string(EnvWorkDir, filepath.Join(os.TempDir(), "unbundler")),
		},
		Queue: QueueConfig{
			Name:              os.Getenv(EnvQueue),
			MaxMessages:       env.int32(EnvMaxMessages, 10),
			WaitTime:          env.duration(EnvWaitTime, 20*time.Second),
			VisibilityTimeout: env.duration(EnvVisibilityTimeout, 120*time.Second),
		},
		Flatten: FlattenConfig{
			Format:        env.string(EnvFormat, string(flatjson.CSV)),
			Separator:     env.string(EnvSeparator, DefaultSeparator),
			Arrays:        env.string(EnvArrays, "index"),
			Path:          env.string(EnvPath, "entry"),
			StripNewlines: env.bool(EnvStripNewlines, true),
			Index:         env.bool(EnvIndex, true),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv(EnvMetricsAddr),
		},
		Log: LogConfig{
			Level: env.string(EnvLogLevel, logging.DefaultLevel),
			File:  os.Getenv(EnvLogFile),
		},
	}
	cfg.envErrs = env.errs
	return cfg
}

// Validate checks that c is complete and consistent.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	errs := append([]error(nil), c.envErrs...)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	if _, err := flatjson.ParseFormat(c.Flatten.Format); err != nil {
		errs = append(errs, fmt.Errorf("Config.Flatten.Format: %w", err))
	}
	return errors.Join(errs...)
}

// FlattenOptions returns the flattener options described by c.
func (c FlattenConfig) FlattenOptions() (flatjson.Options, error) {
	arrays, err := flatjson.ParseArrayPolicy(c.Arrays)
	if err != nil {
		return flatjson.Options{}, err
	}
	return flatjson.Options{
		Separator:     c.Separator,
		Arrays:        arrays,
		Path:          c.Path,
		StripNewlines: c.StripNewlines,
	}, nil
}

// WriteOptions returns the table writer options described by c.
func (c FlattenConfig) WriteOptions() flatjson.WriteOptions {
	return flatjson.WriteOptions{Index: c.Index}
}

// envReader reads typed environment variables and collects the ones that
// do not parse.
type envReader struct {
	errs []error
}

func (e *envReader) string(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) int32(key string, fallback int32) int32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		e.fail(key, v, "a 32-bit integer")
		return fallback
	}
	return int32(n)
}

func (e *envReader) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, "a boolean")
		return fallback
	}
	return b
}

// duration accepts Go durations ("20s") or plain seconds ("20").
func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 32); err == nil {
		return time.Duration(n) * time.Second
	}
	e.fail(key, v, "a duration")
	return fallback
}

func (e *envReader) fail(key, value, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: not %s", key, value, want))
}
