package config

import (
	"strconv"
	"testing"
	"time"

	"github.com/bjaus/flatjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvInputBucket, "in-bucket")
	t.Setenv(EnvOutputBucket, "out-bucket")
	t.Setenv(EnvQueue, "batch-queue")
	t.Setenv(EnvRegion, "eu-west-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg := Load()

	assert.Equal(t, "in-bucket", cfg.Storage.InputBucket)
	assert.Equal(t, "out-bucket", cfg.Storage.OutputBucket)
	assert.Equal(t, "batch-queue", cfg.Queue.Name)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, "flattened/", cfg.Storage.OutputPrefix)
	assert.NotEmpty(t, cfg.Storage.WorkDir)
	assert.Equal(t, int32(10), cfg.Queue.MaxMessages)
	assert.Equal(t, 20*time.Second, cfg.Queue.WaitTime)
	assert.Equal(t, 120*time.Second, cfg.Queue.VisibilityTimeout)
	assert.Equal(t, "csv", cfg.Flatten.Format)
	assert.Equal(t, "_", cfg.Flatten.Separator)
	assert.Equal(t, "index", cfg.Flatten.Arrays)
	assert.Equal(t, "entry", cfg.Flatten.Path)
	assert.True(t, cfg.Flatten.StripNewlines)
	assert.True(t, cfg.Flatten.Index)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvOutputPrefix, "tables/")
	t.Setenv(EnvFormat, "jsonl")
	t.Setenv(EnvArrays, "json")
	t.Setenv(EnvPath, "")
	t.Setenv(EnvStripNewlines, "false")
	t.Setenv(EnvMaxMessages, "5")
	t.Setenv(EnvWaitTime, "7")
	t.Setenv(EnvVisibilityTimeout, "1m")
	t.Setenv(EnvMetricsAddr, "localhost:9090")
	cfg := Load()

	assert.Equal(t, "tables/", cfg.Storage.OutputPrefix)
	assert.Equal(t, "jsonl", cfg.Flatten.Format)
	assert.Equal(t, "json", cfg.Flatten.Arrays)
	assert.Equal(t, "entry", cfg.Flatten.Path, "empty env falls back to the default")
	assert.False(t, cfg.Flatten.StripNewlines)
	assert.Equal(t, int32(5), cfg.Queue.MaxMessages)
	assert.Equal(t, 7*time.Second, cfg.Queue.WaitTime)
	assert.Equal(t, time.Minute, cfg.Queue.VisibilityTimeout)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMalformedValues(t *testing.T) {
	tests := map[string]struct {
		key   string
		value string
		check func(t *testing.T, cfg Config)
	}{
		"max messages overflows int32": {
			key:   EnvMaxMessages,
			value: "4294967297",
			check: func(t *testing.T, cfg Config) { assert.Equal(t, int32(10), cfg.Queue.MaxMessages) },
		},
		"max messages not a number": {
			key:   EnvMaxMessages,
			value: "many",
			check: func(t *testing.T, cfg Config) { assert.Equal(t, int32(10), cfg.Queue.MaxMessages) },
		},
		"wait time": {
			key:   EnvWaitTime,
			value: "soon",
			check: func(t *testing.T, cfg Config) { assert.Equal(t, 20*time.Second, cfg.Queue.WaitTime) },
		},
		"visibility timeout": {
			key:   EnvVisibilityTimeout,
			value: "2 minutes",
			check: func(t *testing.T, cfg Config) { assert.Equal(t, 120*time.Second, cfg.Queue.VisibilityTimeout) },
		},
		"index": {
			key:   EnvIndex,
			value: "maybe",
			check: func(t *testing.T, cfg Config) { assert.True(t, cfg.Flatten.Index) },
		},
		"strip newlines": {
			key:   EnvStripNewlines,
			value: "nope",
			check: func(t *testing.T, cfg Config) { assert.True(t, cfg.Flatten.StripNewlines) },
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			cfg := Load()
			tt.check(t, cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key+"="+strconv.Quote(tt.value))
		})
	}
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvMaxMessages, "4294967297")
	t.Setenv(EnvIndex, "maybe")
	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvMaxMessages)
	assert.Contains(t, err.Error(), EnvIndex)
}

func TestValidate(t *testing.T) {
	setRequired(t)
	base := Load()

	tests := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"missing input bucket": {
			mutate: func(c *Config) { c.Storage.InputBucket = "" },
			want:   "InputBucket",
		},
		"missing queue": {
			mutate: func(c *Config) { c.Queue.Name = "" },
			want:   "Queue.Name",
		},
		"too many messages": {
			mutate: func(c *Config) { c.Queue.MaxMessages = 11 },
			want:   "MaxMessages",
		},
		"wait time too long": {
			mutate: func(c *Config) { c.Queue.WaitTime = time.Minute },
			want:   "WaitTime",
		},
		"bad array policy": {
			mutate: func(c *Config) { c.Flatten.Arrays = "explode" },
			want:   "Arrays",
		},
		"bad format": {
			mutate: func(c *Config) { c.Flatten.Format = "parquet" },
			want:   "unsupported format",
		},
		"bad metrics addr": {
			mutate: func(c *Config) { c.Metrics.Addr = "not an address" },
			want:   "Metrics.Addr",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFlattenOptions(t *testing.T) {
	t.Parallel()
	fc := FlattenConfig{Separator: "_", Arrays: "json", Path: "entry", StripNewlines: true, Index: true}
	opts, err := fc.FlattenOptions()
	require.NoError(t, err)
	assert.Equal(t, flatjson.Options{Separator: "_", Arrays: flatjson.ArrayJSON, Path: "entry", StripNewlines: true}, opts)
	assert.Equal(t, flatjson.WriteOptions{Index: true}, fc.WriteOptions())

	fc.Arrays = "explode"
	_, err = fc.FlattenOptions()
	assert.Error(t, err)
}
