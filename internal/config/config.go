// Package config loads the configuration of cfbdump.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/dustin/go-humanize"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// ErrInvalidConfig is returned for configuration files which cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed config.schema.json
var schemaSource string

// DefaultMaxInputSize limits how much a compressed sample may expand to.
const DefaultMaxInputSize = 1 << 30

// Config is the content of a configuration file.
type Config struct {
	Log    LogConfig    `yaml:"log" json:"log"`
	Limits LimitsConfig `yaml:"limits" json:"limits"`
	Parse  ParseConfig  `yaml:"parse" json:"parse"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type LimitsConfig struct {
	// MaxInputSize is the maximum size of a decompressed input file.
	MaxInputSize ByteSize `yaml:"max_input_size" json:"max_input_size"`
	// CacheEntries is the number of resolved streams kept in memory, 0 disables the cache.
	CacheEntries int `yaml:"cache_entries" json:"cache_entries"`
	// Workers limits the parallel resolution of streams, 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

type ParseConfig struct {
	SkipChecks bool `yaml:"skip_checks" json:"skip_checks"`
}

// ByteSize is a size in bytes which may be written as number or human readable like "64MiB".
type ByteSize uint64

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var n uint64
	if err := value.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Default returns the configuration used if no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			MaxInputSize: DefaultMaxInputSize,
		},
	}
}

// Load reads the configuration file at path from fs. Values missing in the file keep their defaults.
// An empty path returns the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, checkpoint.Wrapf(err, "could not read config %q", path)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, checkpoint.Wrapf(err, "config %q", path)
	}
	return cfg, nil
}

// Parse validates data against the schema and decodes it into cfg.
func Parse(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := validate(data); err != nil {
		return checkpoint.Wrap(err, ErrInvalidConfig)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// A file with only comments decodes to nothing.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return checkpoint.Wrap(err, ErrInvalidConfig)
	}
	return nil
}

func validate(data []byte) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaSource)
	if err != nil {
		return checkpoint.From(err)
	}

	converted, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return checkpoint.From(err)
	}

	var doc interface{}
	if err := json.Unmarshal(converted, &doc); err != nil {
		return checkpoint.From(err)
	}

	if doc == nil {
		return nil
	}
	return schema.Validate(doc)
}
