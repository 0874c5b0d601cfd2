// Package matcfg loads translator configuration from TOML or YAML files.
package matcfg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/gmat/matbuild"
	"github.com/soypat/gmat/mateval"
	"gopkg.in/yaml.v3"
)

// Config configures the translation of materials. The zero Config targets
// SM5 with virtual texturing disabled and logging off.
type Config struct {
	// FeatureLevel is one of ES2, ES3_1, SM4 or SM5. Empty selects SM5.
	FeatureLevel     string `toml:"feature_level" yaml:"feature_level"`
	VirtualTexturing bool   `toml:"virtual_texturing" yaml:"virtual_texturing"`
	// StaticSwitches override static bool parameters by name.
	StaticSwitches map[string]bool `toml:"static_switches" yaml:"static_switches"`
	// Parameters override runtime parameter defaults by name. Scalars have
	// one element, vectors up to four.
	Parameters map[string][]float32 `toml:"parameters" yaml:"parameters"`
	// LogLevel is a slog level name such as "debug" or "info". Empty disables logging.
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Format is a configuration file encoding.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

// Decoder decodes a configuration.
type Decoder interface {
	Decode(v any) error
}

// DecoderFunc returns a decoder reading from r.
type DecoderFunc func(r io.Reader) Decoder

// Decoder returns the decoder function of the format.
func (f Format) Decoder() DecoderFunc {
	switch f {
	case FormatTOML:
		return func(r io.Reader) Decoder {
			return toml.NewDecoder(r).DisallowUnknownFields()
		}
	case FormatYAML:
		return func(r io.Reader) Decoder {
			d := yaml.NewDecoder(r)
			d.KnownFields(true)
			return d
		}
	}
	panic("matcfg: unknown format")
}

// FormatFromPath returns the format of a file by its extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// Load reads the configuration file at path. The format is chosen by extension.
func Load(path string) (Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	cfg, err := Read(bufio.NewReader(fp), format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes and validates a configuration from r.
func Read(r io.Reader, format Format) (Config, error) {
	var cfg Config
	err := format.Decoder()(r).Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values of the configuration.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseFeatureLevel(c.FeatureLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	for name, v := range c.Parameters {
		if len(v) == 0 || len(v) > 4 {
			errs = append(errs, fmt.Errorf("parameter %q has %d components, want 1 to 4", name, len(v)))
		}
	}
	return errors.Join(errs...)
}

// Options returns the translator options of the configuration. The
// translator logs to w with a text handler when LogLevel is set and w is not nil.
func (c Config) Options(w io.Writer) (matbuild.Options, error) {
	fl, err := ParseFeatureLevel(c.FeatureLevel)
	if err != nil {
		return matbuild.Options{}, err
	}
	opts := matbuild.Options{
		FeatureLevel:     fl,
		VirtualTexturing: c.VirtualTexturing,
		StaticSwitches:   c.StaticSwitches,
	}
	level, err := c.level()
	if err != nil {
		return matbuild.Options{}, err
	}
	if c.LogLevel != "" && w != nil {
		opts.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return opts, nil
}

// ParameterValues returns the parameter overrides for preshader evaluation.
// A single component replicates across the value.
func (c Config) ParameterValues() (matbuild.ParameterValues, error) {
	if len(c.Parameters) == 0 {
		return nil, nil
	}
	vals := make(matbuild.ParameterValues, len(c.Parameters))
	for name, v := range c.Parameters {
		switch n := len(v); {
		case n == 1:
			vals[name] = mateval.Scalar(v[0])
		case n > 1 && n <= 4:
			var val mateval.Value
			copy(val[:], v)
			vals[name] = val
		default:
			return nil, fmt.Errorf("parameter %q has %d components, want 1 to 4", name, n)
		}
	}
	return vals, nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// ParseFeatureLevel parses a feature level name. The empty string is SM5.
func ParseFeatureLevel(s string) (matbuild.FeatureLevel, error) {
	if s == "" {
		return matbuild.FeatureSM5, nil
	}
	for fl := matbuild.FeatureES2; fl <= matbuild.FeatureSM5; fl++ {
		if strings.EqualFold(s, fl.String()) {
			return fl, nil
		}
	}
	return 0, fmt.Errorf("unknown feature level %q", s)
}
