// Package config loads arraypull configuration from YAML. Files are checked
// against an embedded CUE schema before they are decoded.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/index"
	"github.com/roach88/arraypull/internal/path"
)

//go:embed schema.cue
var schemaCUE string

// Defaults.
const (
	DefaultNamespace = "default"
	DefaultWorkers   = 4
)

// DefaultImmutablePaths are protected unless the file lists its own.
var DefaultImmutablePaths = []string{"_id"}

// Config is the engine configuration.
type Config struct {
	Namespace      string         `yaml:"namespace" json:"namespace"`
	Collation      collation.Spec `yaml:"collation" json:"collation"`
	Indexes        []string       `yaml:"indexes" json:"indexes"`
	IndexPrefixes  []string       `yaml:"index_prefixes" json:"index_prefixes"`
	ImmutablePaths []string       `yaml:"immutable_paths" json:"immutable_paths"`
	Database       string         `yaml:"database" json:"database"`
	Workers        int            `yaml:"workers" json:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Namespace:      DefaultNamespace,
		Collation:      collation.Spec{Locale: collation.SimpleLocale},
		ImmutablePaths: append([]string(nil), DefaultImmutablePaths...),
		Workers:        DefaultWorkers,
	}
}

// Error describes an invalid configuration.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsInvalid reports whether err is, or wraps, a configuration *Error.
func IsInvalid(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Load reads and parses the file at filename.
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the schema, decodes it, and fills in
// defaults for omitted fields.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &Error{Field: "yaml", Message: err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validateSchema(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.ImmutablePaths = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &Error{Field: "yaml", Message: err.Error()}
	}
	if _, ok := raw["immutable_paths"]; !ok {
		cfg.ImmutablePaths = append([]string(nil), DefaultImmutablePaths...)
	}
	if cfg.Collation.Locale == "" {
		cfg.Collation.Locale = collation.SimpleLocale
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateSchema(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "config", Message: err.Error()}
	}
	first := errs[0]
	field := "config"
	if p := fieldPath(first.Path()); len(p) > 0 {
		field = strings.Join(p, ".")
	}
	ce := &Error{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// fieldPath drops the #Config selector that leads every schema error path.
func fieldPath(p []string) []string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		return p[1:]
	}
	return p
}

// Validate checks what the schema cannot: that the collation exists and
// the paths parse.
func (c Config) Validate() error {
	if _, err := collation.New(c.Collation); err != nil {
		return &Error{Field: "collation", Message: err.Error()}
	}
	for _, group := range []struct {
		field string
		paths []string
	}{
		{"indexes", c.Indexes},
		{"index_prefixes", c.IndexPrefixes},
		{"immutable_paths", c.ImmutablePaths},
	} {
		for _, p := range group.paths {
			if _, err := path.Parse(p); err != nil {
				return &Error{Field: group.field, Message: err.Error()}
			}
		}
	}
	if c.Workers < 1 {
		return &Error{Field: "workers", Message: "must be at least 1"}
	}
	return nil
}

// Catalog builds the index catalog.
func (c Config) Catalog() *index.Catalog {
	return index.NewCatalog(c.Indexes, c.IndexPrefixes)
}

// Immutable parses ImmutablePaths.
func (c Config) Immutable() (*path.FieldRefSet, error) {
	return path.NewFieldRefSet(c.ImmutablePaths...)
}
