// Package config loads and validates cleaning job definitions.
//
// A job is a YAML document (see Job). Values from the environment, prefixed
// with DATACLEAN_, override the file; a .env file is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"dataclean/internal/clean"
	"dataclean/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DATACLEAN"

// Job is one cleaning job.
type Job struct {
	Job                   string                 `yaml:"job" validate:"required"`
	Input                 Input                  `yaml:"input"`
	DatetimeColumn        string                 `yaml:"datetime_column" validate:"required"`
	FillStrategy          string                 `yaml:"fill_strategy" validate:"required"`
	MissingRatioThreshold *float64               `yaml:"missing_ratio_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Ranges                map[string]Bounds      `yaml:"ranges,omitempty"`
	Merge                 *Merge                 `yaml:"merge,omitempty"`
	Sort                  *Sort                  `yaml:"sort,omitempty"`
	Output                *Output                `yaml:"output,omitempty"`
	Storage               *Storage               `yaml:"storage,omitempty"`
	Logging               Logging                `yaml:"logging,omitempty"`
}

// Input describes the primary dataset.
type Input struct {
	Path          string   `yaml:"path" validate:"required"`
	Delimiter     string   `yaml:"delimiter,omitempty"`
	Encoding      string   `yaml:"encoding,omitempty"`
	Sheet         string   `yaml:"sheet,omitempty"`
	MissingTokens []string `yaml:"missing_tokens,omitempty"`
}

// Bounds is an inclusive range predicate. Both ends are required; a
// missing one is reported by ValidateJob rather than read as 0.
type Bounds struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// RangePredicates converts Ranges for clean.FilterByRange. Entries with a
// missing bound are left out; ValidateJob rejects them first.
func (j Job) RangePredicates() map[string]clean.Range {
	if len(j.Ranges) == 0 {
		return nil
	}
	out := make(map[string]clean.Range, len(j.Ranges))
	for name, b := range j.Ranges {
		if b.Min == nil || b.Max == nil {
			continue
		}
		out[name] = clean.Range{Min: *b.Min, Max: *b.Max}
	}
	return out
}

// Merge describes the optional second dataset joined onto the cleaned one.
type Merge struct {
	Path           string `yaml:"path" validate:"required"`
	Delimiter      string `yaml:"delimiter,omitempty"`
	Encoding       string `yaml:"encoding,omitempty"`
	Sheet          string `yaml:"sheet,omitempty"`
	LeftOn         string `yaml:"left_on" validate:"required"`
	RightOn        string `yaml:"right_on" validate:"required"`
	DatetimeColumn string `yaml:"datetime_column,omitempty"`
}

type Sort struct {
	Column     string `yaml:"column" validate:"required"`
	Descending bool   `yaml:"descending,omitempty"`
}

type Output struct {
	Path      string `yaml:"path" validate:"required"`
	Delimiter string `yaml:"delimiter,omitempty"`
	Sheet     string `yaml:"sheet,omitempty"`
}

// Storage selects a database backend registered with internal/storage.
type Storage struct {
	Kind      string   `yaml:"kind" validate:"required"`
	DSN       string   `yaml:"dsn" validate:"required"`
	Table     string   `yaml:"table" validate:"required"`
	BatchSize int      `yaml:"batch_size,omitempty" validate:"gte=0"`
	Unique    []string `yaml:"unique,omitempty"`
}

type Logging struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// Env holds the environment overrides, read with envconfig under EnvPrefix
// (DATACLEAN_INPUT_PATH, DATACLEAN_STORAGE_DSN, ...).
type Env struct {
	InputPath      string `envconfig:"INPUT_PATH"`
	OutputPath     string `envconfig:"OUTPUT_PATH"`
	StorageKind    string `envconfig:"STORAGE_KIND"`
	StorageDSN     string `envconfig:"STORAGE_DSN"`
	StorageTable   string `envconfig:"STORAGE_TABLE"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	MetricsBackend string `envconfig:"METRICS_BACKEND"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	MetricsTags    string `envconfig:"METRICS_TAGS"`
}

// LoadDotEnv reads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ReadEnv reads the DATACLEAN_* overrides.
func ReadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return e, nil
}

// Load reads the job file at path, applies environment overrides and fills
// defaults. It does not validate; see ValidateJob.
func Load(path string) (*Job, Env, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Env{}, fmt.Errorf("read config: %w", err)
	}
	j, err := Parse(data)
	if err != nil {
		return nil, Env{}, fmt.Errorf("%s: %w", path, err)
	}
	env, err := ReadEnv()
	if err != nil {
		return nil, Env{}, err
	}
	j.Apply(env)
	j.SetDefaults()
	return j, env, nil
}

// Parse decodes a job document. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	var j Job
	if err := yaml.UnmarshalStrict(data, &j); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &j, nil
}

// Marshal renders j as YAML that Parse accepts. Unset optional sections
// are omitted.
func Marshal(j *Job) ([]byte, error) {
	b, err := yaml.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return b, nil
}

// Apply overlays non-empty environment values onto j.
func (j *Job) Apply(e Env) {
	if e.InputPath != "" {
		j.Input.Path = e.InputPath
	}
	if e.OutputPath != "" {
		if j.Output == nil {
			j.Output = &Output{}
		}
		j.Output.Path = e.OutputPath
	}
	if e.StorageKind != "" || e.StorageDSN != "" || e.StorageTable != "" {
		if j.Storage == nil {
			j.Storage = &Storage{}
		}
		if e.StorageKind != "" {
			j.Storage.Kind = e.StorageKind
		}
		if e.StorageDSN != "" {
			j.Storage.DSN = e.StorageDSN
		}
		if e.StorageTable != "" {
			j.Storage.Table = e.StorageTable
		}
	}
	if e.LogLevel != "" {
		j.Logging.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		j.Logging.Format = e.LogFormat
	}
}

// SetDefaults fills optional fields left empty.
func (j *Job) SetDefaults() {
	if j.Input.Delimiter == "" {
		j.Input.Delimiter = ","
	}
	if j.Merge != nil && j.Merge.Delimiter == "" {
		j.Merge.Delimiter = j.Input.Delimiter
	}
	if j.Output != nil && j.Output.Delimiter == "" {
		j.Output.Delimiter = j.Input.Delimiter
	}
	if j.Storage != nil && j.Storage.BatchSize == 0 {
		j.Storage.BatchSize = storage.DefaultBatchSize
	}
}

// Delimiter returns the single rune of s, or ',' for an empty s.
func Delimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	if r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r[0], nil
}
