package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/clean"
	"dataclean/internal/storage"
)

func init() {
	storage.Register("configtest", func(context.Context, storage.Config) (storage.Repository, error) {
		return nil, nil
	})
}

const sampleJob = `
job: istanbul_weather
input: {path: data/raw/weather.csv, delimiter: ",", encoding: utf-8}
datetime_column: time
fill_strategy: mean
missing_ratio_threshold: 0.5
ranges:
  temperature: {min: -50, max: 60}
merge: {path: data/raw/prices.csv, left_on: time, right_on: Tarih, datetime_column: Tarih}
sort: {column: time, descending: true}
output: {path: data/clean/weather.csv}
storage: {kind: configtest, dsn: "file:clean.db", table: weather}
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_ParsesDefaultsAndValidates(t *testing.T) {
	j, _, err := Load(writeFile(t, "job.yaml", sampleJob))
	require.NoError(t, err)

	assert.Equal(t, "istanbul_weather", j.Job)
	assert.Equal(t, "mean", j.FillStrategy)
	require.NotNil(t, j.MissingRatioThreshold)
	assert.Equal(t, 0.5, *j.MissingRatioThreshold)
	assert.Equal(t, map[string]clean.Range{"temperature": {Min: -50, Max: 60}}, j.RangePredicates())
	assert.Equal(t, "Tarih", j.Merge.RightOn)
	assert.Equal(t, ",", j.Merge.Delimiter)
	assert.True(t, j.Sort.Descending)
	assert.Equal(t, storage.DefaultBatchSize, j.Storage.BatchSize)

	assert.Empty(t, ValidateJob(*j))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DATACLEAN_OUTPUT_PATH", "/tmp/out.xlsx")
	t.Setenv("DATACLEAN_STORAGE_DSN", "file:other.db")
	t.Setenv("DATACLEAN_LOG_LEVEL", "debug")
	t.Setenv("DATACLEAN_METRICS_BACKEND", "datadog")

	j, env, err := Load(writeFile(t, "job.yaml", sampleJob))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out.xlsx", j.Output.Path)
	assert.Equal(t, "file:other.db", j.Storage.DSN)
	assert.Equal(t, "configtest", j.Storage.Kind)
	assert.Equal(t, "debug", j.Logging.Level)
	assert.Equal(t, "datadog", env.MetricsBackend)
}

func TestApply_CreatesSections(t *testing.T) {
	t.Parallel()

	j := &Job{}
	j.Apply(Env{OutputPath: "o.csv", StorageKind: "sqlite"})
	require.NotNil(t, j.Output)
	require.NotNil(t, j.Storage)
	assert.Equal(t, "o.csv", j.Output.Path)
	assert.Equal(t, "sqlite", j.Storage.Kind)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("job: x\nfill_stratgy: mean\n"))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateJob_ReportsIssues(t *testing.T) {
	t.Parallel()

	th := 1.5
	j := Job{
		Input:                 Input{Path: "in.csv", Delimiter: ";;", Encoding: "klingon"},
		DatetimeColumn:        "time",
		FillStrategy:          "average",
		MissingRatioThreshold: &th,
		Ranges:                map[string]Bounds{"b": {Min: ptr(5.0), Max: ptr(1.0)}},
		Storage:               &Storage{Kind: "oracle", DSN: "x", Table: "t"},
		Logging:               Logging{Level: "loud"},
	}
	issues := ValidateJob(j)
	require.True(t, HasErrors(issues))

	byPath := map[string]Issue{}
	for _, iss := range issues {
		byPath[iss.Path] = iss
	}
	for _, p := range []string{
		"job",
		"missing_ratio_threshold",
		"fill_strategy",
		"input.delimiter",
		"input.encoding",
		"ranges.b",
		"storage.kind",
		"logging.level",
	} {
		iss, ok := byPath[p]
		if assert.True(t, ok, "missing issue for %s; got %v", p, issues) {
			assert.Equal(t, SeverityError, iss.Severity, p)
		}
	}
	assert.Equal(t, "is required", byPath["job"].Message)
	assert.Equal(t, "must be less than or equal to 1", byPath["missing_ratio_threshold"].Message)
}

func TestValidateJob_NestedRequiredAndWarnings(t *testing.T) {
	t.Parallel()

	j := Job{
		Job:            "j",
		Input:          Input{Path: "in.csv"},
		DatetimeColumn: "time",
		FillStrategy:   "mode",
		Merge:          &Merge{Path: "p.csv", LeftOn: "time"},
		Output:         &Output{Path: "out.parquet"},
	}
	issues := ValidateJob(j)

	require.NotEmpty(t, issues)
	assert.Equal(t, Issue{Severity: SeverityError, Path: "merge.right_on", Message: "is required"}, issues[0])
	assert.Equal(t, SeverityWarning, issues[len(issues)-1].Severity)
	assert.Equal(t, "output.path", issues[len(issues)-1].Path)

	j = Job{Job: "j", Input: Input{Path: "in.csv"}, DatetimeColumn: "t", FillStrategy: "mean"}
	issues = ValidateJob(j)
	require.Len(t, issues, 1)
	assert.Equal(t, "output", issues[0].Path)
	assert.False(t, HasErrors(issues))
}

func TestValidateJob_RangeNeedsBothBounds(t *testing.T) {
	t.Parallel()

	j, err := Parse([]byte(`
job: j
input: {path: in.csv}
datetime_column: time
fill_strategy: mean
output: {path: out.csv}
ranges:
  windspeed: {min: 0}
  temperature: {max: 60}
`))
	require.NoError(t, err)

	issues := ValidateJob(*j)
	assert.Equal(t, []Issue{
		{Severity: SeverityError, Path: "ranges.temperature.min", Message: "is required"},
		{Severity: SeverityError, Path: "ranges.windspeed.max", Message: "is required"},
	}, issues)
	assert.Empty(t, j.RangePredicates())
}

func TestValidateJob_StrategyIsCaseSensitive(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"Mean", "MEDIAN", " mode "} {
		j := Job{Job: "j", Input: Input{Path: "in.csv"}, DatetimeColumn: "t", FillStrategy: s, Output: &Output{Path: "o.csv"}}
		issues := ValidateJob(j)
		require.Len(t, issues, 1, s)
		assert.Equal(t, "fill_strategy", issues[0].Path, s)
	}
}

func TestDelimiter(t *testing.T) {
	t.Parallel()

	cases := map[string]rune{"": ',', ",": ',', ";": ';', `\t`: '\t', "\t": '\t', "|": '|'}
	for in, want := range cases {
		got, err := Delimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{";;", `"`, "\n"} {
		_, err := Delimiter(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("DATACLEAN_TEST_DOTENV=from-file\nDATACLEAN_TEST_KEEP=from-file\n"), 0o644))

	t.Setenv("DATACLEAN_TEST_KEEP", "from-env")
	t.Setenv("DATACLEAN_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("DATACLEAN_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(p, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("DATACLEAN_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("DATACLEAN_TEST_KEEP"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "none.env")))
}

func ptr[T any](v T) *T { return &v }
