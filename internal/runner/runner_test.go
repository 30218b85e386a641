package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/clean"
	"dataclean/internal/config"
	"dataclean/internal/storage"
	"dataclean/internal/table"
)

const weatherCSV = "time,temperature,wind\n" +
	"2021-01-01 00:00:00,5,10\n" +
	"2021-01-01 01:00:00,,12\n" +
	"2021-01-01 02:00:00,7,\n" +
	"2021-01-01 02:00:00,7,\n" +
	"2021-01-01 03:00:00,40,11\n"

const pricesCSV = "Tarih;PTF\n" +
	"2021-01-01 00:00:00;1200.5\n" +
	"2021-01-01 01:00:00;980\n" +
	"2021-01-01 02:00:00;1010\n" +
	"2021-01-01 03:00:00;1500\n"

type fakeRepo struct {
	spec   storage.TableSpec
	rows   [][]any
	closed bool
}

func (f *fakeRepo) Close() { f.closed = true }

func (f *fakeRepo) EnsureTable(_ context.Context, spec storage.TableSpec) error {
	f.spec = spec
	return nil
}

func (f *fakeRepo) InsertRows(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	f.rows = append(f.rows, rows...)
	return int64(len(rows)), nil
}

func fixture(t *testing.T) (dir string, job config.Job) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weather.csv"), []byte(weatherCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.csv"), []byte(pricesCSV), 0o644))

	job = config.Job{
		Job:            "weather",
		Input:          config.Input{Path: filepath.Join(dir, "weather.csv")},
		DatetimeColumn: "time",
		FillStrategy:   "mean",
		Ranges:         map[string]config.Bounds{"temperature": {Min: ptr(-50.0), Max: ptr(30.0)}},
		Merge: &config.Merge{
			Path:           filepath.Join(dir, "prices.csv"),
			Delimiter:      ";",
			LeftOn:         "time",
			RightOn:        "Tarih",
			DatetimeColumn: "Tarih",
		},
		Sort:    &config.Sort{Column: "time", Descending: true},
		Output:  &config.Output{Path: filepath.Join(dir, "out", "weather_clean.csv")},
		Storage: &config.Storage{Kind: "fake", DSN: "x", Table: "weather"},
	}
	return dir, job
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	_, job := fixture(t)
	repo := &fakeRepo{}
	r := &Runner{NewRepository: func(context.Context, storage.Config) (storage.Repository, error) {
		return repo, nil
	}}

	res, err := r.Run(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Clean.Rows)
	assert.Equal(t, 1, res.Clean.DuplicateRows)
	assert.Equal(t, 4, res.MergedRows)
	assert.Equal(t, 1, res.FilteredRows)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 5, res.Cols)
	assert.Equal(t, int64(3), res.StoredRows)
	assert.True(t, repo.closed)

	raw, err := os.ReadFile(job.Output.Path)
	require.NoError(t, err)
	want := "time,temperature,wind,Tarih,PTF\n" +
		"2021-01-01 02:00:00,7,11,2021-01-01 02:00:00,1010\n" +
		"2021-01-01 01:00:00,14.75,12,2021-01-01 01:00:00,980\n" +
		"2021-01-01 00:00:00,5,10,2021-01-01 00:00:00,1200.5\n"
	assert.Equal(t, want, string(raw))

	entries, err := os.ReadDir(filepath.Dir(job.Output.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")

	assert.Equal(t, "weather", repo.spec.Name)
	require.Len(t, repo.spec.Columns, 5)
	assert.Equal(t, storage.TypeTimestamp, repo.spec.Columns[0].Type)
	assert.Equal(t, storage.TypeNumeric, repo.spec.Columns[4].Type)
	assert.Equal(t, 7.0, repo.rows[0][1])
}

func TestRun_FailedStageWritesNothing(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	cases := []struct {
		name  string
		edit  func(*config.Job)
		stage string
		is    func(error) bool
	}{
		{
			name:  "bad_strategy",
			edit:  func(j *config.Job) { j.FillStrategy = "average" },
			stage: clean.StageImpute,
			is: func(err error) bool {
				var u *table.UnsupportedStrategyError
				return errors.As(err, &u)
			},
		},
		{
			name:  "missing_merge_key",
			edit:  func(j *config.Job) { j.Merge.RightOn = "Saat" },
			stage: clean.StageMerge,
			is: func(err error) bool {
				var c *table.ColumnNotFoundError
				return errors.As(err, &c)
			},
		},
		{
			name:  "sort_column",
			edit:  func(j *config.Job) { j.Sort.Column = "nope" },
			stage: clean.StageSort,
			is: func(err error) bool {
				var c *table.ColumnNotFoundError
				return errors.As(err, &c)
			},
		},
		{
			name:  "storage_down",
			edit:  func(*config.Job) {},
			stage: StageStore,
			is:    func(err error) bool { return errors.Is(err, storeErr) },
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, job := fixture(t)
			tc.edit(&job)
			r := &Runner{NewRepository: func(context.Context, storage.Config) (storage.Repository, error) {
				return nil, storeErr
			}}

			_, err := r.Run(context.Background(), job, nil)
			require.Error(t, err)
			assert.Equal(t, tc.stage, FailedStage(err))
			assert.True(t, tc.is(err), "unexpected cause: %v", err)

			_, statErr := os.Stat(job.Output.Path)
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "output written on failure")
			entries, _ := os.ReadDir(filepath.Dir(job.Output.Path))
			assert.Empty(t, entries, "temporary file left behind")
		})
	}
}

func TestRun_OutputOnlyXLSX(t *testing.T) {
	t.Parallel()

	dir, job := fixture(t)
	job.Merge, job.Storage, job.Sort = nil, nil, nil
	job.Output = &config.Output{Path: filepath.Join(dir, "clean.xlsx"), Sheet: "clean"}

	res, err := NewDefaultRunner().Run(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Equal(t, job.Output.Path, res.OutputPath)
	assert.Equal(t, 3, res.Rows)

	loaded, err := clean.Load(job.Output.Path, clean.LoadOptions{Sheet: "clean"})
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "temperature", "wind"}, loaded.ColumnNames())
	assert.Equal(t, 3, loaded.NumRows())
}

func TestRun_BadDelimiter(t *testing.T) {
	t.Parallel()

	_, job := fixture(t)
	job.Input.Delimiter = ";;"
	_, err := NewDefaultRunner().Run(context.Background(), job, nil)
	require.Error(t, err)
	assert.Equal(t, "", FailedStage(err))
}

func ptr[T any](v T) *T { return &v }
