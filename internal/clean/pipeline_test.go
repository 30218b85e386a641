package clean

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/metrics"
	"dataclean/internal/table"
)

const weatherCSV = `time,temperature,wind_speed,radiation
2021-01-01 00:00:00,5,3,0
2021-01-01 01:00:00,6,,0
2021-01-01 02:00:00,999,5,10
2021-01-01 03:00:00,7,7,20
2021-01-01 04:00:00,8,9,30
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWeatherScenario(t *testing.T) {
	t.Parallel()

	in, err := Load(writeFile(t, "weather.csv", weatherCSV), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 5, in.NumRows())

	conv, err := ConvertColumnToDatetime(in, "time")
	require.NoError(t, err)

	filled, rep, err := ImputeMissing(conv, "mean")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"wind_speed": 1}, rep.Filled)
	assert.Equal(t, 6.0, cells(filled, "wind_speed")[1])

	out, removed, err := FilterByRange(filled, map[string]Range{"temperature": {Min: -50, Max: 60}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 4, out.NumRows())
	assert.Equal(t, []any{5.0, 6.0, 7.0, 8.0}, cells(out, "temperature"))
}

func TestClean_ComposesStages(t *testing.T) {
	t.Parallel()

	body := weatherCSV +
		"2021-01-01 04:00:00,8,9,30\n" + // duplicate of the last row
		"not a date,9,,\n"
	th := 0.5
	out, rep, err := Clean(writeFile(t, "w.csv", body), Options{
		DatetimeColumn: "time",
		FillStrategy:   "median",
		Threshold:      &th,
		Logger:         quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 7, rep.Rows)
	assert.Equal(t, 4, rep.Cols)
	assert.Equal(t, map[string]int{"time": 1, "temperature": 0, "wind_speed": 2, "radiation": 1}, rep.Audit.Counts())
	assert.Empty(t, rep.Dropped)
	assert.Equal(t, Median, rep.Impute.Strategy)
	assert.Equal(t, 1, rep.DuplicateRows)
	assert.Equal(t, 6, out.NumRows())
	assert.Equal(t, 6, rep.FinalRows)

	c, _ := out.Column("time")
	assert.Equal(t, table.Datetime, c.Type)
	assert.Nil(t, c.Cells[5], "unparseable time stays missing")
	w, _ := out.Column("wind_speed")
	assert.Zero(t, w.Missing())
}

func TestClean_PrunesBeforeImputing(t *testing.T) {
	t.Parallel()

	body := "time,a,b\n" +
		"2021-01-01,1,\n" +
		"2021-01-02,2,\n" +
		"2021-01-03,,5\n"
	th := 0.5
	out, rep, err := Clean(writeFile(t, "p.csv", body), Options{
		DatetimeColumn: "time",
		FillStrategy:   "mean",
		Threshold:      &th,
		Logger:         quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, rep.Dropped)
	assert.Equal(t, []string{"time", "a"}, out.ColumnNames())
	assert.Equal(t, []any{1.0, 2.0, 1.5}, cells(out, "a"))
}

func TestClean_ReportsFailingStage(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "good.csv", weatherCSV)
	bad := writeFile(t, "bad.csv", "a,b\n1,2,3\n")

	cases := []struct {
		name   string
		path   string
		opt    Options
		stage  string
		target any
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.csv"), Options{DatetimeColumn: "time", FillStrategy: "mean"}, StageLoad, new(*table.IOError)},
		{"malformed", bad, Options{DatetimeColumn: "a", FillStrategy: "mean"}, StageLoad, new(*table.ParseError)},
		{"no time column", good, Options{DatetimeColumn: "when", FillStrategy: "mean"}, StageConvertDatetime, new(*table.ColumnNotFoundError)},
		{"numeric time column", good, Options{DatetimeColumn: "temperature", FillStrategy: "mean"}, StageConvertDatetime, new(*table.ConversionError)},
		{"bogus strategy", good, Options{DatetimeColumn: "time", FillStrategy: "bogus"}, StageImpute, new(*table.UnsupportedStrategyError)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opt.Logger = quietLogger()
			out, rep, err := Clean(tc.path, tc.opt)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Nil(t, rep)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.stage, se.Stage)
			assert.True(t, errors.As(err, tc.target), "cause %T", se.Err)
		})
	}
}

func TestClean_RejectsThresholdOutOfRange(t *testing.T) {
	t.Parallel()

	th := 1.5
	_, _, err := Clean(writeFile(t, "w.csv", weatherCSV), Options{
		DatetimeColumn: "time",
		FillStrategy:   "mean",
		Threshold:      &th,
	})
	assert.ErrorContains(t, err, "outside [0,1]")

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePruneSparse, se.Stage)
}

func TestLoad_DispatchesXLSXByExtension(t *testing.T) {
	t.Parallel()

	// Not a workbook: the xlsx reader must reject it rather than the CSV
	// reader accepting it as text.
	_, err := Load(writeFile(t, "fake.XLSX", "a,b\n1,2\n"), LoadOptions{})
	var pe *table.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestClean_JSONLinesInput(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "weather.jsonl", `{"time": "2021-01-01 00:00:00", "temperature": 5, "wind_speed": 3}
{"time": "2021-01-01 01:00:00", "temperature": null, "wind_speed": 3}
{"time": "2021-01-01 00:00:00", "temperature": 5, "wind_speed": 3}
`)
	out, rep, err := Clean(path, Options{DatetimeColumn: "time", FillStrategy: "mean", Logger: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 1, rep.DuplicateRows)
	assert.Equal(t, 2, out.NumRows())

	ts, _ := out.Column("time")
	temp, _ := out.Column("temperature")
	assert.Equal(t, table.Datetime, ts.Type)
	assert.Equal(t, []any{5.0, 5.0}, temp.Cells)
}

type stageRecorder struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (r *stageRecorder) IncCounter(name string, delta float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == metrics.StageTotal {
		r.counts[l["stage"]+"/"+l["status"]] += delta
	}
}
func (r *stageRecorder) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *stageRecorder) Flush() error                                     { return nil }

// Not parallel: installs a process-wide metrics backend.
func TestTrack_RecordsStatus(t *testing.T) {
	rec := &stageRecorder{counts: map[string]float64{}}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	require.NoError(t, Track(StageSort, func() error { time.Sleep(time.Millisecond); return nil }))
	err := Track(StageMerge, func() error { return io.ErrUnexpectedEOF })

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageMerge, se.Stage)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1.0, rec.counts["sort/ok"])
	assert.Equal(t, 1.0, rec.counts["merge/error"])
}
