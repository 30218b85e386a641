// Package runner executes a configured cleaning job end to end: clean,
// optional merge, range filter, sort, then save and/or store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dataclean/internal/clean"
	"dataclean/internal/config"
	"dataclean/internal/metrics"
	"dataclean/internal/sink"
	"dataclean/internal/storage"
	"dataclean/internal/table"
)

// Stages owned by the runner, in addition to the clean.Stage* names.
const (
	StageSave  = "save"
	StageStore = "store"
)

type Runner struct {
	// storage-agnostic factory seam
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

func NewDefaultRunner() *Runner {
	return &Runner{NewRepository: storage.New}
}

// Result summarises a successful run.
type Result struct {
	Clean        *clean.Report
	MergedRows   int
	FilteredRows int
	Rows, Cols   int
	OutputPath   string
	StoredRows   int64
	Duration     time.Duration
}

// Run executes job. On failure nothing is written to job.Output and the
// error is a *clean.StageError naming the failing stage (configuration
// errors excepted).
func (r *Runner) Run(ctx context.Context, job config.Job, log *slog.Logger) (res *Result, err error) {
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": status})
	}()

	opt, err := cleanOptions(job, log)
	if err != nil {
		return nil, err
	}

	t, rep, err := clean.Clean(job.Input.Path, opt)
	if err != nil {
		return nil, err
	}
	res = &Result{Clean: rep}

	if m := job.Merge; m != nil {
		if err := clean.Track(clean.StageMerge, func() (err error) {
			t, err = r.merge(t, m)
			return err
		}); err != nil {
			return nil, err
		}
		res.MergedRows = t.NumRows()
		metrics.RecordRows("merged", res.MergedRows)
		log.Info("merged", "path", m.Path, "left_on", m.LeftOn, "right_on", m.RightOn, "rows", res.MergedRows)
	}

	if preds := job.RangePredicates(); len(preds) > 0 {
		if err := clean.Track(clean.StageFilterRange, func() (err error) {
			t, res.FilteredRows, err = clean.FilterByRange(t, preds)
			return err
		}); err != nil {
			return nil, err
		}
		metrics.RecordRows("filtered", res.FilteredRows)
		log.Info("filtered by range", "removed", res.FilteredRows, "rows", t.NumRows())
	}

	if s := job.Sort; s != nil {
		if err := clean.Track(clean.StageSort, func() (err error) {
			t, err = clean.SortByColumn(t, s.Column, !s.Descending)
			return err
		}); err != nil {
			return nil, err
		}
		log.Info("sorted", "column", s.Column, "descending", s.Descending)
	}

	res.Rows, res.Cols = t.NumRows(), t.NumCols()

	// The file is written to a temporary path first and renamed into place
	// only after storage has succeeded.
	var tmp string
	if o := job.Output; o != nil {
		if err := clean.Track(StageSave, func() (err error) {
			tmp, err = saveTemp(t, o)
			return err
		}); err != nil {
			return nil, err
		}
		defer func() {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}()
	}

	if s := job.Storage; s != nil {
		if err := clean.Track(StageStore, func() (err error) {
			res.StoredRows, err = r.store(ctx, t, s)
			return err
		}); err != nil {
			return nil, err
		}
		metrics.RecordRows("stored", int(res.StoredRows))
		log.Info("stored", "kind", s.Kind, "table", s.Table, "rows", res.StoredRows)
	}

	if o := job.Output; o != nil {
		if err := os.Rename(tmp, o.Path); err != nil {
			return nil, &clean.StageError{Stage: StageSave, Err: &table.IOError{Op: "rename", Path: o.Path, Err: err}}
		}
		tmp = ""
		res.OutputPath = o.Path
		metrics.RecordRows("saved", res.Rows)
		log.Info("saved", "path", o.Path, "rows", res.Rows, "cols", res.Cols)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func cleanOptions(job config.Job, log *slog.Logger) (clean.Options, error) {
	comma, err := config.Delimiter(job.Input.Delimiter)
	if err != nil {
		return clean.Options{}, fmt.Errorf("input.delimiter: %w", err)
	}
	return clean.Options{
		DatetimeColumn: job.DatetimeColumn,
		FillStrategy:   job.FillStrategy,
		Threshold:      job.MissingRatioThreshold,
		Logger:         log,
		Load: clean.LoadOptions{
			Delimiter:     comma,
			Encoding:      job.Input.Encoding,
			MissingTokens: job.Input.MissingTokens,
			Sheet:         job.Input.Sheet,
		},
	}, nil
}

func (r *Runner) merge(left *table.Table, m *config.Merge) (*table.Table, error) {
	comma, err := config.Delimiter(m.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("merge.delimiter: %w", err)
	}
	right, err := clean.Load(m.Path, clean.LoadOptions{Delimiter: comma, Encoding: m.Encoding, Sheet: m.Sheet})
	if err != nil {
		return nil, err
	}
	if m.DatetimeColumn != "" {
		if right, err = clean.ConvertColumnToDatetime(right, m.DatetimeColumn); err != nil {
			return nil, err
		}
	}
	return clean.Merge(left, right, m.LeftOn, m.RightOn)
}

// saveTemp writes t next to o.Path under a hidden temporary name with the
// same extension and returns that name.
func saveTemp(t *table.Table, o *config.Output) (string, error) {
	comma, err := config.Delimiter(o.Delimiter)
	if err != nil {
		return "", fmt.Errorf("output.delimiter: %w", err)
	}

	dir, base := filepath.Split(o.Path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &table.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return "", &table.IOError{Op: "create", Path: o.Path, Err: err}
	}
	tmp := f.Name()
	_ = f.Close()

	if err := sink.Save(t, tmp, sink.Options{Comma: comma, Sheet: o.Sheet}); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func (r *Runner) store(ctx context.Context, t *table.Table, s *config.Storage) (int64, error) {
	newRepo := r.NewRepository
	if newRepo == nil {
		newRepo = storage.New
	}
	repo, err := newRepo(ctx, storage.Config{Kind: s.Kind, DSN: os.ExpandEnv(s.DSN)})
	if err != nil {
		return 0, fmt.Errorf("open %s storage: %w", s.Kind, err)
	}
	defer repo.Close()

	return storage.WriteTable(ctx, repo, s.Table, t, storage.WriteOptions{
		BatchSize: s.BatchSize,
		Unique:    s.Unique,
	})
}

// FailedStage returns the stage name carried by err, or "" when err did not
// come from a stage.
func FailedStage(err error) string {
	var se *clean.StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
