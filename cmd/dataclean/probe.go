package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dataclean/internal/clean"
	"dataclean/internal/config"
	"dataclean/internal/probe"
	"dataclean/internal/table"
)

type probeFlags struct {
	delimiter      string
	encoding       string
	sheet          string
	name           string
	datetimeColumn string
	fillStrategy   string
	output         string
	storageKind    string
	dsn            string
	table          string
	report         bool
}

// newProbeCmd loads a dataset and prints either a starter job definition
// (default) or a per-column report (--report).
//
// The storage DSN is resolved as: --dsn, then DSN, then the DSN_* component
// variables (see resolveDSN).
func newProbeCmd(g *globalFlags) *cobra.Command {
	f := &probeFlags{}
	cmd := &cobra.Command{
		Use:   "probe <path>",
		Short: "Infer column types and print a starter job definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g.logger(config.Logging{})
			path := args[0]

			comma, err := config.Delimiter(f.delimiter)
			if err != nil {
				return err
			}
			t, err := clean.Load(path, clean.LoadOptions{Delimiter: comma, Encoding: f.encoding, Sheet: f.sheet})
			if err != nil {
				return err
			}
			cols := describeColumns(t)

			if f.report {
				return printProbeReport(cmd, t, cols)
			}

			job, err := f.starterJob(path, cols)
			if err != nil {
				return err
			}
			issues := config.ValidateJob(*job)
			for _, iss := range issues {
				fmt.Fprintln(cmd.ErrOrStderr(), iss)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("generated job for %s is invalid", path)
			}

			b, err := config.Marshal(job)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# generated by dataclean probe from %s\n", path)
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.delimiter, "delimiter", ",", "field delimiter")
	fl.StringVar(&f.encoding, "encoding", "", "input encoding label (default utf-8)")
	fl.StringVar(&f.sheet, "sheet", "", "worksheet name for .xlsx input")
	fl.StringVar(&f.name, "name", "", "job name; defaults to the normalized file name")
	fl.StringVar(&f.datetimeColumn, "datetime-column", "", "datetime column; defaults to the first column that parses as timestamps")
	fl.StringVar(&f.fillStrategy, "fill-strategy", "mean", "mean, median or mode")
	fl.StringVar(&f.output, "output", "", "output path; defaults to data/clean/<name>.csv")
	fl.StringVar(&f.storageKind, "storage-kind", "", "add a storage section for this backend (sqlite, postgres or mssql)")
	fl.StringVar(&f.dsn, "dsn", "", "storage DSN (highest priority)")
	fl.StringVar(&f.table, "table", "", "storage table; defaults to the job name")
	fl.BoolVar(&f.report, "report", false, "print a column report instead of a job definition")
	return cmd
}

// columnInfo is what probe learned about one column.
type columnInfo struct {
	Name     string
	Type     table.Type
	Missing  int
	Datetime bool // Datetime, or text whose every present cell parses as a timestamp
	Min, Max float64
}

func describeColumns(t *table.Table) []columnInfo {
	out := make([]columnInfo, 0, t.NumCols())
	for _, c := range t.Columns() {
		ci := columnInfo{Name: c.Name, Type: c.Type, Missing: c.Missing()}
		switch c.Type {
		case table.Datetime:
			ci.Datetime = true
		case table.Categorical:
			ci.Datetime = allTimestamps(c.Cells)
		case table.Numeric:
			first := true
			for _, v := range c.Cells {
				f, ok := v.(float64)
				if !ok {
					continue
				}
				if first || f < ci.Min {
					ci.Min = f
				}
				if first || f > ci.Max {
					ci.Max = f
				}
				first = false
			}
		}
		out = append(out, ci)
	}
	return out
}

func allTimestamps(cells []any) bool {
	seen := false
	for _, v := range cells {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, _, ok := probe.ParseTimestampLoose(s); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func printProbeReport(cmd *cobra.Command, t *table.Table, cols []columnInfo) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "column\ttype\tmissing\tmin\tmax")
	for _, c := range cols {
		typ := c.Type.String()
		if c.Datetime && c.Type != table.Datetime {
			typ = table.Datetime.String()
		}
		if c.Type == table.Numeric && c.Missing < t.NumRows() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%g\n", c.Name, typ, c.Missing, c.Min, c.Max)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t-\t-\n", c.Name, typ, c.Missing)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rows=%d cols=%d\n", t.NumRows(), t.NumCols())
	return nil
}

func (f *probeFlags) starterJob(path string, cols []columnInfo) (*config.Job, error) {
	name := f.name
	if name == "" {
		name = normalizeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	dt := f.datetimeColumn
	if dt == "" {
		for _, c := range cols {
			if c.Datetime {
				dt = c.Name
				break
			}
		}
	}
	if dt == "" {
		return nil, fmt.Errorf("no datetime column found in %s; pass --datetime-column", path)
	}

	out := f.output
	if out == "" {
		out = filepath.Join("data", "clean", name+".csv")
	}

	job := &config.Job{
		Job:            name,
		Input:          config.Input{Path: path, Encoding: f.encoding, Sheet: f.sheet},
		DatetimeColumn: dt,
		FillStrategy:   f.fillStrategy,
		Sort:           &config.Sort{Column: dt},
		Output:         &config.Output{Path: out},
	}
	if f.delimiter != "," {
		job.Input.Delimiter = f.delimiter
	}

	if f.storageKind != "" {
		kind := normalizeBackend(f.storageKind)
		dsn, err := resolveDSN(kind, strings.TrimSpace(f.dsn))
		if err != nil {
			return nil, err
		}
		tbl := f.table
		if tbl == "" {
			tbl = name
		}
		job.Storage = &config.Storage{Kind: kind, DSN: dsn, Table: tbl}
	}
	return job, nil
}

// normalizeName turns s into a lowercase identifier usable as a job and
// table name.
func normalizeName(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	switch {
	case out == "":
		return "dataset"
	case out[0] >= '0' && out[0] <= '9':
		return "t_" + out
	}
	return out
}
