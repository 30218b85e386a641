package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dataclean/internal/clean"
	"dataclean/internal/config"
)

func newAuditCmd(g *globalFlags) *cobra.Command {
	var delimiter, encoding, sheet string
	cmd := &cobra.Command{
		Use:   "audit <path>",
		Short: "Print the missing-value count and ratio per column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g.logger(config.Logging{})

			comma, err := config.Delimiter(delimiter)
			if err != nil {
				return err
			}
			t, err := clean.Load(args[0], clean.LoadOptions{Delimiter: comma, Encoding: encoding, Sheet: sheet})
			if err != nil {
				return err
			}
			audit := clean.AuditMissingValues(t)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "column\tmissing\tratio")
			for _, c := range audit {
				fmt.Fprintf(w, "%s\t%d\t%.4f\n", c.Name, c.Missing, c.Ratio)
			}
			fmt.Fprintf(w, "total\t%d\t\n", audit.Total())
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows=%d cols=%d\n", t.NumRows(), t.NumCols())
			return nil
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "field delimiter")
	cmd.Flags().StringVar(&encoding, "encoding", "", "input encoding label (default utf-8)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name for .xlsx input")
	return cmd
}
