package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"afasrapport/internal/core"
	"afasrapport/internal/export"
	"afasrapport/internal/finview"
	"afasrapport/internal/sheets"
)

type viewFlags struct {
	in     string
	from   string
	to     string
	checks bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "finview",
		Short: "Build financial views from exported AFAS ledger rows",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	root.AddCommand(newBuildCommand(), newSummaryCommand())
	return root
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "-", "JSON or .xlsx file with ledger rows, - for stdin")
	cmd.Flags().StringVar(&f.from, "from", "", "first month, YYYY-MM")
	cmd.Flags().StringVar(&f.to, "to", "", "last month, YYYY-MM")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func newBuildCommand() *cobra.Command {
	var (
		flags viewFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the financial view as JSON, or write it to --out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := flags.view(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if strings.EqualFold(filepath.Ext(out), ".xlsx") {
				err = export.WriteXLSX(f, view)
			} else {
				err = writeJSON(f, view)
			}
			if err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.checks, "checks", false, "run consistency checks")
	cmd.Flags().StringVar(&out, "out", "", "write to a file instead of stdout; .xlsx writes a workbook")
	return cmd
}

func writeJSON(w io.Writer, view *core.FinancialView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func newSummaryCommand() *cobra.Command {
	var flags viewFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print monthly totals and results as a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.checks = true
			view, err := flags.view(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), view)
		},
	}
	flags.register(cmd)
	return cmd
}

func (f *viewFlags) view(stdin io.Reader) (*core.FinancialView, error) {
	rng, err := f.period()
	if err != nil {
		return nil, err
	}
	records, err := readRecords(f.in, stdin)
	if err != nil {
		return nil, err
	}
	view := finview.Build(records, rng)
	if f.checks {
		view.FinancialChecks = finview.RunChecks(view)
	}
	return view, nil
}

func (f *viewFlags) period() (core.PeriodRange, error) {
	var (
		rng core.PeriodRange
		err error
	)
	if rng.StartYear, rng.StartMonth, err = core.ParseYearMonth(f.from); err != nil {
		return rng, fmt.Errorf("--from: %w", err)
	}
	if rng.EndYear, rng.EndMonth, err = core.ParseYearMonth(f.to); err != nil {
		return rng, fmt.Errorf("--to: %w", err)
	}
	return rng, rng.Validate()
}

func readRecords(path string, stdin io.Reader) ([]core.RawTransaction, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return core.ParseRecords(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return export.ReadXLSX(f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return core.ParseRecords(data)
}

func writeSummary(w io.Writer, view *core.FinancialView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range sheets.MonthlyRows(view) {
		cells := make([]string, len(row))
		for i, v := range row {
			switch v := v.(type) {
			case float64:
				cells[i] = fmt.Sprintf("%.2f", v)
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range view.FinancialChecks.Overall {
		fmt.Fprintf(w, "\n%s: %s (%s)\n", c.Name, c.Status, c.Message)
	}
	for _, bucket := range view.MonthlyData {
		for _, c := range view.FinancialChecks.ByMonth[bucket.Key] {
			if c.Status != core.CheckOK {
				fmt.Fprintf(w, "%s: %s\n", bucket.Key, c.Message)
			}
		}
	}
	return nil
}
