package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"drfeedback/analyzers"
	"drfeedback/core/internal/output"
	"drfeedback/report"
)

func NewDiagnoseCmd(a *app) *cobra.Command {
	var out string
	var quiet bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "diagnose <bundle|->",
		Short: "Diagnose a feedback bundle and render the report",
		Example: heredoc.Doc(`
			drfeedback diagnose feedback.tar.gz > report.html
			drfeedback diagnose --format text --full=false feedback.zip
			cat feedback.tar.gz | drfeedback diagnose --format markdown -o report.md -
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			d, err := a.driver(reg)
			if err != nil {
				return err
			}

			res, err := d.Run(ctx, in)
			if err != nil {
				return fmt.Errorf("diagnose %s: %w", args[0], err)
			}

			if !quiet {
				if err := printSummary(cmd.ErrOrStderr(), res.ID, res.Report); err != nil {
					return err
				}
			}
			return output.Write(cmd.OutOrStdout(), out, res.Document.Body)
		},
	}

	cmd.Flags().String("format", "html", "Report format (html|markdown|text|jsonl)")
	cmd.Flags().String("title", "Doctor Feedback report", "Report title")
	cmd.Flags().Bool("full", true, "Include the contents of every file in the report")
	cmd.Flags().Int("workers", 4, "Artifacts analyzed in parallel")
	cmd.Flags().String("rules", "", "YAML file with extra marker rules")
	cmd.Flags().String("manifest-url", "", "Reference package manifest URL (enables packages.txt reconciliation)")
	cmd.Flags().StringSlice("manifest-exclude", nil, "Package name globs ignored during reconciliation")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary table")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall diagnosis timeout")
	return cmd
}

func printSummary(w io.Writer, id string, r report.Report) error {
	data := pterm.TableData{{"Artifact", "Info", "Warn", "Error"}}
	for _, o := range r.Outcomes {
		data = append(data, []string{
			o.Artifact.Name,
			strconv.Itoa(o.Count(analyzers.SeverityInfo)),
			strconv.Itoa(o.Count(analyzers.SeverityWarn)),
			strconv.Itoa(o.Count(analyzers.SeverityError)),
		})
	}
	data = append(data, []string{
		"total",
		strconv.Itoa(len(r.Info)),
		strconv.Itoa(len(r.Warn)),
		strconv.Itoa(len(r.Error)),
	})

	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed(true).
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "report %s\n%s\n", id, table)
	return err
}
