package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drfeedback/core/internal/output"
	"drfeedback/core/internal/submit"
)

func NewSubmitCmd(a *app) *cobra.Command {
	var out string
	var format string
	var timeout time.Duration
	var retries int

	cmd := &cobra.Command{
		Use:   "submit <server-url> <bundle>",
		Short: "Upload a bundle to a drfeedback server and print the report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			resp, err := submit.Submit(context.Background(), submit.Options{
				ServerURL: args[0],
				Format:    format,
				Timeout:   timeout,
				Retries:   retries,
				Logger:    a.log,
			}, filepath.Base(args[1]), f)
			if err != nil {
				return fmt.Errorf("submit %s: %w", args[1], err)
			}

			a.log.Info("report received",
				zap.String("report_id", resp.ReportID),
				zap.String("content_type", resp.ContentType),
				zap.Int("bytes", len(resp.Body)))
			return output.Write(cmd.OutOrStdout(), out, resp.Body)
		},
	}

	cmd.Flags().StringVar(&format, "report-format", "", "Report format requested from the server (default: server setting)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-attempt request timeout")
	cmd.Flags().IntVar(&retries, "retries", 3, "Retries on server errors")
	return cmd
}
