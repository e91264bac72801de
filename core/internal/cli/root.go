package cli

import (
	"fmt"
	"runtime"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"drfeedback/core/internal/config"
	"drfeedback/core/internal/version"
	"drfeedback/logging"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"format":           "report.format",
	"title":            "report.title",
	"full":             "report.include_artifacts",
	"workers":          "workers",
	"rules":            "rules_file",
	"manifest-url":     "manifest.url",
	"manifest-exclude": "manifest.exclude",
	"addr":             "server.addr",
	"max-bundle-size":  "server.max_bundle_size",
}

type app struct {
	configFile string

	cfg config.Config
	log *zap.Logger
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg, a.log = cfg, log
	return nil
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "drfeedback",
		Short: "Diagnose feedback bundles collected from Kano kits",
		Long: heredoc.Doc(`
			drfeedback unpacks a feedback bundle (tar.gz, tar.zst, tar or zip), runs the
			analyzer registered for each file and renders one report with a severity
			summary followed by the contents of every file.

			Configuration is read from --config, then DRFEEDBACK_* environment variables,
			then flags.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("log-format", "console", "Log format (console|json)")

	cmd.AddCommand(NewDiagnoseCmd(a))
	cmd.AddCommand(NewServerCmd(a))
	cmd.AddCommand(NewSubmitCmd(a))
	cmd.AddCommand(NewPackCmd())
	cmd.AddCommand(NewAnalyzersCmd(a))
	cmd.AddCommand(NewVersionCmd())

	cmd.SetVersionTemplate(fmt.Sprintf("%s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH))
	cmd.Version = version.Version

	return cmd
}
