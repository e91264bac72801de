package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drfeedback/core/internal/serverapp"
)

func NewServerCmd(a *app) *cobra.Command {
	var tlsCert string
	var tlsKey string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end that diagnoses uploaded bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (tlsCert == "") != (tlsKey == "") {
				return errors.New("--tls-cert and --tls-key must be set together")
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			d, err := a.driver(reg)
			if err != nil {
				return err
			}
			maxSize, err := a.cfg.Server.MaxBundleBytes()
			if err != nil {
				return err
			}

			srv := serverapp.New(serverapp.Config{
				Driver:        d,
				Analyzers:     reg.Entries(),
				MaxBundleSize: maxSize,
				Logger:        a.log,
			})

			httpSrv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.log.Info("server listening",
					zap.String("addr", httpSrv.Addr),
					zap.Bool("tls", tlsCert != ""),
					zap.Int64("max_bundle_size", maxSize))
				if tlsCert != "" {
					errc <- httpSrv.ListenAndServeTLS(tlsCert, tlsKey)
					return
				}
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("addr", ":9000", "Listen address")
	cmd.Flags().String("max-bundle-size", "64MB", "Largest accepted bundle")
	cmd.Flags().String("format", "html", "Default report format when the request does not name one")
	cmd.Flags().Int("workers", 4, "Artifacts analyzed in parallel per request")
	cmd.Flags().String("rules", "", "YAML file with extra marker rules")
	cmd.Flags().String("manifest-url", "", "Reference package manifest URL")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate (PEM)")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS private key (PEM)")
	return cmd
}
