package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/backend"
)

func (a *app) backendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the reference remediation backend on this host",
		Long: `Run the reference backend serving the console's HTTP contract.

Metrics come from this host. Remediation actions are recorded in history
but never executed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc := a.cfg.Backend
			var notifier backend.Notifier
			if bc.Webhook != "" {
				wh, err := backend.NewWebhookNotifier(bc.Webhook, a.log)
				if err != nil {
					return err
				}
				notifier = wh
			}

			gin.SetMode(gin.ReleaseMode)
			srv := backend.New(backend.NewHostSource(bc.DiskPath, bc.ScanRoots), backend.Options{
				Thresholds: backend.Thresholds{
					CPU:    bc.CPUThreshold,
					Memory: bc.MemoryThreshold,
					Disk:   bc.DiskThreshold,
				},
				AutoRaise: bc.AutoRaise,
				RateLimit: bc.RateLimit,
				Notifier:  notifier,
			}, a.log)
			return serve(cmd.Context(), a.log, bc.Addr, srv.Router())
		},
	}
	cmd.Flags().String("addr", "", "listen address (host:port)")
	_ = a.v.BindPFlag("backend.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// serve runs h on addr until ctx is cancelled, then drains for five seconds.
func serve(ctx context.Context, log *zap.Logger, addr string, h http.Handler) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("backend listening", zap.String("addr", addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listen %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("backend shutting down")
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
