package commands

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/httpview"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured routes over HTTP",
		Long: `Serve renders the templates listed under "routes" in the config file:

  routes:
    - path: /
      template: home
      layout: layout
    - path: /users/{id}
      template: users/show

Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root)
		},
	}
	return cmd
}

func runServe(ctx context.Context, root *rootOptions) error {
	collector := metrics.New()
	app, err := root.setup(service.WithMetrics(collector))
	if err != nil {
		return err
	}
	defer app.close()

	handler, err := newHandler(app, collector)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func newHandler(app *app, collector *metrics.Collector) (*httpview.Handler, error) {
	routes, err := httpview.DecodeRoutes(app.cfg.Settings["routes"])
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		app.logger.Warn("no routes configured")
	}
	v, err := service.View(app.services)
	if err != nil {
		return nil, err
	}
	return httpview.New(v,
		httpview.WithRoutes(routes...),
		httpview.WithLogger(app.logger),
		httpview.WithMetrics(collector),
	), nil
}
