package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/bookcat/internal/catalog"
	"github.com/roach88/bookcat/internal/server"
	"github.com/roach88/bookcat/internal/tasks"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run background workers and the ops endpoint",
		Long: `Run the catalog's long-lived processes until interrupted:

  - the task dispatcher that handles preview_image tasks
  - the orphan sweeper that repairs editions without a work
  - the HTTP endpoint serving /healthz, /metrics and edition collections

Example:
  bookcat serve --config ./bookcat.yaml
  bookcat serve --db /tmp/test.db --addr 127.0.0.1:9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides metrics.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail("failed to load config", err)
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose)

	// The handler needs the service and the service needs the dispatcher.
	var svc *catalog.Service
	handler := tasks.HandlerFunc(func(ctx context.Context, t tasks.Task) error {
		it, err := svc.GetBook(ctx, t.BookID)
		if err != nil {
			return fmt.Errorf("load book %d: %w", t.BookID, err)
		}
		logger.Info("preview requested",
			slog.String("task_id", t.ID),
			slog.Int64("book_id", t.BookID),
			slog.String("title", it.Data().Title),
			slog.Any("changed", t.Fields),
		)
		return nil
	})

	dispatcher := tasks.NewDispatcher(handler,
		tasks.WithWorkers(cfg.Previews.Workers),
		tasks.WithLogger(logger),
	)

	a, err := openApp(ctx, opts.RootOptions, cmd, func(o *catalog.Options) {
		o.Tasks = dispatcher
		o.Logger = logger
	})
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()
	svc = a.catalog

	addr := a.cfg.Metrics.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	logger.Info("bookcat serving",
		slog.String("addr", addr),
		slog.String("domain", a.cfg.Domain),
		slog.Bool("previews", a.cfg.Previews.Enabled),
	)
	fmt.Fprintln(formatter.GetErrWriter(), "Serving. Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Queued tasks are drained before Run returns.
		err := dispatcher.Run(context.Background())
		if errors.Is(err, tasks.ErrDispatcherStopped) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		dispatcher.Stop()
		return nil
	})
	g.Go(func() error {
		return a.catalog.RunSweeper(gctx, a.cfg.Repair.SweepInterval.Std(), a.cfg.Repair.BatchSize)
	})
	g.Go(func() error {
		return server.New(addr, a.catalog, logger).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return formatter.Fail("serve failed", err)
	}
	logger.Info("bookcat stopped gracefully")
	return nil
}
