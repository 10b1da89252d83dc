package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-intake/internal/core/async"
	"github.com/joseph-ayodele/invoice-intake/internal/server"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health endpoint and the expiry sweeper",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if serveMigrate {
		if err := a.DB.Migrate(ctx); err != nil {
			return err
		}
	}

	grpcServer, hs := server.NewGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}

	sched := async.NewScheduler(logger)
	sched.Register(async.Task{
		Name:       "batch.sweep",
		Interval:   cfg.Batch.SweepInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := a.Workflow.SweepExpired(ctx)
			return err
		},
	})
	sched.Register(async.Task{
		Name:     "health.check",
		Interval: 15 * time.Second,
		Run:      server.HealthWatch(hs, a.Ping, logger),
	})
	sched.Start(ctx)
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(a.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Upload.Budget + 10*time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errc <- err
		}
	}()
	go func() {
		logger.Info("invoice-intake listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.Error("failed to shut down http server", "error", serr)
	}
	grpcServer.GracefulStop()
	return err
}
