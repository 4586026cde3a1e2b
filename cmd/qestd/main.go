package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine/remote"
	"github.com/GoSim-25-26J-441/estimation-core/internal/optimization"
	"github.com/GoSim-25-26J-441/estimation-core/internal/runner"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/config"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

func main() {
	var jobPath string
	var envFile string
	var checkpointDir string
	var listenAddr string
	var engineAddr string
	var logLevel string

	flag.StringVar(&jobPath, "job", "", "job file to run")
	flag.StringVar(&envFile, "env", ".env", "dotenv file overlaid on the job")
	flag.StringVar(&checkpointDir, "checkpoints", ".qest/checkpoints", "job checkpoint directory")
	flag.StringVar(&listenAddr, "listen", "", "serve a validating engine relay on this gRPC address instead of running a job")
	flag.StringVar(&engineAddr, "engine-addr", "", "upstream engine address (overrides the job file)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if listenAddr != "" {
		err = serve(ctx, listenAddr, engineAddr)
	} else {
		err = run(ctx, jobPath, envFile, checkpointDir, engineAddr)
	}
	if err != nil {
		logger.Error("qestd failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, jobPath, envFile, checkpointDir, engineAddr string) error {
	if jobPath == "" {
		return fmt.Errorf("-job is required")
	}
	cfg, err := config.LoadJob(jobPath)
	if err != nil {
		return err
	}
	if err := config.LoadEnv(cfg, envFile); err != nil {
		return err
	}
	if engineAddr != "" {
		cfg.Engine.Addr = engineAddr
	}
	log := logger.NewText(cfg.LogLevel, os.Stdout)
	logger.SetDefault(log)

	client, conn, err := remote.Dial(cfg.Engine.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := runner.NewCheckpointStore(checkpointDir)
	if err != nil {
		return err
	}
	d := optimization.NewDispatcher(client, optimization.WithLogger(log))
	res, err := runner.New(d, store, log).Run(ctx, cfg)
	if err != nil {
		return err
	}

	conv := res.Outcome.Convergence
	log.Info("summary",
		"job_id", res.JobID,
		"variant", res.Outcome.Variant.String(),
		"episodes", conv.Episodes,
		"best", conv.Best,
		"final", conv.Final,
		"converged", conv.Converged,
		"reason", conv.Reason,
		"output", res.OutputPath)
	return nil
}

// serve relays engine calls to an upstream engine, rejecting malformed
// requests before they reach it.
func serve(ctx context.Context, listenAddr, engineAddr string) error {
	if engineAddr == "" {
		engineAddr = config.DefaultEngineAddr
	}
	upstream, conn, err := remote.Dial(engineAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// TODO: Configure gRPC server security (e.g., TLS, authentication)
	// before exposing the relay outside a trusted network.
	grpcServer := grpc.NewServer()
	remote.Register(grpcServer, upstream, logger.Default)

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", listenAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("engine relay listening", "addr", listenAddr, "upstream", engineAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown requested")
		grpcServer.GracefulStop()
		return nil
	}
}
