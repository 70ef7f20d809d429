package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service supervisor in the foreground",
	Long: `serve resolves the resource root, reaps any stale orphans left by an
unclean previous run, stages and spawns the sidecar processes, and brings
up the sandbox VM on a background worker after the worker runtime's
health probe.
It blocks until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("build-dir", "", "Development fallback directory to search for a resources/ subdirectory")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the metrics/health HTTP server listens on")
}

func runServe(cmd *cobra.Command, args []string) error {
	dataDir, err := resolveDataDir(cmd)
	if err != nil {
		return err
	}
	buildDir, _ := cmd.Flags().GetString("build-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	sup, err := supervisor.New(dataDir, buildDir)
	if err != nil {
		return fmt.Errorf("desktopd: construct supervisor: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("supervisor", false, "starting")

	go func() {
		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	fmt.Printf("Metrics endpoint: http://%s/metrics\n", metricsAddr)
	fmt.Printf("Health endpoints: http://%s/{health,ready,live}\n", metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		metrics.RegisterComponent("supervisor", false, err.Error())
		return fmt.Errorf("desktopd: supervisor start failed: %w", err)
	}
	metrics.RegisterComponent("supervisor", true, "running")

	fmt.Println("desktopd is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nShutting down...")

	return sup.Shutdown()
}
