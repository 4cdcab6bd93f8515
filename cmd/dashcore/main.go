// Package main is the entry point for the dashcore command. It loads the
// configuration, the page and the Lua plugins, mounts the enabled plugins and
// prints the resulting page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/dashcore/internal/app"
	"github.com/dshills/dashcore/internal/log"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app         app.Options
	logLevel    string
	logConsole  bool
	outPath     string
	tracePath   string
	metricsAddr string
}

func main() {
	os.Exit(run())
}

func run() int {
	cli := parseFlags()
	app.Version = version

	log.Configure(log.Config{Level: cli.logLevel, Console: cli.logConsole})
	logger := log.WithComponent("main")

	if cli.tracePath != "" {
		w, closeTrace, err := openOutput(cli.tracePath, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open trace output: %v\n", err)
			return 1
		}
		defer closeTrace()
		cli.app.Trace = w
	}

	application, err := app.New(cli.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer shutdown(application)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cli.metricsAddr != "" {
		srv := serveMetrics(cli.metricsAddr, application)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if err := application.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cli.app.Watch {
		logger.Info().Str(log.FieldPath, cli.app.ConfigPath).Msg("watching configuration, interrupt to stop")
		<-ctx.Done()
	}

	out, closeOut, err := openOutput(cli.outPath, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open output: %v\n", err)
		return 1
	}
	defer closeOut()
	if err := application.Render(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: render page: %v\n", err)
		return 1
	}
	fmt.Fprintln(out)
	return 0
}

func shutdown(application *app.Application) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
	}
}

func serveMetrics(addr string, application *app.Application) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(application.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger := log.WithComponent("metrics")
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	return srv
}

// openOutput opens path for writing; "-" selects std.
func openOutput(path string, std io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return std, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func parseFlags() cliOptions {
	var cli cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&cli.app.ConfigPath, "config", "", "Path to configuration file (toml, yaml or json)")
	flag.StringVar(&cli.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&cli.app.PagePath, "page", "", "HTML page with data-slot containers (default: built-in page)")
	flag.StringVar(&cli.app.PluginsDir, "plugins", "", "Directory of Lua plugins (overrides plugins.dir)")
	flag.BoolVar(&cli.app.Watch, "watch", false, "Reload the configuration file on change until interrupted")
	flag.StringVar(&cli.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cli.logConsole, "log-console", false, "Human-readable log output")
	flag.StringVar(&cli.outPath, "out", "-", "Write the rendered page to this file")
	flag.StringVar(&cli.tracePath, "trace", "", "Write one JSON line per event to this file (- for stderr)")
	flag.StringVar(&cli.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dashcore - dashboard plugin host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dashcore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dashcore -c dashcore.toml              Mount configured plugins and print the page\n")
		fmt.Fprintf(os.Stderr, "  dashcore -plugins ./plugins -trace -   Trace every lifecycle event\n")
		fmt.Fprintf(os.Stderr, "  dashcore -c dashcore.toml -watch       Apply config edits until interrupted\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("dashcore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if _, err := log.ParseLevel(cli.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", cli.logLevel)
		os.Exit(1)
	}

	return cli
}
