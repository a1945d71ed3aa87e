// Command stompecho serves STOMP over WebSocket and relays SEND frames to
// subscribers of the same destination.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luciancaetano/stompnet/internal/config"
	"github.com/luciancaetano/stompnet/internal/observability"
)

type options struct {
	configPath string
	addr       string
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("stompecho", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	fs.StringVar(&opts.addr, "addr", "", "listen address, overrides the config file")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level, overrides the config file")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := observability.InitLogger("stompecho", cfg.LogLevel)

	es := NewEchoServer(cfg.ServerConfig(&logger), logger)
	if err := es.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info().
		Str("addr", cfg.Addr).
		Str("path", cfg.Path).
		Bool("tls", cfg.TLSEnabled()).
		Str("metrics_path", cfg.MetricsPath).
		Msg("stompecho listening")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return es.Stop(stopCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "stompecho: %v\n", err)
		os.Exit(1)
	}
}
