// Command soundwave-sessiond serves the session coordination API, the
// realtime websocket endpoint and metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/soundwave/internal/logging"
	"github.com/MrEthical07/soundwave/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("soundwave-sessiond", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file (SOUNDWAVE_* environment variables override it)")
	printConfig := flag.Bool("print-config", false, "Print the effective config with secrets redacted and exit")
	dev := flag.Bool("dev", false, "Development mode: embedded Redis and the /session/login route")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dev {
		cfg.Redis.Embedded = true
		cfg.Dev.Login = true
		cfg.Log.Format = "text"
	}

	if *printConfig {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	log, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}
