// Command chat is a terminal shell for the GovSense classification service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/govsense/internal/app/bootstrap"
	appconfig "github.com/wolfman30/govsense/internal/config"
	"github.com/wolfman30/govsense/internal/export"
	"github.com/wolfman30/govsense/internal/session"
	"github.com/wolfman30/govsense/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// The transcript owns stdout; logs go to stderr as text.
	logger := logging.New(cfg.LogLevel, logging.WithOutput(os.Stderr), logging.WithFormat("text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bootstrap.BuildClassifyClient(cfg, nil, logger)
	if h, err := client.Health(ctx); err != nil {
		logger.Warn("classification service unreachable", "api_url", cfg.APIURL, "error", err)
	} else {
		logger.Info("connected", "service", h.Service, "version", h.Version, "api_url", cfg.APIURL)
	}

	r := newREPL(os.Stdout, export.NewDirExporter(cfg.ExportDir))
	sess := session.New(client, session.WithListener(r), session.WithLogger(logger))
	defer sess.Close()
	r.sess = sess

	if err := r.run(ctx, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
