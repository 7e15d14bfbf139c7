// uploader watches a folder on the event's capture machine and sends
// every new photo or video to the backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-gallery-backend/internal/uploader"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg uploader.Config

	flagSet := pflag.NewFlagSet("uploader", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Folder, "folder", "", "path to the watch folder")
	flagSet.StringVar(&cfg.EventID, "event", "", "event id the uploads belong to")
	flagSet.StringVar(&cfg.APIBase, "api", "http://localhost:8080/api", "base URL of the backend API")
	flagSet.DurationVar(&cfg.Interval, "interval", 5*time.Second, "polling interval")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	watcher, err := uploader.New(cfg)
	if err != nil {
		flagSet.PrintDefaults()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watcher.Run(ctx)
}
