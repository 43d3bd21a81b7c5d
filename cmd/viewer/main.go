// glove-viewer is a headless dashboard: it loads recent history, subscribes
// to the realtime feed and interprets the latest glove sample on a timer,
// logging every state change.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"glove-backend/internal/client"
	"glove-backend/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var baseURL string
	var interval, reconnect, runFor time.Duration
	var historySize int
	var logLevel string

	flagSet := pflag.NewFlagSet("glove-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "server", "http://localhost:5000", "backend base URL")
	flagSet.DurationVar(&interval, "interval", client.DefaultInterpretInterval, "time between interpretation requests")
	flagSet.DurationVar(&reconnect, "reconnect", client.DefaultReconnectDelay, "delay before reconnecting a dropped realtime connection")
	flagSet.IntVar(&historySize, "history", client.DefaultHistorySize, "number of history entries to keep")
	flagSet.DurationVar(&runFor, "duration", 0, "stop after this long (0 runs until interrupted)")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.New(logLevel, "")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	var mu sync.Mutex
	var lastStatus string
	controller, err := client.New(client.Config{
		BaseURL:           baseURL,
		InterpretInterval: interval,
		ReconnectDelay:    reconnect,
		HistorySize:       historySize,
		OnChange: func(s client.State) {
			mu.Lock()
			defer mu.Unlock()
			if string(s.Status) == lastStatus {
				return
			}
			lastStatus = string(s.Status)
			attrs := []any{"status", s.Status, "connected", s.Connected, "history", len(s.History)}
			if s.Current != nil {
				attrs = append(attrs, "text", s.Current.InterpretedText, "confidence", s.Current.Confidence)
			}
			logger.Info("state", attrs...)
		},
	}, logger.Logger)
	if err != nil {
		return err
	}

	if err := controller.LoadHistory(ctx); err != nil {
		logger.Warn("history_unavailable", "error", err)
	}

	controller.Start(ctx)
	<-ctx.Done()
	controller.Stop()

	final := controller.State()
	for _, entry := range final.History {
		logger.Info("history_entry", "id", entry.ID, "text", entry.InterpretedText, "command", entry.Command, "confidence", entry.Confidence)
	}
	return nil
}
