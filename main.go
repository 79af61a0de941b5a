// Package main implements the notification dispatcher behind a comment
// widget: spam classification, avatar resolution, and best-effort
// email/push fan-out, exposed as one request-handling function.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"comment-notifier/avatar"
	"comment-notifier/config"
	"comment-notifier/email"
	"comment-notifier/notify"
	"comment-notifier/push"
	"comment-notifier/server"
	"comment-notifier/spam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	httpClient := &http.Client{Timeout: cfg.OutboundTimeout}

	transport := email.NewTransport(logger)
	mailer := email.NewSender(transport, logger)
	pusher := push.New(httpClient, logger)
	dispatcher := notify.New(mailer, pusher, logger)
	avatars := avatar.New(httpClient, logger)
	classifier := spam.New(logger,
		spam.NewTencentChecker(logger),
		spam.NewAkismetChecker(httpClient, logger),
	)

	srv := server.New(&server.Config{
		Avatars:   avatars,
		Spam:      classifier,
		Notifier:  dispatcher,
		Mailer:    mailer,
		Transport: transport,
		Logger:    logger,
	})

	// Configure server with timeouts to prevent resource exhaustion.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Starting HTTP server", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
