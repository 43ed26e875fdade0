// Command handoff drives a cross-device upload from the primary side: it mints
// a session id, prints (and optionally renders) the handoff URL, then polls the
// relay until the secondary device submits or the user interrupts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"handoff/internal/platform/config"
	"handoff/internal/platform/logger"
	"handoff/internal/relay/client"
	"handoff/internal/relay/models"
	"handoff/internal/relay/session"
	"handoff/pkg/platform/sentinel"
)

func main() {
	cfg := config.ClientFromEnv()
	var (
		server   = flag.String("server", cfg.BaseURL, "relay server base URL")
		origin   = flag.String("origin", "", "origin for the handoff URL (defaults to -server)")
		qrOut    = flag.String("qr", "", "write the handoff QR code PNG to this file")
		out      = flag.String("out", "received.png", "write the received image to this file")
		interval = flag.Duration("interval", cfg.PollInterval, "polling interval")
		maxWait  = flag.Duration("max-wait", cfg.MaxWait, "give up after this long (0 = poll until interrupted)")
		simulate = flag.String("simulate", "", "submit this image file after 2 intervals, standing in for the phone")
	)
	flag.Parse()

	log := logger.NewText()

	if err := run(log, *server, *origin, *qrOut, *out, *interval, *maxWait, *simulate); err != nil {
		log.Error("handoff failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, server, origin, qrOut, out string, interval, maxWait time.Duration, simulate string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if origin == "" {
		origin = server
	}

	sid := session.New()
	handoffURL, err := session.HandoffURL(origin, sid)
	if err != nil {
		return err
	}

	fmt.Println("scan to upload:", handoffURL)
	if qrOut != "" {
		if err := qrcode.WriteFile(handoffURL, qrcode.Medium, 256, qrOut); err != nil {
			return fmt.Errorf("write qr png: %w", err)
		}
		fmt.Println("qr code written to", qrOut)
	}

	relay, err := client.New(server)
	if err != nil {
		return err
	}

	coordinator := client.NewCoordinator(relay,
		client.WithInterval(interval),
		client.WithMaxWait(maxWait),
		client.WithLogger(log),
	)
	results := coordinator.Start(ctx, sid)

	if simulate != "" {
		go func() {
			time.Sleep(2 * interval)
			if err := submitFile(ctx, relay, sid, simulate); err != nil {
				log.Error("simulated submission failed", "error", err)
			}
		}()
	}

	fmt.Println("waiting for upload (ctrl-c to cancel)...")
	result := <-results
	switch {
	case errors.Is(result.Err, sentinel.ErrExpired):
		return fmt.Errorf("no upload arrived within %s", maxWait)
	case errors.Is(result.Err, context.Canceled):
		coordinator.Cancel()
		fmt.Println("cancelled")
		return nil
	case result.Err != nil:
		return result.Err
	}

	imageType, data, err := models.DecodePayload(result.Payload)
	if err != nil {
		return fmt.Errorf("received payload is malformed: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write received image: %w", err)
	}
	fmt.Printf("received %d bytes (%s), written to %s\n", len(data), imageType, out)
	return nil
}

// submitFile plays the secondary device: read an image, wrap it in a data URI,
// PUT it under the session id.
func submitFile(ctx context.Context, relay *client.Client, sid, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	imageType := imageTypeFor(path)
	return relay.Put(ctx, sid, models.EncodePayload(imageType, data))
}

func imageTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "png"
	}
}
