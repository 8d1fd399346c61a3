package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seijimatsuda/session-planner-beta/server/fetch"
	"github.com/seijimatsuda/session-planner-beta/server/media"
	"github.com/seijimatsuda/session-planner-beta/server/routes"
	"github.com/seijimatsuda/session-planner-beta/server/util"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

/*
This file is the main entrypoint for media server startup.
*/

////////////////////////////////////////////////////////////////////////////////

const megabyte = 1024 * 1024

// MediaServer is the media streaming service.
type MediaServer struct{}

// NewMediaService creates a new media service.
func NewMediaService() *MediaServer {
	return &MediaServer{}
}

// Start starts the media service and blocks until shutdown.
func (s *MediaServer) Start(ctx context.Context, options ...Option) error {
	opts, err := readOpts(options...)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}

	slog.SetLogLoggerLevel(opts.LogLevel)
	log.Debugf(ctx, "Debug logging enabled")
	store := opts.StorageProvider

	ledger, err := fetch.NewLedger(opts.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open download ledger: %w", err)
	}
	defer ledger.Close()

	resolver := media.NewResolver(store, media.WithSignedURLTTL(opts.SignedURLTTL))
	fetcher := fetch.NewFetcher(store, ledger,
		fetch.WithDownloaderBin(opts.DownloaderBin),
		fetch.WithFFmpegBin(opts.FFmpegBin),
		fetch.WithMaxBytes(opts.MaxDownloadBytes),
	)
	r := routes.MakeRoutes(opts.AuthValidator, resolver, fetcher, ledger, opts.ChunkCeiling)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigint := make(chan os.Signal, 1)
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	signal.Notify(sigterm, syscall.SIGTERM)

	startErr := make(chan error)
	go func() {
		log.Infow(ctx, "Starting server",
			"port", opts.Port, "storage", store,
			"chunk_ceiling", opts.ChunkCeiling,
			"max_download", util.HumanBytes(uint64(opts.MaxDownloadBytes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
	}()

	select {
	case <-sigint:
		log.Infof(ctx, "Received SIGINT")
	case <-sigterm:
		log.Infof(ctx, "Received SIGTERM")
	case err := <-startErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Infof(ctx, "Allowing 10 seconds for existing connections to close")
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	errs := make(chan error)
	success := make(chan bool)

	go func() {
		if err := srv.Shutdown(ctx); err != nil {
			errs <- err
		} else {
			log.Infof(ctx, "Server stopped")
			success <- true
		}
	}()

	select {
	case <-sigint:
		return errors.New("forceful shutdown on second interrupt")
	case err := <-errs:
		return fmt.Errorf("server shutdown failed: %w", err)
	case <-success:
		return nil
	}
}

func readOpts(opts ...Option) (*Options, error) {
	options := Options{
		Port:             8089,
		LogLevel:         slog.LevelInfo,
		SignedURLTTL:     time.Hour,
		ChunkCeiling:     1000000,
		LedgerPath:       "downloads.db",
		DownloaderBin:    "yt-dlp",
		FFmpegBin:        "ffmpeg",
		MaxDownloadBytes: 50 * megabyte,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.StorageProvider == nil {
		return nil, errors.New("storage provider is required")
	}
	if options.AuthValidator == nil {
		return nil, errors.New("auth validator is required")
	}
	return &options, nil
}
