package service

import (
	"log/slog"
	"time"

	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
)

// Option is a functional option for the media service.
type Option func(*Options)

// Options contains options for the media service.
type Options struct {
	Port             int
	LogLevel         slog.Level
	StorageProvider  storage.Provider
	AuthValidator    auth.Validator
	SignedURLTTL     time.Duration
	ChunkCeiling     int64
	LedgerPath       string
	DownloaderBin    string
	FFmpegBin        string
	MaxDownloadBytes int64
}

// WithPort sets the port to listen on.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level slog.Level) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithStorageProvider sets the object storage provider.
func WithStorageProvider(provider storage.Provider) Option {
	return func(opts *Options) {
		opts.StorageProvider = provider
	}
}

// WithAuthValidator sets the token validator.
func WithAuthValidator(validator auth.Validator) Option {
	return func(opts *Options) {
		opts.AuthValidator = validator
	}
}

// WithSignedURLTTL sets the validity window of issued signed URLs.
func WithSignedURLTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.SignedURLTTL = ttl
	}
}

// WithChunkCeiling caps the span of a single range response in bytes.
func WithChunkCeiling(n int64) Option {
	return func(opts *Options) {
		opts.ChunkCeiling = n
	}
}

// WithLedgerPath sets the sqlite path for the download ledger.
func WithLedgerPath(path string) Option {
	return func(opts *Options) {
		opts.LedgerPath = path
	}
}

// WithDownloaderBin sets the video downloader binary.
func WithDownloaderBin(bin string) Option {
	return func(opts *Options) {
		opts.DownloaderBin = bin
	}
}

// WithFFmpegBin sets the ffmpeg binary used for recompression.
func WithFFmpegBin(bin string) Option {
	return func(opts *Options) {
		opts.FFmpegBin = bin
	}
}

// WithMaxDownloadBytes sets the stored size cap for acquired videos.
func WithMaxDownloadBytes(n int64) Option {
	return func(opts *Options) {
		opts.MaxDownloadBytes = n
	}
}
