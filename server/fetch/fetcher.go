package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

/*
The fetcher pulls a video down from a small set of supported hosts using an
external downloader, recompresses it if it is over the size cap, and uploads
the result to the object store under the requesting user's prefix. Video
sites rate-limit aggressively, so a run that fails on throttling is retried a
few times with growing delays before the failure is surfaced.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	// ErrInvalidURL is returned for requests that are not parseable URLs.
	ErrInvalidURL = errors.New("invalid video url")

	// ErrDomainNotAllowed is returned for URLs on unsupported hosts.
	ErrDomainNotAllowed = errors.New("url host is not supported")

	// ErrRateLimited is returned when the source host throttled every attempt.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrVideoUnavailable is returned when the source reports the video
	// missing or unavailable.
	ErrVideoUnavailable = errors.New("video unavailable")

	// ErrTooLarge is returned when the video exceeds the size cap even
	// after recompression.
	ErrTooLarge = errors.New("processed video exceeds size limit")
)

var defaultAllowedHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"youtu.be",
	"www.youtu.be",
	"m.youtube.com",
	"music.youtube.com",
	"instagram.com",
	"www.instagram.com",
}

const downloaderUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w: %s", bin, err, string(out))
	}
	return out, nil
}

// Result describes a stored acquisition.
type Result struct {
	Path string `json:"video_file_path"`
	Size int64  `json:"size"`
}

// Fetcher acquires videos and stores them.
type Fetcher struct {
	store        storage.Provider
	ledger       *Ledger
	runner       Runner
	downloader   string
	ffmpeg       string
	maxBytes     int64
	retryDelays  []time.Duration
	allowedHosts map[string]bool
}

// Option is a functional option for the fetcher.
type Option func(*Fetcher)

// WithRunner overrides the subprocess runner.
func WithRunner(r Runner) Option {
	return func(f *Fetcher) {
		f.runner = r
	}
}

// WithDownloaderBin sets the downloader binary.
func WithDownloaderBin(bin string) Option {
	return func(f *Fetcher) {
		f.downloader = bin
	}
}

// WithFFmpegBin sets the ffmpeg binary. Empty disables recompression.
func WithFFmpegBin(bin string) Option {
	return func(f *Fetcher) {
		f.ffmpeg = bin
	}
}

// WithMaxBytes sets the stored size cap.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithRetryDelays sets the waits between throttled download attempts.
func WithRetryDelays(delays []time.Duration) Option {
	return func(f *Fetcher) {
		f.retryDelays = delays
	}
}

// WithAllowedHosts replaces the supported host set.
func WithAllowedHosts(hosts []string) Option {
	return func(f *Fetcher) {
		f.allowedHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			f.allowedHosts[h] = true
		}
	}
}

// NewFetcher creates a fetcher that uploads through the supplied store and
// records acquisitions in the supplied ledger.
func NewFetcher(store storage.Provider, ledger *Ledger, options ...Option) *Fetcher {
	f := &Fetcher{
		store:       store,
		ledger:      ledger,
		runner:      execRunner{},
		downloader:  "yt-dlp",
		ffmpeg:      "ffmpeg",
		maxBytes:    50 * 1024 * 1024,
		retryDelays: []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second},
	}
	WithAllowedHosts(defaultAllowedHosts)(f)
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Fetch downloads the video at rawURL and stores it under the user's prefix.
func (f *Fetcher) Fetch(ctx context.Context, identity auth.Identity, rawURL string) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if !f.allowedHosts[parsed.Hostname()] {
		return Result{}, fmt.Errorf("%w: %s", ErrDomainNotAllowed, parsed.Hostname())
	}

	tempDir, err := os.MkdirTemp("", "fetch-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := f.download(ctx, rawURL, tempDir); err != nil {
		return Result{}, err
	}
	videoPath, err := f.locateOutput(tempDir)
	if err != nil {
		return Result{}, err
	}
	videoPath, size, err := f.enforceSizeCap(ctx, tempDir, videoPath)
	if err != nil {
		return Result{}, err
	}

	ext := filepath.Ext(videoPath)
	if ext == "" {
		ext = ".mp4"
	}
	storagePath := fmt.Sprintf("%s/%d%s", identity.UserID, time.Now().UnixMilli(), ext)
	file, err := os.Open(videoPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open downloaded video: %w", err)
	}
	defer file.Close()
	if err := f.store.Put(ctx, storagePath, file, size, "video/mp4"); err != nil {
		return Result{}, fmt.Errorf("failed to upload video: %w", err)
	}
	log.Infow(ctx, "Stored acquired video", "path", storagePath, "size", size)

	if f.ledger != nil {
		err := f.ledger.Record(ctx, Entry{
			UserID:    identity.UserID,
			Path:      storagePath,
			Size:      size,
			SourceURL: rawURL,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Path: storagePath, Size: size}, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, tempDir string) error {
	args := []string{
		rawURL,
		"-f", "bestvideo[height<=360]+bestaudio/best[height<=360]/best[height<=360]",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--user-agent", downloaderUserAgent,
		"--extractor-args", "youtube:player_client=android",
		"--output", filepath.Join(tempDir, "%(id)s.%(ext)s"),
	}
	var lastErr error
	for attempt := 0; attempt <= len(f.retryDelays); attempt++ {
		if attempt > 0 {
			delay := f.retryDelays[attempt-1]
			log.Infow(ctx, "Rate limited, retrying download",
				"attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		_, err := f.runner.Run(ctx, f.downloader, args...)
		if err == nil {
			return nil
		}
		lastErr = err
		message := strings.ToLower(err.Error())
		if strings.Contains(message, "429") || strings.Contains(message, "too many requests") {
			continue
		}
		if strings.Contains(message, "not found") || strings.Contains(message, "unavailable") {
			return fmt.Errorf("%w: %s", ErrVideoUnavailable, err)
		}
		return fmt.Errorf("download failed: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrRateLimited, lastErr)
}

func (f *Fetcher) locateOutput(tempDir string) (string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(tempDir, "*.{mp4,mkv,webm,mov}"))
	if err != nil {
		return "", fmt.Errorf("failed to scan temp dir: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New("download succeeded but no video file found")
	}
	return matches[0], nil
}

// enforceSizeCap recompresses the video if it is over the cap and ffmpeg is
// configured, then errors if it is still too big.
func (f *Fetcher) enforceSizeCap(ctx context.Context, tempDir, videoPath string) (string, int64, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat downloaded video: %w", err)
	}
	if info.Size() > f.maxBytes && f.ffmpeg != "" {
		recompressed := filepath.Join(tempDir, "compressed.mp4")
		_, err := f.runner.Run(ctx, f.ffmpeg,
			"-i", videoPath,
			"-vf", "scale=-2:360",
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "28",
			"-c:a", "aac",
			"-y", recompressed,
		)
		if err != nil {
			return "", 0, fmt.Errorf("recompression failed: %w", err)
		}
		videoPath = recompressed
		if info, err = os.Stat(videoPath); err != nil {
			return "", 0, fmt.Errorf("failed to stat recompressed video: %w", err)
		}
	}
	if info.Size() > f.maxBytes {
		return "", 0, ErrTooLarge
	}
	return videoPath, info.Size(), nil
}
