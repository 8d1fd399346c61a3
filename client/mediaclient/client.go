package mediaclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

/*
mediaclient is a client for the media server. Downloads are issued as
parallel range requests sized to the server's chunk ceiling and written
through an io.WriterAt, so a large video does not serialize on a single
connection.
*/

////////////////////////////////////////////////////////////////////////////////

const defaultChunkSize = 1000000

// Client is a media server client.
type Client struct {
	baseURL     string
	token       string
	httpc       *http.Client
	chunkSize   int64
	parallelism int
}

// Option is a functional option for the client.
type Option func(*Client)

// WithChunkSize sets the range request size in bytes.
func WithChunkSize(n int64) Option {
	return func(c *Client) {
		c.chunkSize = n
	}
}

// WithParallelism sets the number of concurrent range requests.
func WithParallelism(n int) Option {
	return func(c *Client) {
		c.parallelism = n
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// NewClient creates a client for the server at baseURL, authenticating with
// the supplied bearer token.
func NewClient(baseURL, token string, options ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		token:       token,
		httpc:       &http.Client{Timeout: 10 * time.Minute},
		chunkSize:   defaultChunkSize,
		parallelism: 4,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(
	ctx context.Context, method, path string, body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Stat returns the size and content type of an object.
func (c *Client) Stat(ctx context.Context, path string) (int64, string, error) {
	req, err := c.newRequest(ctx, http.MethodHead, "/media/"+path, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("stat failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("stat returned %d", resp.StatusCode)
	}
	return resp.ContentLength, resp.Header.Get("Content-Type"), nil
}

// Download fetches an object in parallel chunks, writing each at its offset.
// Returns the number of bytes written.
func (c *Client) Download(ctx context.Context, path string, w io.WriterAt) (int64, error) {
	size, _, err := c.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for offset := int64(0); offset < size; offset += c.chunkSize {
		start := offset
		end := min(start+c.chunkSize-1, size-1)
		g.Go(func() error {
			return c.downloadChunk(ctx, path, w, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return size, nil
}

func (c *Client) downloadChunk(
	ctx context.Context, path string, w io.WriterAt, start, end int64,
) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/media/"+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("chunk fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("chunk fetch returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read chunk: %w", err)
	}
	if int64(len(body)) != end-start+1 {
		return fmt.Errorf("short chunk: got %d bytes, expected %d", len(body), end-start+1)
	}
	if _, err := w.WriteAt(body, start); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}

// AcquisitionResult describes a stored acquisition.
type AcquisitionResult struct {
	Path string `json:"video_file_path"`
	Size int64  `json:"size"`
}

// AcquireVideo asks the server to pull a video down from a supported host
// and store it under the caller's prefix.
func (c *Client) AcquireVideo(ctx context.Context, url string) (AcquisitionResult, error) {
	body, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return AcquisitionResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/downloads", strings.NewReader(string(body)))
	if err != nil {
		return AcquisitionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return AcquisitionResult{}, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return AcquisitionResult{}, fmt.Errorf("download request returned %d", resp.StatusCode)
	}
	result := AcquisitionResult{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AcquisitionResult{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// SavedVideo is one entry in the caller's acquisition history.
type SavedVideo struct {
	ID        int64     `json:"id"`
	Path      string    `json:"video_file_path"`
	Size      int64     `json:"size"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDownloads returns the caller's acquisition history.
func (c *Client) ListDownloads(ctx context.Context) ([]SavedVideo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/downloads", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing request returned %d", resp.StatusCode)
	}
	listing := struct {
		Downloads []SavedVideo `json:"downloads"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return listing.Downloads, nil
}
