package media

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

/*
The resolver turns a validated object reference into everything the streaming
responder needs: a short-lived signed URL and the object's authoritative size.
Size comes from a metadata-only HEAD probe of the signed URL on every request.
There is no cache: an object can be replaced by an upload between requests,
and a stale size would corrupt range arithmetic for every subsequent chunk.

Signed URL issuance runs under a configurable retry policy; the metadata
probe is not retried here, retry of a whole resolution belongs to the caller.
*/

////////////////////////////////////////////////////////////////////////////////

// ObjectMeta describes a resolved object.
type ObjectMeta struct {
	SignedURL   string
	Size        int64
	ContentType string
}

// RetryPolicy bounds retries of signed URL issuance.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the product's historical behavior for signed
// URL issuance against a flaky managed backend.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, Multiplier: 2.0}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

// Resolver resolves object references to metadata and signed URLs.
type Resolver struct {
	store  storage.Provider
	client *http.Client
	ttl    time.Duration
	retry  RetryPolicy
}

// ResolverOption is a functional option for the resolver.
type ResolverOption func(*Resolver)

// WithSignedURLTTL sets the signed URL validity window.
func WithSignedURLTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithRetryPolicy sets the signed URL issuance retry policy.
func WithRetryPolicy(policy RetryPolicy) ResolverOption {
	return func(r *Resolver) {
		r.retry = policy
	}
}

// WithHTTPClient sets the client used for metadata probes.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// NewResolver creates a resolver over the supplied store.
func NewResolver(store storage.Provider, options ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		ttl:    time.Hour,
		retry:  DefaultRetryPolicy(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Resolve produces the object's metadata and a signed fetch URL, or
// storage.ErrObjectNotFound when the store cannot produce either.
func (r *Resolver) Resolve(ctx context.Context, ref ObjectRef) (ObjectMeta, error) {
	signedURL, err := r.signedURL(ctx, ref)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("no signed url for %s: %w", ref, storage.ErrObjectNotFound)
	}
	size, err := r.probeSize(ctx, signedURL)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("metadata probe for %s: %w", ref, err)
	}
	return ObjectMeta{
		SignedURL:   signedURL,
		Size:        size,
		ContentType: ContentTypeForExt(ref.Ext()),
	}, nil
}

func (r *Resolver) signedURL(ctx context.Context, ref ObjectRef) (string, error) {
	attempts := r.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Warnw(ctx, "retrying signed url issuance",
				"object", ref.Path, "attempt", attempt+1, "error", lastErr)
			select {
			case <-time.After(r.retry.delay(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		signedURL, err := r.store.SignedURL(ctx, ref.Path, r.ttl)
		if err == nil {
			return signedURL, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (r *Resolver) probeSize(ctx context.Context, signedURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, signedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build probe request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe failed: %w", storage.ErrObjectNotFound)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe returned %d: %w", resp.StatusCode, storage.ErrObjectNotFound)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("store did not report a size: %w", storage.ErrObjectNotFound)
	}
	return resp.ContentLength, nil
}
