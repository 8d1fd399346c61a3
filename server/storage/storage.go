package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

/*
storage defines the object store collaborator for the media server. The proxy
needs exactly two primitives from a store: mint a time-limited signed URL for
an object, and (for the acquisition path) write an object. Signed URLs are
fetched over plain HTTP by the resolver and streaming responder, so every
provider must produce URLs that honor HEAD and Range requests. Long-lived
store credentials stay inside the provider and never reach clients.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object does not exist in the store.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface to object storage.
type Provider interface {
	// SignedURL returns a URL granting read access to the object at path
	// for the supplied validity window.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Put stores an object under path.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	String() string
}
