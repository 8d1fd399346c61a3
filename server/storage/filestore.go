package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

/*
FileStore is a storage provider backed by a local directory. To honor the
signed URL contract it runs a private loopback HTTP listener and mints
expiring HMAC-signed URLs against it. The listener serves objects with
http.ServeFile, which gives us HEAD and byte-range support for free, so the
proxy treats a FileStore URL exactly like a presigned S3 URL. Intended for
development and tests, not production.
*/

////////////////////////////////////////////////////////////////////////////////

type FileStore struct {
	root   string
	secret []byte
	srv    *http.Server
	addr   string
}

// NewFileStore creates a FileStore rooted at root and starts its loopback
// listener. The secret keys URL signatures; it only needs to survive the
// process lifetime.
func NewFileStore(root string, secret string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	fs := &FileStore{
		root:   root,
		secret: []byte(secret),
		addr:   l.Addr().String(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/o/", fs.serveObject)
	fs.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := fs.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "filestore listener error: %s\n", err)
		}
	}()
	return fs, nil
}

// SignedURL returns a loopback URL that is valid until now+ttl.
func (f *FileStore) SignedURL(_ context.Context, objectPath string, ttl time.Duration) (string, error) {
	exp := time.Now().Add(ttl).Unix()
	sig := f.sign(objectPath, exp)
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)
	return fmt.Sprintf("http://%s/o/%s?%s", f.addr, objectPath, q.Encode()), nil
}

// Put stores an object under path, creating parent directories as needed.
func (f *FileStore) Put(_ context.Context, objectPath string, r io.Reader, size int64, _ string) error {
	target, err := f.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer out.Close()
	if _, err := io.CopyN(out, r, size); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Delete removes an object from the directory.
func (f *FileStore) Delete(_ context.Context, objectPath string) error {
	target, err := f.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("deletion failure: %w", err)
	}
	return nil
}

// Close shuts down the loopback listener.
func (f *FileStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down filestore listener: %w", err)
	}
	return nil
}

func (f *FileStore) String() string {
	return fmt.Sprintf("directory(%s)", f.root)
}

func (f *FileStore) sign(objectPath string, exp int64) string {
	mac := hmac.New(sha256.New, f.secret)
	fmt.Fprintf(mac, "%s\n%d", objectPath, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve maps an object path to a filesystem path confined to the root.
func (f *FileStore) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", ErrObjectNotFound
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

func (f *FileStore) serveObject(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/o/")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil || time.Now().Unix() > exp {
		http.Error(w, "signature expired", http.StatusForbidden)
		return
	}
	want := f.sign(objectPath, exp)
	if !hmac.Equal([]byte(want), []byte(r.URL.Query().Get("sig"))) {
		http.Error(w, "bad signature", http.StatusForbidden)
		return
	}
	target, err := f.resolve(objectPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, target)
}
