package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

/*
MemStore is an in-memory storage provider backed by a map, served over a
loopback listener so that its signed URLs are fetchable like any other
provider's. It is only suitable for tests: it skips URL signing entirely and
counts collaborator calls (signed-URL issuance, metadata HEAD probes, byte
GETs) so tests can assert exactly which store operations a request triggered.
*/

////////////////////////////////////////////////////////////////////////////////

// MemStore is an in-memory store.
type MemStore struct {
	data map[string][]byte
	mtx  *sync.RWMutex
	srv  *http.Server
	addr string

	signCalls atomic.Int64
	headCalls atomic.Int64
	getCalls  atomic.Int64
}

// NewMemStore returns a new in-memory store with a running loopback listener.
func NewMemStore() (*MemStore, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	m := &MemStore{
		data: make(map[string][]byte),
		mtx:  &sync.RWMutex{},
		addr: l.Addr().String(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/o/", m.serveObject)
	m.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := m.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "memstore listener error: %s\n", err)
		}
	}()
	return m, nil
}

// SignedURL returns a fetchable URL for the object. The URL carries no
// signature; tests do not exercise credential theft.
func (m *MemStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	m.signCalls.Add(1)
	return fmt.Sprintf("http://%s/o/%s", m.addr, path), nil
}

// Put stores an object in the store.
func (m *MemStore) Put(_ context.Context, path string, r io.Reader, size int64, _ string) error {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[path] = buf
	return nil
}

// Delete removes an object from the store.
func (m *MemStore) Delete(_ context.Context, path string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.data, path)
	return nil
}

// Close shuts down the loopback listener.
func (m *MemStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down memstore listener: %w", err)
	}
	return nil
}

func (m *MemStore) String() string {
	return "memory"
}

// SignCalls reports how many signed URLs have been issued.
func (m *MemStore) SignCalls() int64 { return m.signCalls.Load() }

// HeadCalls reports how many metadata probes have been served.
func (m *MemStore) HeadCalls() int64 { return m.headCalls.Load() }

// GetCalls reports how many byte-streaming fetches have been served.
func (m *MemStore) GetCalls() int64 { return m.getCalls.Load() }

func (m *MemStore) serveObject(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		m.headCalls.Add(1)
	case http.MethodGet:
		m.getCalls.Add(1)
	}
	path := strings.TrimPrefix(r.URL.Path, "/o/")
	m.mtx.RLock()
	data, ok := m.data[path]
	m.mtx.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, path, time.Time{}, bytes.NewReader(data))
}
