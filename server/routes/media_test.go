package routes_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"testing"

	"github.com/seijimatsuda/session-planner-beta/server/routes"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/stretchr/testify/require"
)

func seedObject(t *testing.T, store *storage.MemStore, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	rng := rand.New(rand.NewSource(42))
	_, err := rng.Read(data)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), path, bytes.NewReader(data), int64(size), "video/mp4"))
	return data
}

func mediaRequest(t *testing.T, method, baseURL, path, token, rangeHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, baseURL+"/media/"+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestMediaFullFetch(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	data := seedObject(t, store, "user1/clip.mp4", 100)

	resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	require.Equal(t, "100", resp.Header.Get("Content-Length"))
	require.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, data, body)
}

func TestMediaRangedFetch(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	data := seedObject(t, store, "user1/clip.mp4", 100)

	cases := []struct {
		assertion    string
		rangeHeader  string
		start        int64
		end          int64
		contentRange string
	}{
		{"bounded", "bytes=10-19", 10, 19, "bytes 10-19/100"},
		{"open", "bytes=50-", 50, 99, "bytes 50-99/100"},
		{"suffix", "bytes=-10", 90, 99, "bytes 90-99/100"},
		{"end clamped to object", "bytes=90-500", 90, 99, "bytes 90-99/100"},
		{"single byte", "bytes=0-0", 0, 0, "bytes 0-0/100"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", c.rangeHeader)
			defer resp.Body.Close()
			require.Equal(t, http.StatusPartialContent, resp.StatusCode)
			require.Equal(t, c.contentRange, resp.Header.Get("Content-Range"))
			require.Equal(t, fmt.Sprint(c.end-c.start+1), resp.Header.Get("Content-Length"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, data[c.start:c.end+1], body)
		})
	}
}

func TestMediaUnsatisfiableRanges(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)

	cases := []string{
		"bytes=150-200",
		"bytes=100-",
		"bytes=50-10",
		"bytes=abc-10",
		"bytes=0-xyz",
		"bytes=0-1,5-9",
		"bytes=-0",
		"items=0-10",
	}
	for _, header := range cases {
		t.Run(header, func(t *testing.T) {
			resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", header)
			defer resp.Body.Close()
			require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
			require.Equal(t, "bytes */100", resp.Header.Get("Content-Range"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Empty(t, body)
		})
	}
}

func TestMediaChunkCeiling(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 1000000)
	data := seedObject(t, store, "user1/clip.mp4", 1000000)

	resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", "bytes=500000-")
	defer resp.Body.Close()
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	require.Equal(t, "bytes 500000-999999/1000000", resp.Header.Get("Content-Range"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, data[500000:], body)
}

func TestMediaChunkCeilingLowersEnd(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 100)
	data := seedObject(t, store, "user1/clip.mp4", 1000)

	resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", "bytes=0-")
	defer resp.Body.Close()
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	require.Equal(t, "bytes 0-99/1000", resp.Header.Get("Content-Range"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, data[:100], body)
}

func TestMediaSequentialChunksReassemble(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 128)
	data := seedObject(t, store, "user1/clip.mp4", 1000)

	var assembled []byte
	for offset := int64(0); offset < 1000; {
		resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1",
			fmt.Sprintf("bytes=%d-", offset))
		require.Equal(t, http.StatusPartialContent, resp.StatusCode)
		chunk, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.LessOrEqual(t, len(chunk), 128)
		assembled = append(assembled, chunk...)
		offset += int64(len(chunk))
	}
	require.Equal(t, data, assembled)
}

func TestMediaRangeIdempotence(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)

	read := func() (string, []byte) {
		resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "token1", "bytes=10-19")
		defer resp.Body.Close()
		require.Equal(t, http.StatusPartialContent, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.Header.Get("Content-Range"), body
	}
	cr1, body1 := read()
	cr2, body2 := read()
	require.Equal(t, cr1, cr2)
	require.Equal(t, body1, body2)
}

func TestMediaInvalidPaths(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)
	seedObject(t, store, "user2/clip.mp4", 100)

	// no redirect following: the router must not clean the path into a 301,
	// the raw path has to reach the validator and come back as a 400
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	cases := []struct {
		assertion string
		path      string
	}{
		{"traversal into another owner's prefix", "user1/../user2/clip.mp4"},
		{"leading traversal", "../user2/clip.mp4"},
		{"double slash", "//user1/clip.mp4"},
		{"dot segment resolving to a real object", "user1/x/../clip.mp4"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			req, err := http.NewRequest("GET", baseURL+"/media/"+c.path, nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer token1")
			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestMediaMissingObject(t *testing.T) {
	baseURL, _, _ := routes.MakeTestRoutes(t, 0)
	resp := mediaRequest(t, "GET", baseURL, "user1/nope.mp4", "token1", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMediaUnauthenticated(t *testing.T) {
	baseURL, store, validator := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)
	sign, head, get := store.SignCalls(), store.HeadCalls(), store.GetCalls()

	resp := mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "", "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, validator.Calls())

	resp = mediaRequest(t, "GET", baseURL, "user1/clip.mp4", "garbage", "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), validator.Calls())

	// rejected requests never touch the store
	require.Equal(t, sign, store.SignCalls())
	require.Equal(t, head, store.HeadCalls())
	require.Equal(t, get, store.GetCalls())
}

func TestMediaTokenQueryParam(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	data := seedObject(t, store, "user1/clip.mp4", 100)

	resp, err := http.Get(baseURL + "/media/user1/clip.mp4?token=token1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, data, body)
}

func TestMediaHead(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)

	resp := mediaRequest(t, "HEAD", baseURL, "user1/clip.mp4", "token1", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "100", resp.Header.Get("Content-Length"))
	require.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	require.Zero(t, store.GetCalls())
	require.Equal(t, int64(1), store.HeadCalls())
}

func TestMediaHeadIgnoresRange(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)

	resp := mediaRequest(t, "HEAD", baseURL, "user1/clip.mp4", "token1", "bytes=0-9")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "100", resp.Header.Get("Content-Length"))
	require.Zero(t, store.GetCalls())
}

func TestMediaPreflight(t *testing.T) {
	baseURL, _, validator := routes.MakeTestRoutes(t, 0)

	req, err := http.NewRequest("OPTIONS", baseURL+"/media/user1/clip.mp4", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, HEAD, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	require.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
	require.Zero(t, validator.Calls())
}

func TestMediaCORSOnResponses(t *testing.T) {
	baseURL, store, _ := routes.MakeTestRoutes(t, 0)
	seedObject(t, store, "user1/clip.mp4", 100)

	req, err := http.NewRequest("GET", baseURL+"/media/user1/clip.mp4", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token1")
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "Content-Range")
}

func TestHealthz(t *testing.T) {
	baseURL, _, _ := routes.MakeTestRoutes(t, 0)
	resp, err := http.Get(baseURL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}
