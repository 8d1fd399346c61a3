package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/media"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/seijimatsuda/session-planner-beta/server/util"
	"github.com/seijimatsuda/session-planner-beta/server/util/httputil"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

/*
The media handler is the streaming proxy: authenticate, validate the object
path, resolve a signed URL and size, interpret the Range header, then pipe
the upstream body through without buffering. The upstream fetch runs under
the client request's context, so a disconnected player cancels it. Once the
status line is written the response is committed: failures after that point
are logged and the connection dropped, never re-statused.

Every byte-range request triggers a fresh signed URL and metadata probe.
Objects are immutable-ish (an upload replaces them wholesale), so stale
metadata would poison every subsequent chunk of a playback session.
*/

////////////////////////////////////////////////////////////////////////////////

// authenticate resolves the request's bearer credential, writing a 401 and
// returning false when it is missing or rejected.
func authenticate(
	ctx context.Context, w http.ResponseWriter, r *http.Request, validator auth.Validator,
) (auth.Identity, bool) {
	token, ok := auth.BearerToken(r)
	if !ok {
		httputil.Unauthorized(ctx, w, "missing authorization token")
		return auth.Identity{}, false
	}
	identity, err := validator.Validate(ctx, token)
	if err != nil {
		httputil.Unauthorized(ctx, w, "token rejected: %s", err)
		return auth.Identity{}, false
	}
	return identity, true
}

func newMediaHandler(
	validator auth.Validator,
	resolver *media.Resolver,
	client *http.Client,
	chunkCeiling int64,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := authenticate(ctx, w, r, validator)
		if !ok {
			return
		}
		ctx = log.AddTags(ctx, "user", identity.UserID)
		ref, err := media.ParseObjectRef(mux.Vars(r)["path"])
		if err != nil {
			httputil.BadRequest(ctx, w, "invalid object path: %s", err)
			return
		}
		ctx = log.AddTags(ctx, "object", ref.Path)
		meta, err := resolver.Resolve(ctx, ref)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				httputil.NotFound(ctx, w, "object not found: %s", err)
				return
			}
			httputil.InternalServerError(ctx, w, "failed to resolve object: %s", err)
			return
		}

		h := w.Header()
		h.Set("Content-Type", meta.ContentType)
		h.Set("Accept-Ranges", "bytes")
		h.Set("Cache-Control", "public, max-age=3600")

		if r.Method == http.MethodHead {
			h.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
			w.WriteHeader(http.StatusOK)
			return
		}

		byteRange, err := media.ParseRange(r.Header.Get("Range"), meta.Size)
		if err != nil {
			httputil.RangeNotSatisfiable(ctx, w, meta.Size, "unsatisfiable range %q: %s",
				r.Header.Get("Range"), err)
			return
		}
		if byteRange != nil {
			clamped := byteRange.ClampTo(chunkCeiling)
			byteRange = &clamped
		}
		serveUpstream(ctx, w, client, meta, byteRange)
	}
}

// serveUpstream fetches the signed URL, optionally ranged, and pipes the
// body to the client.
func serveUpstream(
	ctx context.Context,
	w http.ResponseWriter,
	client *http.Client,
	meta media.ObjectMeta,
	byteRange *media.ByteRange,
) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.SignedURL, nil)
	if err != nil {
		httputil.InternalServerError(ctx, w, "failed to build upstream request: %s", err)
		return
	}
	wantStatus := http.StatusOK
	if byteRange != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", byteRange.Start, byteRange.End))
		wantStatus = http.StatusPartialContent
	}
	resp, err := client.Do(req)
	if err != nil {
		httputil.InternalServerError(ctx, w, "upstream fetch failed: %s", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		httputil.NotFound(ctx, w, "object disappeared between probe and fetch")
		return
	}
	if resp.StatusCode != wantStatus {
		httputil.InternalServerError(ctx, w, "unexpected upstream status %d", resp.StatusCode)
		return
	}

	h := w.Header()
	if byteRange != nil {
		h.Set("Content-Range", byteRange.ContentRange(meta.Size))
		h.Set("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		h.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
		w.WriteHeader(http.StatusOK)
	}
	cw := util.NewCountingWriter(w)
	if _, err := io.Copy(cw, resp.Body); err != nil {
		// headers are committed, nothing to send the client
		log.Errorw(ctx, "stream interrupted", "bytes_sent", cw.Count(), "error", err)
		return
	}
	log.Debugw(ctx, "Served object", "bytes_sent", cw.Count())
}
