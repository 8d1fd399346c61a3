package routes

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/fetch"
	"github.com/seijimatsuda/session-planner-beta/server/util/httputil"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

// DownloadRequest is the request body for the download endpoint.
type DownloadRequest struct {
	URL string `json:"url"`
}

func (req DownloadRequest) validate() error {
	if req.URL == "" {
		return errors.New("missing url")
	}
	return nil
}

// DownloadListResponse is the response body for the download listing.
type DownloadListResponse struct {
	Downloads []fetch.Entry `json:"downloads"`
}

func newDownloadHandler(validator auth.Validator, fetcher *fetch.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := authenticate(ctx, w, r, validator)
		if !ok {
			return
		}
		ctx = log.AddTags(ctx, "user", identity.UserID)
		req := DownloadRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(ctx, w, "error decoding request: %s", err)
			return
		}
		defer r.Body.Close()
		if err := req.validate(); err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %s", err)
			return
		}
		log.Infow(ctx, "Acquiring video", "url", req.URL)
		result, err := fetcher.Fetch(ctx, identity, req.URL)
		if err != nil {
			switch {
			case errors.Is(err, fetch.ErrInvalidURL), errors.Is(err, fetch.ErrDomainNotAllowed):
				httputil.BadRequest(ctx, w, "unsupported url: %s", err)
			case errors.Is(err, fetch.ErrRateLimited):
				httputil.TooManyRequests(ctx, w, "source host throttled the download: %s", err)
			case errors.Is(err, fetch.ErrVideoUnavailable):
				httputil.NotFound(ctx, w, "video unavailable: %s", err)
			default:
				httputil.InternalServerError(ctx, w, "download failed: %s", err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Errorf(ctx, "failed to encode response: %s", err)
		}
	}
}

func newDownloadListHandler(validator auth.Validator, ledger *fetch.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := authenticate(ctx, w, r, validator)
		if !ok {
			return
		}
		ctx = log.AddTags(ctx, "user", identity.UserID)
		entries, err := ledger.List(ctx, identity.UserID)
		if err != nil {
			httputil.InternalServerError(ctx, w, "failed to list downloads: %s", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(DownloadListResponse{Downloads: entries}); err != nil {
			log.Errorf(ctx, "failed to encode response: %s", err)
		}
	}
}
