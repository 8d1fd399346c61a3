package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/fetch"
	"github.com/seijimatsuda/session-planner-beta/server/media"
	"github.com/seijimatsuda/session-planner-beta/server/util/mw"
)

// MakeRoutes builds the server's HTTP handler. The CORS middleware wraps the
// router itself so preflight OPTIONS requests are answered for every path
// without touching authentication.
func MakeRoutes(
	validator auth.Validator,
	resolver *media.Resolver,
	fetcher *fetch.Fetcher,
	ledger *fetch.Ledger,
	chunkCeiling int64,
) http.Handler {
	client := &http.Client{Timeout: 10 * time.Minute}
	r := mux.NewRouter()
	// the raw path must reach the object ref validator: cleaning would
	// collapse ".." and "//" segments into a redirect before routing
	r.SkipClean(true)
	r.HandleFunc("/healthz", newHealthzHandler()).Methods("GET")
	r.HandleFunc("/media/{path:.*}",
		newMediaHandler(validator, resolver, client, chunkCeiling)).Methods("GET", "HEAD")
	r.HandleFunc("/downloads", newDownloadHandler(validator, fetcher)).Methods("POST")
	r.HandleFunc("/downloads", newDownloadListHandler(validator, ledger)).Methods("GET")
	return mw.WithRequestID(mw.WithCORS(r))
}
