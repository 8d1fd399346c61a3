package routes

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

func newHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			log.Errorf(r.Context(), "failed to encode response: %s", err)
		}
	}
}
