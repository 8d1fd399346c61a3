package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/seijimatsuda/session-planner-beta/server/util/log"
)

/*
httputil contains utility functions for HTTP error responses. Any error
generated in a handler should go through one of these, to ensure we are
logging and responding to the client in a consistent way. Client-visible
messages are normalized here: internal failures and upstream store errors are
logged with full detail but the response body carries only a generic message,
and authentication failures never reveal whether the requested object exists.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrorResponse is the structure of an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()}); err != nil {
		log.Errorw(ctx, "error writing response", "error", err)
	}
}

// NotFound logs the error and sends a 404 response to the client.
func NotFound(ctx context.Context, w http.ResponseWriter, msg string, args ...any) {
	log.Debugw(ctx, "Not found", "msg", fmt.Errorf(msg, args...))
	writeErrorResponse(ctx, w, http.StatusNotFound, errors.New("file not found"))
}

// BadRequest logs the error and sends a 400 response to the client.
func BadRequest(ctx context.Context, w http.ResponseWriter, msg string, args ...any) {
	log.Errorw(ctx, "Bad request", "msg", fmt.Errorf(msg, args...))
	writeErrorResponse(ctx, w, http.StatusBadRequest, fmt.Errorf(msg, args...))
}

// InternalServerError logs the error and sends a 500 response to the client
// with a generic message.
func InternalServerError(ctx context.Context, w http.ResponseWriter, msg string, args ...any) {
	log.Errorw(ctx, "Internal server error", "msg", fmt.Errorf(msg, args...))
	writeErrorResponse(ctx, w, http.StatusInternalServerError, errors.New("internal server error"))
}

// Unauthorized logs the error and sends a 401 response to the client. The
// response body is always the same generic message regardless of the cause.
func Unauthorized(ctx context.Context, w http.ResponseWriter, msg string, args ...any) {
	log.Debugw(ctx, "Unauthorized", "msg", fmt.Errorf(msg, args...))
	writeErrorResponse(ctx, w, http.StatusUnauthorized, errors.New("missing or invalid authorization token"))
}

// TooManyRequests logs the error and sends a 429 response to the client.
func TooManyRequests(ctx context.Context, w http.ResponseWriter, msg string, args ...any) {
	log.Warnw(ctx, "Too many requests", "msg", fmt.Errorf(msg, args...))
	writeErrorResponse(ctx, w, http.StatusTooManyRequests, fmt.Errorf(msg, args...))
}

// RangeNotSatisfiable sends a 416 response with an empty body and the
// Content-Range: bytes */{size} header required by RFC 7233.
func RangeNotSatisfiable(ctx context.Context, w http.ResponseWriter, size int64, msg string, args ...any) {
	log.Debugw(ctx, "Range not satisfiable", "msg", fmt.Errorf(msg, args...), "size", size)
	w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}
