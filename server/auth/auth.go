package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

/*
auth is the token validation collaborator for the media server. Every request
is validated independently; there is no caching of validation results, so a
revoked token stops working on the next request. Credentials are accepted
from the Authorization header or from a token query parameter, because native
media elements cannot attach custom headers to the range requests they issue.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrUnauthenticated is returned when a credential is missing or rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// Validator validates bearer tokens.
type Validator interface {
	// Validate returns the identity behind a token, or ErrUnauthenticated.
	Validate(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the credential from a request: the Authorization
// header takes precedence, then the token query parameter.
func BearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}
