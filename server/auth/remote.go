package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

/*
RemoteValidator validates tokens against the managed auth service's user
endpoint: it forwards the bearer token and reads back the identity it maps
to. Any non-200 answer is treated as an authentication failure; the service's
reasons are not distinguished because the client-visible result is the same.
*/

////////////////////////////////////////////////////////////////////////////////

type RemoteValidator struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteValidator builds a validator against the auth service's user
// endpoint, e.g. https://auth.example.com/auth/v1/user. The apiKey is the
// service's project key, sent alongside the user token.
func NewRemoteValidator(endpoint, apiKey string) *RemoteValidator {
	return &RemoteValidator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Validate calls the user endpoint with the supplied token.
func (v *RemoteValidator) Validate(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("auth service returned %d: %w", resp.StatusCode, ErrUnauthenticated)
	}
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if user.ID == "" {
		return Identity{}, fmt.Errorf("auth service returned no identity: %w", ErrUnauthenticated)
	}
	return Identity{UserID: user.ID, Email: user.Email}, nil
}
