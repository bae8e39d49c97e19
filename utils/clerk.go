package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrSessionInactive = errors.New("session is not active")
	ErrSessionNotFound = errors.New("session not found")
)

// IdentitySession is the part of the provider's session resource we use.
type IdentitySession struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// SessionClient talks to the identity provider's backend API, authenticated
// with the instance secret key as a bearer token.
type SessionClient struct {
	apiURL string
	http   *http.Client
}

// NewSessionClient returns a client for apiURL. base supplies the transport;
// nil means http.DefaultClient.
func NewSessionClient(apiURL, secretKey string, base *http.Client) *SessionClient {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey, TokenType: "Bearer"}))
	hc.Timeout = 10 * time.Second
	return &SessionClient{apiURL: strings.TrimRight(apiURL, "/"), http: hc}
}

// VerifySession returns the owner of sessionID when that session is active.
func (c *SessionClient) VerifySession(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrSessionNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrSessionInactive
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("identity provider: unexpected status %d", resp.StatusCode)
	}

	var s IdentitySession
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", fmt.Errorf("identity provider: decode session: %w", err)
	}
	if s.Status != "active" || s.UserID == "" {
		return "", ErrSessionInactive
	}
	return s.UserID, nil
}
