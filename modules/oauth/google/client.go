// Package google implements the Google OAuth credential issuer and the
// browser connect flow used to link a mailbox.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/credential"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	maxResponseBytes = 1 << 20
)

// Endpoints overrides the Google endpoint URLs, mainly for tests.
type Endpoints struct {
	Auth     string
	Token    string
	Userinfo string
}

// Default scopes: read mail, send mail, and identify the account.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Client talks to Google's OAuth 2.0 endpoints.
type Client struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string
	authURL      string
	tokenURL     string
	userinfoURL  string
	http         *http.Client
}

// NewClient creates a Client. Empty endpoint fields default to Google's
// public endpoints.
func NewClient(clientID, clientSecret, redirectURL string, scopes []string, ep Endpoints) *Client {
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	if ep.Auth == "" {
		ep.Auth = defaultAuthURL
	}
	if ep.Token == "" {
		ep.Token = defaultTokenURL
	}
	if ep.Userinfo == "" {
		ep.Userinfo = defaultUserinfoURL
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		scopes:       scopes,
		authURL:      ep.Auth,
		tokenURL:     ep.Token,
		userinfoURL:  ep.Userinfo,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthURL builds the consent-screen URL. access_type=offline with
// prompt=consent forces Google to issue a refresh token.
func (c *Client) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURL},
		"response_type": {"code"},
		"scope":         {strings.Join(c.scopes, " ")},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return c.authURL + "?" + q.Encode()
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (credential.Token, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURL},
	})
}

// Refresh implements credential.Issuer.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (credential.Token, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	})
}

// tokenResponse is the subset of Google's token payload we keep.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func (c *Client) token(ctx context.Context, form url.Values) (credential.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return credential.Token{}, fmt.Errorf("google: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return credential.Token{}, fmt.Errorf("google: token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return credential.Token{}, fmt.Errorf("google: read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return credential.Token{}, fmt.Errorf("google: decode token response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || tr.Error != "" {
		return credential.Token{}, fmt.Errorf("google: token endpoint returned %d: %s %s",
			resp.StatusCode, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return credential.Token{}, fmt.Errorf("google: token endpoint returned no access token")
	}

	return credential.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// UserEmail resolves the account's email address with a fresh access
// token, used once during the connect flow to bind the mailbox to a user.
func (c *Client) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("google: create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("google: userinfo request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("google: read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google: userinfo returned %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("google: decode userinfo response: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("google: userinfo returned no email")
	}
	return info.Email, nil
}
