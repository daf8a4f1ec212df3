// Package auth is the OAuth collaborator for the Drive remote. A failure
// here is never fatal: callers degrade to offline operation and surface a
// warning.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
)

// ErrAuthFailed wraps every sign-in failure so callers can treat the whole
// family as one non-fatal condition.
var ErrAuthFailed = errors.New("authentication failed")

// Credentials carry what the Drive remote needs to talk to the API.
type Credentials struct {
	TokenSource oauth2.TokenSource
}

// Client loads OAuth client and token material. Inline JSON takes precedence
// over file paths, matching how deployments inject secrets.
type Client struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// NewFromEnv reads the GOOGLE_OAUTH_* variables.
func NewFromEnv() *Client {
	return &Client{
		ClientJSON: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		ClientFile: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		TokenJSON:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")),
		TokenFile:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	}
}

// SignIn exchanges the stored client config and refresh token for a live
// token source scoped to the Drive app data folder.
func (c *Client) SignIn(ctx context.Context) (Credentials, error) {
	clientBytes, err := c.load(c.ClientJSON, c.ClientFile, "client")
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	cfg, err := google.ConfigFromJSON(clientBytes, gdrive.DriveAppdataScope)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: parse oauth client: %v", ErrAuthFailed, err)
	}

	tokenBytes, err := c.load(c.TokenJSON, c.TokenFile, "token")
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenBytes, &tok); err != nil {
		return Credentials{}, fmt.Errorf("%w: parse oauth token: %v", ErrAuthFailed, err)
	}

	slog.InfoContext(ctx, "OAuth credentials loaded", "has_refresh_token", tok.RefreshToken != "")
	return Credentials{TokenSource: cfg.TokenSource(ctx, &tok)}, nil
}

func (c *Client) load(inline, file, what string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read oauth %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("missing oauth %s (set GOOGLE_OAUTH_%s_JSON or GOOGLE_OAUTH_%s_FILE)",
			what, strings.ToUpper(what), strings.ToUpper(what))
	}
}
