package chat

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

// TokenConfig describes how the IRC password is obtained: a fixed chat token,
// or an app client id/secret plus refresh token exchanged at TokenURL.
type TokenConfig struct {
	StaticToken  string
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// NewTokenSource returns a source whose access token is used as the IRC PASS.
// Refreshed tokens are cached until they expire.
func NewTokenSource(ctx context.Context, cfg TokenConfig) (oauth2.TokenSource, error) {
	static := strings.TrimPrefix(strings.TrimSpace(cfg.StaticToken), "oauth:")
	refresh := strings.TrimSpace(cfg.RefreshToken)
	if refresh == "" {
		if static == "" {
			return nil, errors.New("chat token is not configured")
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: static, TokenType: "Bearer"}), nil
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("refresh token requires a client id")
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	seed := &oauth2.Token{RefreshToken: refresh}
	return oauth2.ReuseTokenSource(nil, oc.TokenSource(ctx, seed)), nil
}

func ircPassword(ts oauth2.TokenSource) (string, error) {
	tok, err := ts.Token()
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("token source returned an empty access token")
	}
	return "oauth:" + tok.AccessToken, nil
}
