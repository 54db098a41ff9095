package remote

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthConfig selects how requests to the remote API are authorized.
type AuthConfig struct {
	// Token is a static bearer token.
	Token string

	// Issuer, ClientID and ClientSecret enable the client credentials grant
	// against the token endpoint discovered from the issuer.
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// TokenSource returns the token source for cfg, or nil when requests go
// unauthenticated. A static token wins over OIDC.
func TokenSource(ctx context.Context, cfg AuthConfig) (oauth2.TokenSource, error) {
	if cfg.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}), nil
	}
	if cfg.Issuer == "" {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
		Scopes:       cfg.Scopes,
	}
	return oauth2.ReuseTokenSource(nil, cc.TokenSource(context.WithoutCancel(ctx))), nil
}
