// Package auth verifies identity-provider tokens and manages the session
// tokens the API hands back to clients.
package auth

import (
	"fmt"
	"log/slog"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/rewardcoins/coinledger/internal/domain"
)

// Identity is what the external provider asserts about a user.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// DemoIdentity is the clearly-labeled fallback used when the provider is not
// enabled, so a misconfigured deployment never blocks sign-in.
var DemoIdentity = Identity{
	Email:   "demo@rewardcoins.app",
	Name:    "Demo User (Google Sign-In Disabled)",
	Picture: "/placeholder.svg",
}

// Provider verifies HMAC-signed ID tokens from the external identity
// provider. An empty secret means the provider is not enabled.
type Provider struct {
	secret   []byte
	issuer   string
	audience string
	logger   *slog.Logger
}

func NewProvider(secret, issuer, audience string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		secret:   []byte(strings.TrimSpace(secret)),
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}
}

// Enabled reports whether provider verification is configured.
func (p *Provider) Enabled() bool {
	return len(p.secret) > 0
}

// SignIn verifies the given ID token and returns the asserted identity.
// When the provider is not enabled it falls back to the demo identity with a
// diagnostic log line; any other verification failure is surfaced to the
// caller as an ErrIdentityProvider.
func (p *Provider) SignIn(idToken string) (Identity, error) {
	if !p.Enabled() {
		p.logger.Warn("identity provider not enabled, falling back to demo identity",
			"issuer", p.issuer)
		return DemoIdentity, nil
	}

	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrIdentityProvider, err)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: token missing email claim", domain.ErrIdentityProvider)
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return Identity{Email: email, Name: name, Picture: picture}, nil
}
