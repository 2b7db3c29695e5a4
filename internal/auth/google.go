package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Identity is the profile returned by an external identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IdentityProvider runs the authorization code flow of an external login.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// GoogleProvider signs users in with their Google account.
type GoogleProvider struct {
	config   *oauth2.Config
	endpoint string
}

// NewGoogleProvider builds the provider from OAuth client credentials.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
			},
		},
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for a token and fetches the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return Identity{}, errors.New("userinfo is missing id or email")
	}

	return Identity{
		Subject: info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

// NewState returns a random URL-safe value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
