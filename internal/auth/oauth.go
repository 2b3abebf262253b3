package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/minjae-dev/study-planner-api/internal/model"
)

// googleUserInfoURL is Google's OpenID Connect userinfo endpoint. We call
// it with the exchanged access token to get the authenticated profile.
const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile is the normalized identity assertion handed to the identity
// resolver: only the fields the system actually uses, plus the raw response
// body kept verbatim for the audit snapshot stored on the link record.
//
// The json tags match Google's OIDC userinfo response. Other providers
// would get their own fetch function that maps into this same struct.
type Profile struct {
	Provider      model.Provider  `json:"-"`
	ID            string          `json:"sub"` // provider-assigned id, stable
	Email         string          `json:"email"`
	EmailVerified bool            `json:"email_verified"`
	Name          string          `json:"name"`
	Picture       string          `json:"picture"`
	Raw           json.RawMessage `json:"-"` // untouched response body
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// FLOW:
//  1. The server redirects the browser to Google's consent page (AuthURL).
//  2. Google redirects back to our callback with a short-lived code.
//  3. Exchange trades the code for an OAuth access token, server-to-server,
//     using the client secret — the token never touches the browser.
//  4. Exchange then calls the userinfo endpoint and returns a Profile.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given OAuth app
// credentials. callbackURL must exactly match the authorized redirect URI
// registered in the Google Cloud console.
//
// Scopes: "openid", "email", "profile" — enough for the identity resolver
// (stable id, email, display name, avatar) and nothing more.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent-page URL for the given CSRF state.
//
// The state is a random value the caller stores in a short-lived cookie
// before redirecting; the callback handler verifies the returned state
// matches the cookie, proving the flow started on this server.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for the
// authenticated user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that attaches the
	// bearer token to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: reading Google userinfo response: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("auth: Google returned a profile without a subject id")
	}

	profile.Provider = model.ProviderGoogle
	profile.Raw = json.RawMessage(body)

	return &profile, nil
}
