package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUser is the portion of the Google userinfo response we care about.
// Google returns a larger object — we only unmarshal the fields we need.
type GoogleUser struct {
	ID         string `json:"id"`          // Google's subject ID — stable, never changes
	Email      string `json:"email"`       // Verified primary email
	GivenName  string `json:"given_name"`  // First name
	FamilyName string `json:"family_name"` // Last name
	Picture    string `json:"picture"`     // Profile picture URL
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Our server redirects the user to Google's consent page with our ClientID.
// 2. The user approves (or denies) the request on Google.
// 3. Google redirects back to our CallbackURL with a short-lived "code".
// 4. Our server exchanges the code for an access token (server-to-server call).
// 5. Our server uses the token to fetch the user's profile.
//
// The code-for-token exchange happens server-to-server using the ClientSecret,
// so Google's access token never touches the browser.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
//
// Register the OAuth client in the Google Cloud console; callbackURL must
// match one of the configured "Authorized redirect URIs" exactly.
// Example: "http://localhost:8000/auth/google/callback"
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint, // pre-defined Google OAuth endpoints
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When Google calls back, the handler verifies the returned
// state matches our cookie — this prevents CSRF attacks where an attacker
// tricks a victim's browser into completing an OAuth flow for the
// attacker's account.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for a
// Google user profile.
//
// Steps:
//  1. Exchange the code for an OAuth access token (server-to-server)
//  2. Use the token to call Google's userinfo endpoint
//  3. Unmarshal the response into a GoogleUser struct
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var gu GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gu.ID == "" {
		return nil, fmt.Errorf("auth: Google returned an invalid user (empty ID)")
	}

	return &gu, nil
}
