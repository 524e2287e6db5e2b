package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64  `json:"id"`         // numeric user ID — stable, never changes
	Login     string `json:"login"`      // username, e.g. "octocat"
	AvatarURL string `json:"avatar_url"` // profile picture URL
	CreatedAt string `json:"created_at"` // RFC 3339, when the GitHub account was made
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. The ClientSecret stays server-side: the code-for-token exchange is a
// server-to-server call and the access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
}

var _ Provider = (*GitHubProvider)(nil)

// NewGitHubProvider creates a GitHubProvider with the given OAuth app
// credentials. The "read:user" scope covers everything we normalize:
// ID, login, avatar, and account creation date.
func NewGitHubProvider(clientID, clientSecret string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *GitHubProvider) Kind() model.ProviderKind {
	return model.ProviderGitHub
}

// AuthURL returns the GitHub authorization URL for this login attempt.
// The redirect URL rides along as an auth-code option rather than living in
// the shared config, so concurrent requests with different hosts don't
// trample each other.
func (p *GitHubProvider) AuthURL(state, redirectURL string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("redirect_uri", redirectURL),
	)
}

// Exchange completes the OAuth flow: trades the authorization code for an
// access token, fetches the /user profile with it, and normalizes the result.
func (p *GitHubProvider) Exchange(ctx context.Context, code, redirectURL string) (model.NormalizedIdentity, error) {
	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("redirect_uri", redirectURL),
	)
	if err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: exchanging GitHub OAuth code: %w", err)
	}

	// config.Client returns an *http.Client that adds the Bearer header.
	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	return normalizeGitHub(gh), nil
}

// normalizeGitHub maps a raw GitHub profile onto the provider-agnostic
// identity shape. A zero ID normalizes to an empty ExternalID, which the
// reconciler rejects as a missing required field.
func normalizeGitHub(gh githubUser) model.NormalizedIdentity {
	id := ""
	if gh.ID != 0 {
		id = strconv.FormatInt(gh.ID, 10)
	}

	// created_at is optional in practice; a parse failure just leaves the
	// provider creation time unknown.
	var created time.Time
	if gh.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, gh.CreatedAt); err == nil {
			created = t
		}
	}

	return model.NormalizedIdentity{
		ExternalID: id,
		Username:   gh.Login,
		AvatarURL:  gh.AvatarURL,
		CreatedAt:  created,
	}
}
