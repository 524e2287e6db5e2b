package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// discordUser is the portion of the Discord /users/@me response we care about.
//
// Discord API docs: https://discord.com/developers/docs/resources/user
type discordUser struct {
	ID            string `json:"id"`            // snowflake, served as a string
	Username      string `json:"username"`      // e.g. "alice"
	Discriminator string `json:"discriminator"` // legacy 4-digit tag; "0" on migrated accounts
	Avatar        string `json:"avatar"`        // avatar hash, empty if none set
}

// discordEpoch is the origin of Discord snowflake timestamps
// (2015-01-01T00:00:00Z), in milliseconds since the Unix epoch.
const discordEpoch = 1420070400000

// DiscordProvider wraps golang.org/x/oauth2 for the Discord Authorization
// Code flow. Mirrors GitHubProvider; only the endpoint, scope, and profile
// normalization differ.
type DiscordProvider struct {
	config *oauth2.Config
}

var _ Provider = (*DiscordProvider)(nil)

// NewDiscordProvider creates a DiscordProvider with the given OAuth app
// credentials. The "identify" scope grants the basic profile and nothing
// else — no email, no guilds.
func NewDiscordProvider(clientID, clientSecret string) *DiscordProvider {
	return &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"identify"},
			Endpoint:     endpoints.Discord,
		},
	}
}

func (p *DiscordProvider) Kind() model.ProviderKind {
	return model.ProviderDiscord
}

// AuthURL returns the Discord authorization URL for this login attempt.
func (p *DiscordProvider) AuthURL(state, redirectURL string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("redirect_uri", redirectURL),
	)
}

// Exchange completes the OAuth flow: trades the authorization code for an
// access token, fetches /users/@me with it, and normalizes the result.
func (p *DiscordProvider) Exchange(ctx context.Context, code, redirectURL string) (model.NormalizedIdentity, error) {
	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("redirect_uri", redirectURL),
	)
	if err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: exchanging Discord OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://discord.com/api/users/@me")
	if err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: calling Discord /users/@me API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: Discord /users/@me API returned status %d", resp.StatusCode)
	}

	var dc discordUser
	if err := json.NewDecoder(resp.Body).Decode(&dc); err != nil {
		return model.NormalizedIdentity{}, fmt.Errorf("auth: decoding Discord /users/@me response: %w", err)
	}

	return normalizeDiscord(dc), nil
}

// normalizeDiscord maps a raw Discord profile onto the provider-agnostic
// identity shape.
//
// Accounts predating Discord's username migration still carry a non-zero
// discriminator and display as "name#1234"; migrated accounts report "0"
// and display as the bare username. The account creation time isn't a
// profile field — it is encoded in the snowflake ID's upper bits.
func normalizeDiscord(dc discordUser) model.NormalizedIdentity {
	username := dc.Username
	if dc.Discriminator != "" && dc.Discriminator != "0" {
		username = dc.Username + "#" + dc.Discriminator
	}

	avatarURL := ""
	if dc.Avatar != "" && dc.ID != "" {
		avatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", dc.ID, dc.Avatar)
	}

	return model.NormalizedIdentity{
		ExternalID: dc.ID,
		Username:   username,
		AvatarURL:  avatarURL,
		CreatedAt:  snowflakeTime(dc.ID),
	}
}

// snowflakeTime extracts the creation timestamp from a Discord snowflake ID.
// The top 42 bits are milliseconds since the Discord epoch. Returns the zero
// time for anything that doesn't parse as a snowflake.
func snowflakeTime(id string) time.Time {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	ms := int64(n>>22) + discordEpoch
	return time.UnixMilli(ms).UTC()
}
