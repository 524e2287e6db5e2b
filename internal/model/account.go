// Package model defines the data structures used throughout the application.
package model

import "time"

// ProviderKind identifies an external OAuth identity provider.
//
// WHY A NAMED STRING TYPE?
// Provider names travel through URLs ("/api/auth/github"), database columns,
// and log lines, so string is the natural representation. Wrapping it in a
// named type means a function that takes a ProviderKind can't silently be
// handed an account ID or a username — the compiler catches the mix-up.
type ProviderKind string

const (
	ProviderGitHub  ProviderKind = "github"
	ProviderDiscord ProviderKind = "discord"
)

// Valid reports whether k is a provider this application knows about.
func (k ProviderKind) Valid() bool {
	return k == ProviderGitHub || k == ProviderDiscord
}

// ProviderIdentity is one provider's view of an account: the stable external
// ID the provider assigned, plus profile fields we refresh on every login.
//
// WHY ExternalID string (not int64)?
// GitHub user IDs are integers but Discord snowflake IDs exceed what
// JavaScript clients can safely handle as numbers, so Discord's API serves
// them as strings. Normalizing both to string keeps the reconciliation logic
// provider-agnostic; the uniqueness constraint works the same either way.
type ProviderIdentity struct {
	ExternalID string    `json:"externalId"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	// ProviderCreatedAt is when the account was created on the provider's
	// side, when the provider reports it. Zero value means unknown.
	ProviderCreatedAt time.Time `json:"providerCreatedAt,omitempty"`
}

// NormalizedIdentity is the provider-agnostic shape a callback handler
// produces from a raw provider profile, before reconciliation.
//
// ExternalID and Username are required; AvatarURL and CreatedAt are optional
// because providers may omit them (a hidden avatar, an API that doesn't
// report account age). The reconciler rejects identities missing the
// required fields — that's a provider-integration bug, not user error.
type NormalizedIdentity struct {
	ExternalID string
	Username   string
	AvatarURL  string
	CreatedAt  time.Time
}

// Account is the core identity record: one row unifying up to one identity
// per provider and an optional payout wallet address.
//
// WHY POINTERS FOR THE PROVIDER IDENTITIES?
// An account created through a GitHub login has no Discord identity yet.
// A nil pointer is an honest "absent" — unlike a zero-valued struct, it
// can't be mistaken for a real identity with empty fields, and it marshals
// to JSON null so clients can tell the difference too.
type Account struct {
	ID        string            `json:"id"`
	GitHub    *ProviderIdentity `json:"github,omitempty"`
	Discord   *ProviderIdentity `json:"discord,omitempty"`
	// WalletAddress is the validated Solana payout address, empty until the
	// user binds one.
	WalletAddress string    `json:"walletAddress,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Identity returns the account's identity for the given provider, or nil.
func (a *Account) Identity(provider ProviderKind) *ProviderIdentity {
	switch provider {
	case ProviderGitHub:
		return a.GitHub
	case ProviderDiscord:
		return a.Discord
	}
	return nil
}

// SetIdentity replaces the account's identity for the given provider.
func (a *Account) SetIdentity(provider ProviderKind, id *ProviderIdentity) {
	switch provider {
	case ProviderGitHub:
		a.GitHub = id
	case ProviderDiscord:
		a.Discord = id
	}
}

// Clone returns a deep copy of the account. Reconciliation works on copies
// so a failed store write never leaves a half-mutated account in a session.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.GitHub != nil {
		gh := *a.GitHub
		c.GitHub = &gh
	}
	if a.Discord != nil {
		dc := *a.Discord
		c.Discord = &dc
	}
	return &c
}
