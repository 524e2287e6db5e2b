// Package identity implements the reconciliation algorithm: the decision of
// what an incoming provider identity does to the account store.
//
// Reconcile is deliberately a pure function. It sees two snapshots — the
// account bound to the caller's session (if any) and the account already
// owning the incoming external ID (if any) — and returns the resulting
// account state plus an outcome label. It never touches the store; the
// repository runs the lookup and the write around it inside one transaction
// so the decision and its effect are atomic.
package identity

import (
	"time"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/apperror"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// Outcome labels what a reconciliation did. Handlers pick redirect targets
// from it and the service logs it; nothing else should branch on it.
type Outcome string

const (
	// OutcomeCreate — no session, external ID unknown: a brand-new account.
	OutcomeCreate Outcome = "create"
	// OutcomeLogin — external ID belongs to an existing account that is not
	// the session's; that account wins and becomes the session's account.
	OutcomeLogin Outcome = "login"
	// OutcomeRefresh — external ID belongs to the session's own account;
	// profile fields are refreshed in place.
	OutcomeRefresh Outcome = "refresh"
	// OutcomeLink — external ID unknown but a session exists; the identity
	// is attached to the session's account (the cross-provider merge).
	OutcomeLink Outcome = "link"
)

// Resolution is the result of a reconciliation decision.
type Resolution struct {
	Outcome Outcome

	// Account is the post-reconciliation state. For OutcomeCreate its ID and
	// CreatedAt are unset — the store assigns them on insert. It is always a
	// copy; the inputs are never mutated.
	Account *model.Account

	// SessionReplaced is set when a login resolved to an account different
	// from the one the session was bound to. The previous session identity
	// is discarded — callers must emit an audit signal when this is set.
	SessionReplaced bool
}

// Reconcile decides what the incoming identity does to the store.
//
// session is the account bound to the caller's session, or nil when
// unauthenticated. existing is the account already owning
// (provider, incoming.ExternalID), or nil when no account claims that pair.
// now stamps UpdatedAt so the function stays deterministic under test.
//
// The decision policy, in order:
//  1. existing found and it is the session's account  → refresh
//  2. existing found otherwise                        → login
//  3. not found, session present                      → link
//  4. not found, no session                           → create
//
// Every outcome is idempotent: re-running with the same inputs converges to
// the same account state, at most bumping UpdatedAt.
func Reconcile(session, existing *model.Account, provider model.ProviderKind, incoming model.NormalizedIdentity, now time.Time) (Resolution, error) {
	if err := validate(provider, incoming); err != nil {
		return Resolution{}, err
	}

	sub := &model.ProviderIdentity{
		ExternalID:        incoming.ExternalID,
		Username:          incoming.Username,
		AvatarURL:         incoming.AvatarURL,
		ProviderCreatedAt: incoming.CreatedAt,
	}

	if existing != nil {
		outcome := OutcomeLogin
		replaced := session != nil
		if session != nil && session.ID == existing.ID {
			outcome = OutcomeRefresh
			replaced = false
		}

		// The stored account is authoritative; only the matching provider's
		// sub-identity is overwritten (the profile may have changed since
		// last login). The other provider and the wallet are untouched.
		account := existing.Clone()
		account.SetIdentity(provider, sub)
		account.UpdatedAt = now

		return Resolution{
			Outcome:         outcome,
			Account:         account,
			SessionReplaced: replaced,
		}, nil
	}

	if session != nil {
		account := session.Clone()
		account.SetIdentity(provider, sub)
		account.UpdatedAt = now

		return Resolution{Outcome: OutcomeLink, Account: account}, nil
	}

	// Brand-new account: only the incoming provider populated, no wallet.
	// ID and CreatedAt are left for the store to assign on insert.
	account := &model.Account{UpdatedAt: now}
	account.SetIdentity(provider, sub)

	return Resolution{Outcome: OutcomeCreate, Account: account}, nil
}

// validate enforces the required fields of a normalized identity. A missing
// external ID or username is a provider-integration bug and is surfaced as
// an upstream error, never retried.
func validate(provider model.ProviderKind, incoming model.NormalizedIdentity) error {
	if !provider.Valid() {
		return apperror.ValidationFailed("provider", "unknown provider "+string(provider))
	}
	if incoming.ExternalID == "" {
		return apperror.MissingField(string(provider), "externalId")
	}
	if incoming.Username == "" {
		return apperror.MissingField(string(provider), "username")
	}
	return nil
}
