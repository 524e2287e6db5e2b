package repository

import (
	"context"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/identity"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// AccountRepository is the Identity Store. Reconcile is the only write path
// for provider identities; BindWallet is the only write path for wallets.
type AccountRepository interface {
	// Reconcile runs the reconciliation algorithm atomically: the lookup by
	// (provider, external id), the decision, and the resulting insert or
	// update happen inside one transaction. sessionAccountID is the account
	// bound to the caller's session, or "" when unauthenticated; a stale
	// session ID that no longer resolves is treated as unauthenticated.
	// A lost insert race is retried internally once as a lookup.
	Reconcile(ctx context.Context, sessionAccountID string, provider model.ProviderKind, incoming model.NormalizedIdentity) (identity.Resolution, error)

	// GetByID returns the account with the given internal ID, or an
	// apperror.ErrNotFound error.
	GetByID(ctx context.Context, id string) (*model.Account, error)

	// BindWallet sets the account's wallet address, replacing any previous
	// one, and returns the updated account. The address must already have
	// been validated; the store applies no grammar checks of its own.
	BindWallet(ctx context.Context, id, address string) (*model.Account, error)
}
