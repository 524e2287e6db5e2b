// Package service — identity business logic.
//
// IdentityService sits between the HTTP handlers and the account store:
//
//	AuthHandler / AccountHandler (HTTP) → IdentityService → AccountRepository
//
// The handlers adapt HTTP to method calls and nothing more; every rule about
// what a callback or a wallet submission means lives here or below.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/apperror"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/identity"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/repository"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/wallet"
)

// IdentityService owns the account lifecycle: provider callbacks, wallet
// binding, and session-account lookups.
type IdentityService struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewIdentityService creates an IdentityService with its dependencies.
func NewIdentityService(accounts repository.AccountRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleCallback applies a provider callback to the store and returns the
// resolution the session should be rebound to.
//
// sessionAccountID is the account the caller's session is currently bound
// to, or "" when anonymous. The store runs the reconciliation atomically;
// this method's own job is the audit trail: a login that displaces a
// different session account is legal but worth noticing, so it is logged
// loudly with both account IDs rather than silently resolved.
func (s *IdentityService) HandleCallback(ctx context.Context, sessionAccountID string, provider model.ProviderKind, incoming model.NormalizedIdentity) (identity.Resolution, error) {
	res, err := s.accounts.Reconcile(ctx, sessionAccountID, provider, incoming)
	if err != nil {
		return identity.Resolution{}, fmt.Errorf("service/identity: reconciling %s callback: %w", provider, err)
	}

	if res.SessionReplaced {
		s.logger.Warn("provider login replaced session account",
			slog.String("provider", string(provider)),
			slog.String("previousAccountID", sessionAccountID),
			slog.String("accountID", res.Account.ID),
			slog.String("externalID", incoming.ExternalID),
		)
	}

	s.logger.Info("provider callback reconciled",
		slog.String("provider", string(provider)),
		slog.String("outcome", string(res.Outcome)),
		slog.String("accountID", res.Account.ID),
	)

	return res, nil
}

// BindWallet validates the candidate address and attaches it to the account.
//
// Validation happens before any store access: an invalid address must leave
// the account untouched, and there is no point resolving the account first.
// A previously bound address is replaced unconditionally.
func (s *IdentityService) BindWallet(ctx context.Context, accountID, address string) (*model.Account, error) {
	if !wallet.IsValidAddress(address) {
		return nil, apperror.ValidationFailed("address", "not a valid Solana address")
	}

	account, err := s.accounts.BindWallet(ctx, accountID, address)
	if err != nil {
		return nil, fmt.Errorf("service/identity: binding wallet for account %s: %w", accountID, err)
	}

	s.logger.Info("wallet address bound",
		slog.String("accountID", accountID),
	)

	return account, nil
}

// GetAccount returns the account for the given internal ID. Used by the
// /api/user handler after the middleware validates the session.
func (s *IdentityService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, apperror.Unauthorized("not authenticated")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/identity: fetching account %s: %w", id, err)
	}

	return account, nil
}
