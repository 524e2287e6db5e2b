package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/apperror"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/identity"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id,
	github_id, github_username, github_avatar_url, github_created_at,
	discord_id, discord_username, discord_avatar_url, discord_created_at,
	wallet_address, created_at, updated_at`

// querier is the subset of sql.DB/sql.Tx the read helpers need, so the same
// lookups run inside and outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanAccount reads one accounts row into a model.Account, translating the
// nullable provider column groups into present-or-nil sub-identities.
func scanAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	var ghID, ghUser, ghAvatar sql.NullString
	var dcID, dcUser, dcAvatar sql.NullString
	var ghCreated, dcCreated sql.NullTime
	var wallet sql.NullString

	err := row.Scan(
		&a.ID,
		&ghID, &ghUser, &ghAvatar, &ghCreated,
		&dcID, &dcUser, &dcAvatar, &dcCreated,
		&wallet, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ghID.Valid {
		a.GitHub = &model.ProviderIdentity{
			ExternalID:        ghID.String,
			Username:          ghUser.String,
			AvatarURL:         ghAvatar.String,
			ProviderCreatedAt: ghCreated.Time,
		}
	}
	if dcID.Valid {
		a.Discord = &model.ProviderIdentity{
			ExternalID:        dcID.String,
			Username:          dcUser.String,
			AvatarURL:         dcAvatar.String,
			ProviderCreatedAt: dcCreated.Time,
		}
	}
	a.WalletAddress = wallet.String

	return &a, nil
}

// identityArgs flattens an optional sub-identity into the four column values
// for its provider group, using NULLs when the identity is absent.
func identityArgs(sub *model.ProviderIdentity) (id, username, avatar, createdAt any) {
	if sub == nil {
		return nil, nil, nil, nil
	}
	var created any
	if !sub.ProviderCreatedAt.IsZero() {
		created = sub.ProviderCreatedAt
	}
	return sub.ExternalID, sub.Username, sub.AvatarURL, created
}

func getByID(ctx context.Context, q querier, id string) (*model.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return account, nil
}

// getByExternalID finds the account owning (provider, externalID), or nil.
func getByExternalID(ctx context.Context, q querier, provider model.ProviderKind, externalID string) (*model.Account, error) {
	column := "github_id"
	if provider == model.ProviderDiscord {
		column = "discord_id"
	}

	account, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, externalID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: looking up account by %s %s: %w", column, externalID, err)
	}
	return account, nil
}

// GetByID retrieves an account by its internal ID.
// Returns an apperror.ErrNotFound error if no account exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return getByID(ctx, db.conn, id)
}

// Reconcile applies an incoming provider identity to the store atomically.
//
// The lookup by external ID, the reconciliation decision, and the resulting
// insert or update all run inside one transaction, so a concurrent callback
// for the same external ID can't observe or produce a half-applied state.
//
// RACE ON CREATE:
// Two concurrent callbacks for the same brand-new external ID both decide
// "create"; the UNIQUE index lets only one insert through. The loser's
// transaction fails the constraint, and we retry once from the top — by
// then the row exists, so the retry resolves as a login (or link) on the
// winner's account. This is the only retry the store performs.
func (db *DB) Reconcile(ctx context.Context, sessionAccountID string, provider model.ProviderKind, incoming model.NormalizedIdentity) (identity.Resolution, error) {
	res, err := db.reconcileOnce(ctx, sessionAccountID, provider, incoming)
	if err != nil && errors.Is(err, apperror.ErrConflict) {
		res, err = db.reconcileOnce(ctx, sessionAccountID, provider, incoming)
	}
	return res, err
}

func (db *DB) reconcileOnce(ctx context.Context, sessionAccountID string, provider model.ProviderKind, incoming model.NormalizedIdentity) (identity.Resolution, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return identity.Resolution{}, fmt.Errorf("sqlite: beginning reconcile tx: %w", err)
	}
	// Rollback is a no-op after Commit; this unwinds every early return.
	defer tx.Rollback()

	// A session pointing at a deleted or unknown account is treated as no
	// session at all rather than failing the login.
	var session *model.Account
	if sessionAccountID != "" {
		session, err = getByID(ctx, tx, sessionAccountID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return identity.Resolution{}, err
		}
	}

	existing, err := getByExternalID(ctx, tx, provider, incoming.ExternalID)
	if err != nil {
		return identity.Resolution{}, err
	}

	res, err := identity.Reconcile(session, existing, provider, incoming, time.Now().UTC())
	if err != nil {
		return identity.Resolution{}, err
	}

	if res.Outcome == identity.OutcomeCreate {
		err = insertAccount(ctx, tx, res.Account)
	} else {
		err = updateAccount(ctx, tx, res.Account)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return identity.Resolution{}, apperror.Conflict("account", string(provider)+":"+incoming.ExternalID)
		}
		return identity.Resolution{}, err
	}

	if err := tx.Commit(); err != nil {
		return identity.Resolution{}, fmt.Errorf("sqlite: committing reconcile tx: %w", err)
	}

	return res, nil
}

func insertAccount(ctx context.Context, tx *sql.Tx, account *model.Account) error {
	account.ID = xid.New().String()
	account.CreatedAt = account.UpdatedAt

	ghID, ghUser, ghAvatar, ghCreated := identityArgs(account.GitHub)
	dcID, dcUser, dcAvatar, dcCreated := identityArgs(account.Discord)

	var wallet any
	if account.WalletAddress != "" {
		wallet = account.WalletAddress
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id,
			github_id, github_username, github_avatar_url, github_created_at,
			discord_id, discord_username, discord_avatar_url, discord_created_at,
			wallet_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		ghID, ghUser, ghAvatar, ghCreated,
		dcID, dcUser, dcAvatar, dcCreated,
		wallet, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}
	return nil
}

func updateAccount(ctx context.Context, tx *sql.Tx, account *model.Account) error {
	ghID, ghUser, ghAvatar, ghCreated := identityArgs(account.GitHub)
	dcID, dcUser, dcAvatar, dcCreated := identityArgs(account.Discord)

	var wallet any
	if account.WalletAddress != "" {
		wallet = account.WalletAddress
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET
			github_id = ?, github_username = ?, github_avatar_url = ?, github_created_at = ?,
			discord_id = ?, discord_username = ?, discord_avatar_url = ?, discord_created_at = ?,
			wallet_address = ?, updated_at = ?
		 WHERE id = ?`,
		ghID, ghUser, ghAvatar, ghCreated,
		dcID, dcUser, dcAvatar, dcCreated,
		wallet, account.UpdatedAt, account.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("account", account.ID)
	}
	return nil
}

// BindWallet sets the account's wallet address, unconditionally replacing
// any previous one, and bumps updated_at. No address history is kept.
func (db *DB) BindWallet(ctx context.Context, id, address string) (*model.Account, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET wallet_address = ?, updated_at = ? WHERE id = ?`,
		address, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: binding wallet for account %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: binding wallet for account %s: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("account", id)
	}

	return db.GetByID(ctx, id)
}
