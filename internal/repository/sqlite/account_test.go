package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/apperror"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/identity"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// newTestDB returns a DB backed by an in-memory SQLite database that is
// discarded when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestAccount reconciles a fresh GitHub identity and fails the test on error.
func createTestAccount(t *testing.T, db *DB, externalID, username string) *model.Account {
	t.Helper()
	res, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: externalID,
		Username:   username,
	})
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return res.Account
}

func TestReconcileCreateAssignsIdentityAndTimestamps(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: "42",
		Username:   "alice",
		AvatarURL:  "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if res.Outcome != identity.OutcomeCreate {
		t.Errorf("Outcome = %q, want create", res.Outcome)
	}
	if res.Account.ID == "" {
		t.Error("Account.ID should be assigned on insert")
	}
	if res.Account.CreatedAt.IsZero() || res.Account.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on insert")
	}

	// Read it back to confirm the row round-trips.
	got, err := db.GetByID(context.Background(), res.Account.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.GitHub == nil || got.GitHub.ExternalID != "42" || got.GitHub.Username != "alice" {
		t.Errorf("GitHub identity = %+v, want externalID 42 / alice", got.GitHub)
	}
	if got.Discord != nil {
		t.Error("Discord identity should be absent")
	}
	if got.WalletAddress != "" {
		t.Error("wallet should be empty on a new account")
	}
}

func TestReconcileSameIdentityTwiceIsOneAccount(t *testing.T) {
	db := newTestDB(t)
	incoming := model.NormalizedIdentity{ExternalID: "42", Username: "alice"}

	first, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, incoming)
	if err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	second, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, incoming)
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if second.Account.ID != first.Account.ID {
		t.Errorf("second reconcile resolved to %q, want %q", second.Account.ID, first.Account.ID)
	}
	if second.Outcome != identity.OutcomeLogin {
		t.Errorf("second Outcome = %q, want login", second.Outcome)
	}
	if second.Account.UpdatedAt.Before(first.Account.UpdatedAt) {
		t.Error("UpdatedAt must be non-decreasing across redelivery")
	}
}

func TestReconcileRefreshUpdatesProfile(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "42", "alice")

	res, err := db.Reconcile(context.Background(), account.ID, model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: "42",
		Username:   "alice-renamed",
		AvatarURL:  "https://avatars.githubusercontent.com/u/42?v=2",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if res.Outcome != identity.OutcomeRefresh {
		t.Errorf("Outcome = %q, want refresh", res.Outcome)
	}
	if res.Account.ID != account.ID {
		t.Errorf("refresh changed the account id: %q → %q", account.ID, res.Account.ID)
	}

	got, _ := db.GetByID(context.Background(), account.ID)
	if got.GitHub.Username != "alice-renamed" {
		t.Errorf("stored username = %q, want refreshed value", got.GitHub.Username)
	}
}

func TestReconcileLinkSecondProvider(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "42", "alice")
	if _, err := db.BindWallet(context.Background(), account.ID, "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"); err != nil {
		t.Fatalf("BindWallet() error = %v", err)
	}

	res, err := db.Reconcile(context.Background(), account.ID, model.ProviderDiscord, model.NormalizedIdentity{
		ExternalID: "99",
		Username:   "alice#1",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if res.Outcome != identity.OutcomeLink {
		t.Errorf("Outcome = %q, want link", res.Outcome)
	}

	got, _ := db.GetByID(context.Background(), account.ID)
	if got.Discord == nil || got.Discord.ExternalID != "99" || got.Discord.Username != "alice#1" {
		t.Errorf("Discord identity = %+v, want externalID 99 / alice#1", got.Discord)
	}
	if got.GitHub == nil || got.GitHub.ExternalID != "42" {
		t.Error("linking must leave the GitHub identity in place")
	}
	if got.WalletAddress != "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T" {
		t.Error("linking must leave the wallet in place")
	}
}

func TestReconcileLoginDisplacesSession(t *testing.T) {
	db := newTestDB(t)
	first := createTestAccount(t, db, "42", "alice")
	second := createTestAccount(t, db, "7", "bob")

	// bob is logged in, then completes a GitHub flow as alice.
	res, err := db.Reconcile(context.Background(), second.ID, model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: "42",
		Username:   "alice",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if res.Outcome != identity.OutcomeLogin {
		t.Errorf("Outcome = %q, want login", res.Outcome)
	}
	if res.Account.ID != first.ID {
		t.Errorf("resolved account = %q, want %q (found-by-external-id wins)", res.Account.ID, first.ID)
	}
	if !res.SessionReplaced {
		t.Error("SessionReplaced should be set")
	}
}

func TestReconcileStaleSessionTreatedAsAnonymous(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Reconcile(context.Background(), "gone-account-id", model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: "42",
		Username:   "alice",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Outcome != identity.OutcomeCreate {
		t.Errorf("Outcome = %q, want create (stale session ignored)", res.Outcome)
	}
}

func TestReconcileUniquenessHolds(t *testing.T) {
	db := newTestDB(t)
	first := createTestAccount(t, db, "42", "alice")

	// A different anonymous visitor presents the same external ID with a
	// different profile; the store must resolve to the same account, never
	// a second row claiming github:42.
	res, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, model.NormalizedIdentity{
		ExternalID: "42",
		Username:   "alice-elsewhere",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Account.ID != first.ID {
		t.Errorf("resolved account = %q, want %q", res.Account.ID, first.ID)
	}
}

func TestReconcileConcurrentCreateRace(t *testing.T) {
	db := newTestDB(t)
	incoming := model.NormalizedIdentity{ExternalID: "42", Username: "alice"}

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := db.Reconcile(context.Background(), "", model.ProviderGitHub, incoming)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = res.Account.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: Reconcile() error = %v", i, err)
		}
	}
	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("caller %d resolved to %q, caller 0 to %q — duplicate account created", i, ids[i], ids[0])
		}
	}
}

func TestBindWallet(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "42", "alice")

	const addr = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	updated, err := db.BindWallet(context.Background(), account.ID, addr)
	if err != nil {
		t.Fatalf("BindWallet() error = %v", err)
	}
	if updated.WalletAddress != addr {
		t.Errorf("WalletAddress = %q, want %q", updated.WalletAddress, addr)
	}
	if updated.UpdatedAt.Before(account.UpdatedAt) {
		t.Error("BindWallet must bump UpdatedAt")
	}

	// Rebinding replaces the previous address; no history is kept.
	const addr2 = "7VfCXTUXw5RJzcxnVsehr8BbVoNEmAnWFzcxnVsehr8B"
	updated, err = db.BindWallet(context.Background(), account.ID, addr2)
	if err != nil {
		t.Fatalf("BindWallet() rebind error = %v", err)
	}
	if updated.WalletAddress != addr2 {
		t.Errorf("WalletAddress after rebind = %q, want %q", updated.WalletAddress, addr2)
	}
}

func TestBindWalletUnknownAccount(t *testing.T) {
	db := newTestDB(t)

	_, err := db.BindWallet(context.Background(), "no-such-id", "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	if err == nil {
		t.Fatal("BindWallet() should fail for an unknown account")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetByID() should fail for a missing account")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
