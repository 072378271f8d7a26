package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mic-e/abrechnung/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user row and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	id := uuid.New()

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, username, email) VALUES ($1, $2, $3)`,
		id, "testuser-"+suffix, "testuser-"+suffix+"@example.com",
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}

	return id
}

// SeedGroup creates a group owned by ownerID, with ownerID as a writing
// member. Returns a filled domain.Group.
func SeedGroup(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID) domain.Group {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	group := domain.Group{
		ID:             uuid.New(),
		Name:           "Test Group " + suffix,
		CurrencySymbol: "EUR",
		CreatedBy:      ownerID,
		CreatedAt:      now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO groups (id, name, currency_symbol, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.CurrencySymbol, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGroup insert group: %v", err)
	}

	SeedMembership(t, pool, group.ID, ownerID, true, true)

	return group
}

// SeedMembership adds a user to a group with the given permissions.
func SeedMembership(t *testing.T, pool *pgxpool.Pool, groupID, userID uuid.UUID, isOwner, canWrite bool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, is_owner, can_write)
		 VALUES ($1, $2, $3, $4)`,
		groupID, userID, isOwner, canWrite,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedMembership insert group_member: %v", err)
	}
}

// SeedAccount creates an account in the group and returns it.
func SeedAccount(t *testing.T, pool *pgxpool.Pool, groupID uuid.UUID) domain.Account {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	account := domain.Account{
		ID:      uuid.New(),
		GroupID: groupID,
		Name:    "Account " + suffix,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO accounts (id, group_id, name) VALUES ($1, $2, $3)`,
		account.ID, account.GroupID, account.Name,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedAccount insert account: %v", err)
	}

	return account
}
