package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping test: cannot connect to test database: %v", err)
	}
	if _, err := store.pool.Exec(ctx, "TRUNCATE TABLE expenses, users RESTART IDENTITY CASCADE"); err != nil {
		store.Close()
		t.Skipf("Skipping test: cannot clean database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, id string) models.User {
	t.Helper()
	user, err := store.UpsertUser(context.Background(), models.User{ID: id, Email: id + "@example.com", Name: "Test " + id})
	require.NoError(t, err)
	return user
}

func mustDate(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/db?sslmode=disable", migrateURL("postgres://u:p@localhost:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/db", migrateURL("postgresql://localhost/db"))
	assert.Equal(t, "pgx5://localhost/db", migrateURL("pgx5://localhost/db"))
}

func TestStore_Users(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := seedUser(t, store, "google-123")
	assert.Equal(t, "google-123@example.com", created.Email)

	updated, err := store.UpsertUser(ctx, models.User{ID: "google-123", Email: "new@example.com", Name: "Renamed", ProfileImageURL: "https://img.test/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "https://img.test/a.png", updated.ProfileImageURL)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	_, err = store.CreateUser(ctx, models.User{ID: "local-1", Email: "new@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	found, err := store.FindByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "google-123", found.ID)

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ExpenseLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1")
	seedUser(t, store, "u2")

	for i, tc := range []struct {
		amount   string
		desc     string
		category string
		date     string
	}{
		{"1500.00", "Taxi to work", models.CategoryTransport, "2024-01-05"},
		{"2500.50", "Lunch 100% beef", models.CategoryFood, "2024-01-20"},
		{"800", "Bus", models.CategoryTransport, "2024-02-01"},
	} {
		_, err := store.CreateExpense(ctx, models.Expense{
			UserID:      "u1",
			Amount:      decimal.RequireFromString(tc.amount),
			Description: tc.desc,
			Category:    tc.category,
			Date:        mustDate(t, tc.date),
		})
		require.NoError(t, err, "seed %d", i)
	}
	other, err := store.CreateExpense(ctx, models.Expense{UserID: "u2", Amount: decimal.NewFromInt(10), Description: "Other user", Category: models.CategoryOther, Date: mustDate(t, "2024-01-10")})
	require.NoError(t, err)

	all, err := store.ListExpenses(ctx, "u1", storage.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Bus", all[0].Description)
	assert.Equal(t, "2024-01-05", all[2].Date.String())

	start, end := mustDate(t, "2024-01-01"), mustDate(t, "2024-01-31")
	january, err := store.ListExpenses(ctx, "u1", storage.ExpenseFilter{Search: "100%", DateRange: storage.DateRange{Start: &start, End: &end}})
	require.NoError(t, err)
	require.Len(t, january, 1)
	assert.True(t, january[0].Amount.Equal(decimal.RequireFromString("2500.50")))

	desc := "Taxi home"
	patched, err := store.UpdateExpense(ctx, all[2].ID, "u1", models.ExpensePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Taxi home", patched.Description)
	assert.True(t, patched.Amount.Equal(decimal.RequireFromString("1500")))

	_, err = store.UpdateExpense(ctx, other.ID, "u1", models.ExpensePatch{Description: &desc})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	totals, err := store.CategoryTotals(ctx, "u1", storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, models.CategoryFood, totals[0].Category)
	assert.Equal(t, models.CategoryTransport, totals[1].Category)
	assert.Equal(t, 2, totals[1].Count)
	assert.True(t, totals[1].Total.Equal(decimal.RequireFromString("2300")))

	stats, err := store.MonthlyStats(ctx, "u1", 2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ExpenseCount)
	assert.True(t, stats.TotalExpenses.Equal(decimal.RequireFromString("4000.50")))
	assert.True(t, stats.TotalIncome.IsZero())

	empty, err := store.MonthlyStats(ctx, "u1", 2023, time.December)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.ExpenseCount)
	assert.True(t, empty.TotalExpenses.IsZero())

	assert.ErrorIs(t, store.DeleteExpense(ctx, other.ID, "u1"), storage.ErrNotFound)
	require.NoError(t, store.DeleteExpense(ctx, other.ID, "u2"))
	assert.ErrorIs(t, store.DeleteExpense(ctx, other.ID, "u2"), storage.ErrNotFound)
}
