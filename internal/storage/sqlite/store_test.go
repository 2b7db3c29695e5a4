package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// StoreTestSuite exercises the SQLite store against an in-memory database.
type StoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	clock time.Time
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := NewStore(s.ctx, ":memory:")
	s.Require().NoError(err, "failed to create test database")

	s.clock = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	}
	s.store = store

	for _, id := range []string{"u1", "u2"} {
		_, err := s.store.UpsertUser(s.ctx, models.User{ID: id, Email: id + "@example.com", Name: "User " + id})
		s.Require().NoError(err)
	}
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreTestSuite) date(v string) models.Date {
	d, err := models.ParseDate(v)
	s.Require().NoError(err)
	return d
}

func (s *StoreTestSuite) addExpense(userID, amount, desc, category, date string) models.Expense {
	e, err := s.store.CreateExpense(s.ctx, models.Expense{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Category:    category,
		Date:        s.date(date),
	})
	s.Require().NoError(err, "failed to create expense: %s", desc)
	return e
}

func (s *StoreTestSuite) TestUpsertUserRefreshesProfile() {
	before, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)

	after, err := s.store.UpsertUser(s.ctx, models.User{ID: "u1", Email: "u1@example.com", Name: "Renamed", ProfileImageURL: "https://img.test/p.png"})
	s.Require().NoError(err)

	s.Equal("Renamed", after.Name)
	s.Equal("https://img.test/p.png", after.ProfileImageURL)
	s.Equal(before.CreatedAt, after.CreatedAt)
	s.True(after.UpdatedAt.After(before.UpdatedAt))
}

func (s *StoreTestSuite) TestCreateUserDuplicateEmail() {
	_, err := s.store.CreateUser(s.ctx, models.User{ID: "local-1", Email: "u1@example.com", PasswordHash: "hash"})
	s.ErrorIs(err, storage.ErrAlreadyExists)

	created, err := s.store.CreateUser(s.ctx, models.User{ID: "local-2", Email: "fresh@example.com", Name: "Fresh", PasswordHash: "hash"})
	s.Require().NoError(err)
	s.Equal("hash", created.PasswordHash)

	found, err := s.store.FindByEmail(s.ctx, "fresh@example.com")
	s.Require().NoError(err)
	s.Equal("local-2", found.ID)

	_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreTestSuite) TestCreateExpenseRoundTrip() {
	e := s.addExpense("u1", "1234.56", "Groceries", models.CategoryShopping, "2024-02-29")

	s.NotZero(e.ID)
	s.Equal("u1", e.UserID)
	s.True(e.Amount.Equal(decimal.RequireFromString("1234.56")))
	s.Equal("2024-02-29", e.Date.String())
	s.False(e.CreatedAt.IsZero())
	s.Equal(e.CreatedAt, e.UpdatedAt)
}

func (s *StoreTestSuite) TestListExpensesOrderAndOwnership() {
	s.addExpense("u1", "10", "Older", models.CategoryFood, "2024-01-01")
	s.addExpense("u1", "20", "Same day first", models.CategoryFood, "2024-01-05")
	s.addExpense("u1", "30", "Same day second", models.CategoryFood, "2024-01-05")
	s.addExpense("u2", "40", "Not mine", models.CategoryFood, "2024-01-06")

	list, err := s.store.ListExpenses(s.ctx, "u1", storage.ExpenseFilter{})
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("Same day second", list[0].Description)
	s.Equal("Same day first", list[1].Description)
	s.Equal("Older", list[2].Description)
}

func (s *StoreTestSuite) TestListExpensesFilters() {
	s.addExpense("u1", "1500", "Taxi to office", models.CategoryTransport, "2024-01-03")
	s.addExpense("u1", "2500", "LUNCH with team", models.CategoryFood, "2024-01-15")
	s.addExpense("u1", "900", "Bus_fare", models.CategoryTransport, "2024-02-02")
	s.addExpense("u1", "300", "Busy snack", models.CategoryFood, "2024-02-10")
	s.addExpense("u1", "450", "Café au lait", models.CategoryFood, "2023-12-20")

	start, end := s.date("2024-01-01"), s.date("2024-01-31")

	tests := []struct {
		name   string
		filter storage.ExpenseFilter
		want   []string
	}{
		{"category", storage.ExpenseFilter{Category: models.CategoryTransport}, []string{"Bus_fare", "Taxi to office"}},
		{"category all", storage.ExpenseFilter{Category: "all"}, []string{"Busy snack", "Bus_fare", "LUNCH with team", "Taxi to office", "Café au lait"}},
		{"search is case-insensitive", storage.ExpenseFilter{Search: "lunch"}, []string{"LUNCH with team"}},
		{"search folds non-ascii case", storage.ExpenseFilter{Search: "CAFÉ"}, []string{"Café au lait"}},
		{"underscore is literal", storage.ExpenseFilter{Search: "_"}, []string{"Bus_fare"}},
		{"inclusive range", storage.ExpenseFilter{DateRange: storage.DateRange{Start: &start, End: &end}}, []string{"LUNCH with team", "Taxi to office"}},
		{"open start", storage.ExpenseFilter{DateRange: storage.DateRange{End: &start}}, []string{"Café au lait"}},
		{"combined", storage.ExpenseFilter{Category: models.CategoryFood, Search: "bus"}, []string{"Busy snack"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			list, err := s.store.ListExpenses(s.ctx, "u1", tt.filter)
			s.Require().NoError(err)
			got := make([]string, 0, len(list))
			for _, e := range list {
				got = append(got, e.Description)
			}
			s.Equal(tt.want, got)
		})
	}
}

func (s *StoreTestSuite) TestUpdateExpensePartial() {
	e := s.addExpense("u1", "100", "Coffee", models.CategoryFood, "2024-03-01")

	amount := decimal.RequireFromString("120.5")
	updated, err := s.store.UpdateExpense(s.ctx, e.ID, "u1", models.ExpensePatch{Amount: &amount})
	s.Require().NoError(err)
	s.True(updated.Amount.Equal(amount))
	s.Equal("Coffee", updated.Description)
	s.Equal("2024-03-01", updated.Date.String())
	s.True(updated.UpdatedAt.After(e.UpdatedAt))

	touched, err := s.store.UpdateExpense(s.ctx, e.ID, "u1", models.ExpensePatch{})
	s.Require().NoError(err)
	s.True(touched.UpdatedAt.After(updated.UpdatedAt))

	desc := "Stolen"
	_, err = s.store.UpdateExpense(s.ctx, e.ID, "u2", models.ExpensePatch{Description: &desc})
	s.ErrorIs(err, storage.ErrNotFound)

	_, err = s.store.UpdateExpense(s.ctx, 9999, "u1", models.ExpensePatch{Description: &desc})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreTestSuite) TestDeleteExpense() {
	e := s.addExpense("u1", "100", "Coffee", models.CategoryFood, "2024-03-01")

	s.ErrorIs(s.store.DeleteExpense(s.ctx, e.ID, "u2"), storage.ErrNotFound)
	s.Require().NoError(s.store.DeleteExpense(s.ctx, e.ID, "u1"))
	s.ErrorIs(s.store.DeleteExpense(s.ctx, e.ID, "u1"), storage.ErrNotFound)
}

func (s *StoreTestSuite) TestCategoryTotals() {
	s.addExpense("u1", "1500.25", "Taxi", models.CategoryTransport, "2024-01-03")
	s.addExpense("u1", "500", "Bus", models.CategoryTransport, "2024-01-04")
	s.addExpense("u1", "3000", "Dinner", models.CategoryFood, "2024-01-15")
	s.addExpense("u1", "100", "Pen", models.CategoryEducation, "2024-02-01")
	s.addExpense("u2", "99999", "Not mine", models.CategoryHealth, "2024-01-10")

	totals, err := s.store.CategoryTotals(s.ctx, "u1", storage.DateRange{})
	s.Require().NoError(err)
	s.Require().Len(totals, 3)
	s.Equal(models.CategoryFood, totals[0].Category)
	s.Equal(models.CategoryTransport, totals[1].Category)
	s.Equal(2, totals[1].Count)
	s.Equal("2000.25", totals[1].Total.StringFixed(2))
	s.Equal(models.CategoryEducation, totals[2].Category)

	january := storage.MonthRange(2024, time.January)
	totals, err = s.store.CategoryTotals(s.ctx, "u1", january)
	s.Require().NoError(err)
	s.Len(totals, 2)
}

func (s *StoreTestSuite) TestMonthlyStats() {
	s.addExpense("u1", "10.10", "A", models.CategoryOther, "2024-02-01")
	s.addExpense("u1", "20.20", "B", models.CategoryOther, "2024-02-29")
	s.addExpense("u1", "30", "C", models.CategoryOther, "2024-03-01")

	stats, err := s.store.MonthlyStats(s.ctx, "u1", 2024, time.February)
	s.Require().NoError(err)
	s.Equal(2, stats.ExpenseCount)
	s.Equal("30.30", stats.TotalExpenses.StringFixed(2))
	s.True(stats.TotalIncome.IsZero())

	empty, err := s.store.MonthlyStats(s.ctx, "u2", 2024, time.February)
	s.Require().NoError(err)
	s.Equal(0, empty.ExpenseCount)
	s.True(empty.TotalExpenses.IsZero())
}

func TestNewStoreCreatesFileAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")
	ctx := context.Background()

	store, err := NewStore(ctx, path)
	require.NoError(t, err)
	_, err = store.UpsertUser(ctx, models.User{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	user, err := reopened.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1@example.com", user.Email)
}
