package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	userColumns    = `id, email, name, profile_image_url, password_hash, created_at, updated_at`
	expenseColumns = `id, user_id, amount::text, description, category, date::text, created_at, updated_at`
)

// Store provides Postgres-backed persistence for users and expenses.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme of the pgx/v5 migrate driver.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpsertUser inserts the identity or refreshes its profile fields.
func (s *Store) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, name, profile_image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			profile_image_url = EXCLUDED.profile_image_url,
			updated_at = NOW()
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, user.ProfileImageURL)
	return scanUser(row)
}

// CreateUser inserts a locally registered user.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, name, profile_image_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, user.ProfileImageURL, user.PasswordHash)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// CreateExpense inserts an expense and returns the stored row.
func (s *Store) CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	const query = `
		INSERT INTO expenses (user_id, amount, description, category, date)
		VALUES ($1, $2::numeric, $3, $4, $5::date)
		RETURNING ` + expenseColumns
	row := s.pool.QueryRow(ctx, query, e.UserID, e.Amount.StringFixed(2), e.Description, e.Category, e.Date.String())
	created, err := scanExpense(row)
	if err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return created, nil
}

// ListExpenses returns the user's expenses matching filter, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID string, filter storage.ExpenseFilter) ([]models.Expense, error) {
	where, args := storage.BuildExpenseWhere(storage.Postgres, userID, filter)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY date DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense applies patch to the owned expense.
func (s *Store) UpdateExpense(ctx context.Context, id int64, userID string, patch models.ExpensePatch) (models.Expense, error) {
	set, setArgs := storage.BuildExpenseSet(storage.Postgres, patch, time.Now().UTC(), 2)
	query := `UPDATE expenses SET ` + set + ` WHERE id = $1 AND user_id = $2 RETURNING ` + expenseColumns

	args := append([]any{id, userID}, setArgs...)
	updated, err := scanExpense(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Expense{}, err
		}
		return models.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	return updated, nil
}

// DeleteExpense removes the owned expense.
func (s *Store) DeleteExpense(ctx context.Context, id int64, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CategoryTotals sums the user's expenses per category, largest first.
func (s *Store) CategoryTotals(ctx context.Context, userID string, dates storage.DateRange) ([]models.CategoryTotal, error) {
	where, args := storage.BuildExpenseWhere(storage.Postgres, userID, storage.ExpenseFilter{DateRange: dates})
	query := `
		SELECT category, SUM(amount)::text, COUNT(*)
		FROM expenses
		WHERE ` + where + `
		GROUP BY category
		ORDER BY SUM(amount) DESC, category`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var (
			t     models.CategoryTotal
			total string
		)
		if err := rows.Scan(&t.Category, &total, &t.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if t.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse category total %q: %w", total, err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// MonthlyStats sums the user's expenses within one calendar month.
func (s *Store) MonthlyStats(ctx context.Context, userID string, year int, month time.Month) (models.MonthlyStats, error) {
	where, args := storage.BuildExpenseWhere(storage.Postgres, userID, storage.ExpenseFilter{DateRange: storage.MonthRange(year, month)})
	query := `SELECT COALESCE(SUM(amount), 0)::text, COUNT(*) FROM expenses WHERE ` + where

	var (
		stats models.MonthlyStats
		total string
	)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total, &stats.ExpenseCount); err != nil {
		return models.MonthlyStats{}, fmt.Errorf("monthly stats: %w", err)
	}
	sum, err := decimal.NewFromString(total)
	if err != nil {
		return models.MonthlyStats{}, fmt.Errorf("parse monthly total %q: %w", total, err)
	}
	stats.TotalExpenses = sum
	stats.TotalIncome = decimal.Zero
	return stats, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.ProfileImageURL, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func scanExpense(row pgx.Row) (models.Expense, error) {
	var (
		e            models.Expense
		amount, date string
	)
	if err := row.Scan(&e.ID, &e.UserID, &amount, &e.Description, &e.Category, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return models.Expense{}, translate(err)
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Expense{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.Date, err = models.ParseDate(date); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrAlreadyExists
	}
	return err
}
