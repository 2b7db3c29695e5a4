package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout sorts lexicographically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

const (
	userColumns    = `id, email, name, profile_image_url, password_hash, created_at, updated_at`
	expenseColumns = `id, user_id, amount, description, category, date, created_at, updated_at`
)

// Store provides SQLite-backed persistence for local development and tests.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the database at path (":memory:" is accepted) and applies
// pending migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// runMigrations applies the embedded migrations on db. The migrate instance is
// not closed because that would close db as well.
func runMigrations(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpsertUser inserts the identity or refreshes its profile fields.
func (s *Store) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, name, profile_image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			profile_image_url = excluded.profile_image_url,
			updated_at = excluded.updated_at
		RETURNING ` + userColumns
	now := s.timestamp()
	row := s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.ProfileImageURL, now, now)
	return scanUser(row)
}

// CreateUser inserts a locally registered user.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, name, profile_image_url, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + userColumns
	now := s.timestamp()
	row := s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.ProfileImageURL, user.PasswordHash, now, now)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// CreateExpense inserts an expense and returns the stored row.
func (s *Store) CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	const query = `
		INSERT INTO expenses (user_id, amount, description, category, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + expenseColumns
	now := s.timestamp()
	row := s.db.QueryRowContext(ctx, query, e.UserID, storage.ToCents(e.Amount), e.Description, e.Category, e.Date.String(), now, now)
	created, err := scanExpense(row)
	if err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return created, nil
}

// ListExpenses returns the user's expenses matching filter, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID string, filter storage.ExpenseFilter) ([]models.Expense, error) {
	where, args := storage.BuildExpenseWhere(storage.SQLite, userID, filter)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	set, args := storage.BuildExpenseSet(storage.SQLite, patch, s.timestamp(), 0)
	query := `UPDATE expenses SET ` + set + ` WHERE id = ? AND user_id = ? RETURNING ` + expenseColumns

	args = append(args, id, userID)
	updated, err := scanExpense(s.db.QueryRowContext(ctx, query, args...))
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CategoryTotals sums the user's expenses per category, largest first.
func (s *Store) CategoryTotals(ctx context.Context, userID string, dates storage.DateRange) ([]models.CategoryTotal, error) {
	where, args := storage.BuildExpenseWhere(storage.SQLite, userID, storage.ExpenseFilter{DateRange: dates})
	query := `
		SELECT category, SUM(amount), COUNT(*)
		FROM expenses
		WHERE ` + where + `
		GROUP BY category
		ORDER BY SUM(amount) DESC, category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var (
			t     models.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&t.Category, &cents, &t.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		t.Total = storage.FromCents(cents)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// MonthlyStats sums the user's expenses within one calendar month.
func (s *Store) MonthlyStats(ctx context.Context, userID string, year int, month time.Month) (models.MonthlyStats, error) {
	where, args := storage.BuildExpenseWhere(storage.SQLite, userID, storage.ExpenseFilter{DateRange: storage.MonthRange(year, month)})
	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM expenses WHERE ` + where

	var (
		stats models.MonthlyStats
		cents int64
	)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&cents, &stats.ExpenseCount); err != nil {
		return models.MonthlyStats{}, fmt.Errorf("monthly stats: %w", err)
	}
	stats.TotalExpenses = storage.FromCents(cents)
	stats.TotalIncome = storage.FromCents(0)
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var (
		user             models.User
		created, updated string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.ProfileImageURL, &user.PasswordHash, &created, &updated); err != nil {
		return models.User{}, translate(err)
	}
	var err error
	if user.CreatedAt, err = parseTime(created); err != nil {
		return models.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updated); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func scanExpense(row scanner) (models.Expense, error) {
	var (
		e                      models.Expense
		cents                  int64
		date, created, updated string
	)
	if err := row.Scan(&e.ID, &e.UserID, &cents, &e.Description, &e.Category, &date, &created, &updated); err != nil {
		return models.Expense{}, translate(err)
	}
	e.Amount = storage.FromCents(cents)
	var err error
	if e.Date, err = models.ParseDate(date); err != nil {
		return models.Expense{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return models.Expense{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return storage.ErrAlreadyExists
		}
	}
	return err
}
