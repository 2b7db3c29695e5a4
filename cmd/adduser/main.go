// Command adduser creates a local password account in the configured store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/backend"
	"github.com/hongminglow/expense-tracker-be/internal/config"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
	"github.com/hongminglow/expense-tracker-be/internal/storage/sqlite"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "email address of the new user (required)")
	name := fs.String("name", "", "display name (defaults to the part before @)")
	password := fs.String("password", "", "password; prompted for when omitted")
	dbPath := fs.String("db", "", "SQLite database path; overrides the configured backend")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	addr := auth.NormalizeEmail(*email)
	if addr == "" {
		fmt.Fprintln(stderr, "adduser: -email is required")
		fs.Usage()
		return 2
	}
	if err := auth.ValidateEmail(addr); err != nil {
		fmt.Fprintf(stderr, "adduser: %v\n", err)
		return 2
	}

	displayName := strings.TrimSpace(*name)
	if displayName == "" {
		displayName, _, _ = strings.Cut(addr, "@")
	}

	pass := *password
	if pass == "" {
		var err error
		if pass, err = readPassword(stdin, stderr); err != nil {
			fmt.Fprintf(stderr, "adduser: read password: %v\n", err)
			return 1
		}
	}
	if err := auth.ValidatePassword(pass); err != nil {
		fmt.Fprintf(stderr, "adduser: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "adduser: %v\n", err)
		return 1
	}
	defer store.Close()

	hash, err := auth.HashPassword(pass)
	if err != nil {
		fmt.Fprintf(stderr, "adduser: hash password: %v\n", err)
		return 1
	}

	user, err := store.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Email:        addr,
		Name:         displayName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fmt.Fprintf(stderr, "adduser: a user with email %s already exists\n", addr)
			return 1
		}
		fmt.Fprintf(stderr, "adduser: create user: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "created user %s (%s)\n", user.Email, user.ID)
	return 0
}

func openStore(ctx context.Context, dbPath string) (storage.Store, error) {
	if dbPath != "" {
		store, err := sqlite.NewStore(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, cfg, log.Discard())
}

// readPassword prompts without echo on a terminal and otherwise reads one line,
// which lets scripts pipe the password in.
func readPassword(stdin io.Reader, prompt io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Repeat password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
