package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/middleware"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/models/dto"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

const (
	stateCookie    = "oauth_state"
	stateCookieTTL = 10 * time.Minute
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(user models.User) (string, error)
	TTL() time.Duration
}

// AuthHandler owns local register/login, the external login flow and sessions.
type AuthHandler struct {
	store        storage.UserStore
	tokens       TokenIssuer
	provider     auth.IdentityProvider
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler constructs the handler. provider may be nil when no external
// identity provider is configured.
func NewAuthHandler(store storage.UserStore, tokens TokenIssuer, provider auth.IdentityProvider, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:        store,
		tokens:       tokens,
		provider:     provider,
		cookieSecure: cookieSecure,
		logger:       log.Component(logger, log.ComponentAuth),
	}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/login", h.handleProviderLogin)
	mux.HandleFunc("GET /api/callback", h.handleCallback)
	mux.HandleFunc("GET /api/logout", h.handleLogout)
	mux.HandleFunc("POST /api/logout", h.handleLogout)
	mux.Handle("GET /api/auth/user", protect(http.HandlerFunc(h.handleCurrentUser)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email, err := validateRegistration(req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	created, err := h.store.CreateUser(r.Context(), models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "user already exists")
			return
		}
		writeError(w, r, h.logger, err, "failed to create user")
		return
	}

	respond.JSON(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, h.logger, err, "failed to fetch user")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, ok := h.startSession(w, r, user)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respond.Error(w, http.StatusNotFound, "external login is not configured")
		return
	}
	state, err := auth.NewState()
	if err != nil {
		writeError(w, r, h.logger, err, "failed to start login")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/callback",
		MaxAge:   int(stateCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respond.Error(w, http.StatusNotFound, "external login is not configured")
		return
	}
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		respond.Error(w, http.StatusBadRequest, "login was not completed: "+reason)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		respond.Error(w, http.StatusBadRequest, "invalid login state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/callback", MaxAge: -1, HttpOnly: true, Secure: h.cookieSecure})

	code := q.Get("code")
	if code == "" {
		respond.Error(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	identity, err := h.provider.Exchange(ctx, code)
	if err != nil {
		log.FromContext(r.Context(), h.logger).WarnContext(r.Context(), "identity provider exchange failed", log.FieldError, err)
		respond.Error(w, http.StatusBadGateway, "failed to complete login")
		return
	}

	user, err := h.store.UpsertUser(r.Context(), models.User{
		ID:              identity.Subject,
		Email:           auth.NormalizeEmail(identity.Email),
		Name:            identity.Name,
		ProfileImageURL: identity.Picture,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "email is already registered with a password")
			return
		}
		writeError(w, r, h.logger, err, "failed to save user")
		return
	}

	if _, ok := h.startSession(w, r, user); !ok {
		return
	}
	log.FromContext(r.Context(), h.logger).InfoContext(r.Context(), "external login completed", log.FieldUserID, user.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout clears the session. Browser navigations (GET) are sent home.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	respond.JSON(w, http.StatusOK, "logged out", dto.DeleteResponse{Success: true})
}

func (h *AuthHandler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, h.logger, err, "failed to fetch user")
		return
	}
	respond.JSON(w, http.StatusOK, "user retrieved", user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User) (string, bool) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		writeError(w, r, h.logger, err, "failed to generate token")
		return "", false
	}
	ttl := h.tokens.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, true
}

func validateRegistration(req dto.RegisterRequest) (string, error) {
	email := auth.NormalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return "", errors.New("email and name are required")
	}
	if err := auth.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return "", err
	}
	return email, nil
}
