// Package auth handles accounts, password login, cookie sessions, Google
// sign-in and project membership checks.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/internal/validate"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// CookieName is the session cookie set on login.
const CookieName = "tnr_session"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Service authenticates users against the store.
type Service struct {
	store      *store.Backend
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewService returns a Service issuing sessions valid for ttl.
func NewService(b *store.Backend, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		store:      b,
		ttl:        ttl,
		bcryptCost: bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

// Register creates a password account and returns it. Every field problem
// is reported at once.
func (s *Service) Register(ctx context.Context, email, password, name string) (*types.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	var v validate.Errors
	v.Check(email != "", "email is required")
	v.Check(email == "" || validEmail(email), "email %q is not valid", email)
	v.Check(len(password) >= MinPasswordLength, "password must have at least %d characters", MinPasswordLength)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &types.User{Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	log.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login checks a password and opens a session. Unknown emails and wrong
// passwords both yield ErrBadCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	u, err := s.store.Users().GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, types.ErrNotFound) {
		return nil, "", types.ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", types.ErrBadCredentials
	}
	token, err := s.StartSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// StartSession issues a new random token for userID. Only its hash is
// stored.
func (s *Service) StartSession(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	sess := &types.Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Logout ends the session of token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Sessions().Delete(ctx, HashToken(token))
}

// UserForToken resolves a session token. Missing, unknown and expired
// tokens yield ErrUnauthenticated; expired sessions are removed.
func (s *Service) UserForToken(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, types.ErrUnauthenticated
	}
	hash := HashToken(token)
	sess, err := s.store.Sessions().Get(ctx, hash)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.Sessions().Delete(ctx, hash); err != nil {
			log.WithError(err).Warn("dropping expired session")
		}
		return nil, types.ErrUnauthenticated
	}
	u, err := s.store.Users().Get(ctx, sess.UserID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.ErrUnauthenticated
	}
	return u, err
}

// PurgeExpired removes expired sessions and returns how many were dropped.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Sessions().DeleteExpired(ctx, s.now())
}

// RequireMembership returns ErrForbidden unless userID belongs to
// projectID.
func (s *Service) RequireMembership(ctx context.Context, projectID, userID int64) error {
	ok, err := s.store.Projects().IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrForbidden
	}
	return nil
}

// SignInGoogle links a verified Google identity to a user: first by
// subject, then by email, otherwise by creating a passwordless account.
func (s *Service) SignInGoogle(ctx context.Context, subject, email, name string) (*types.User, error) {
	u, err := s.store.Users().GetByGoogleSubject(ctx, subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	email = NormalizeEmail(email)
	u, err = s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.store.Users().LinkGoogle(ctx, u.ID, subject); err != nil {
			return nil, err
		}
		u.GoogleSubject = subject
		return u, nil
	case !errors.Is(err, types.ErrNotFound):
		return nil, err
	}

	u = &types.User{Email: email, Name: strings.TrimSpace(name), GoogleSubject: subject}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	log.WithField("user_id", u.ID).Info("user created from google sign-in")
	return u, nil
}

// HashToken returns the hex SHA-256 of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionCookie builds the cookie carrying token.
func (s *Service) SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.ttl),
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds a cookie that removes the session cookie.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest returns the session token of r, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
