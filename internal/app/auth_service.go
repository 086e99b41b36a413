package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NatDug/Field-Buddy/internal/repository"
)

const (
	ProviderLocal = "local"
	ProviderDev   = "dev"

	SessionFileName = "session.json"
)

// Identity is what an external sign-in provider vouches for.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Phone      string
	Name       string
	AvatarURL  string
}

type IdentityProvider interface {
	Name() string
	Authenticate(ctx context.Context) (Identity, error)
}

type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStore interface {
	Load() (*Session, error)
	Save(s Session) error
	Clear() error
}

// FileSessionStore keeps the signed-in session as a JSON file readable only
// by its owner. A missing file means nobody is signed in.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (f *FileSessionStore) Load() (*Session, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

func (f *FileSessionStore) Save(s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (f *FileSessionStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type SignUpRequest struct {
	Name  string
	Email string
	Phone string
}

// SignInRequest identifies a user by email or phone plus their name.
type SignInRequest struct {
	Identifier string
	Name       string
}

type AuthService struct {
	users     repository.UserRepository
	sessions  SessionStore
	identity  IdentityProvider
	devBypass bool
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, sessions SessionStore, identity IdentityProvider, devBypass bool, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, sessions: sessions, identity: identity, devBypass: devBypass, logger: logger}
}

// WithIdentity returns a copy of the service that signs in through p.
func (s *AuthService) WithIdentity(p IdentityProvider) *AuthService {
	cp := *s
	cp.identity = p
	return &cp
}

// StaticIdentity is an IdentityProvider that returns an identity already
// verified by an outside flow.
type StaticIdentity struct {
	Identity Identity
}

func (p StaticIdentity) Name() string { return p.Identity.Provider }

func (p StaticIdentity) Authenticate(context.Context) (Identity, error) {
	if p.Identity.Provider == "" || p.Identity.ProviderID == "" {
		return Identity{}, validationf("provider and provider id are required")
	}
	return p.Identity, nil
}

func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*repository.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, validationf("name is required")
	}
	if email == "" && phone == "" {
		return nil, validationf("email or phone is required")
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, validationf("invalid email %q", email)
	}

	if email != "" {
		if err := ensureAbsent(s.users.FindByEmail(ctx, email)); err != nil {
			return nil, fmt.Errorf("sign up: email %s: %w", email, err)
		}
	}
	if phone != "" {
		if err := ensureAbsent(s.users.FindByPhone(ctx, phone)); err != nil {
			return nil, fmt.Errorf("sign up: phone %s: %w", phone, err)
		}
	}

	user := &repository.User{Name: name, Email: email, Phone: phone, Provider: ProviderLocal, Active: true}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.startSession(user); err != nil {
		return nil, err
	}
	return user, nil
}

func ensureAbsent(_ *repository.User, err error) error {
	switch {
	case err == nil:
		return ErrDuplicate
	case isNotFound(err):
		return nil
	default:
		return err
	}
}

func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*repository.User, error) {
	id := strings.TrimSpace(req.Identifier)
	name := strings.TrimSpace(req.Name)
	if id == "" || name == "" {
		return nil, validationf("identifier and name are required")
	}

	var (
		user *repository.User
		err  error
	)
	if strings.Contains(id, "@") {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(id))
	} else {
		user, err = s.users.FindByPhone(ctx, id)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active || !strings.EqualFold(user.Name, name) {
		return nil, ErrInvalidCredentials
	}
	if err := s.startSession(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SignInWithProvider authenticates through the configured identity provider
// and links the identity to an existing user by email, then phone.
func (s *AuthService) SignInWithProvider(ctx context.Context) (*repository.User, error) {
	if s.identity == nil {
		return nil, validationf("no identity provider configured")
	}
	ident, err := s.identity.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign in with %s: %w", s.identity.Name(), err)
	}
	if ident.Provider == "" {
		ident.Provider = s.identity.Name()
	}
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))

	user, err := s.findIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &repository.User{Active: true}
	}
	user.Provider = ident.Provider
	user.ProviderID = ident.ProviderID
	if ident.Email != "" {
		user.Email = ident.Email
	}
	if ident.Phone != "" {
		user.Phone = ident.Phone
	}
	if ident.Name != "" {
		user.Name = ident.Name
	}
	if ident.AvatarURL != "" {
		user.AvatarURL = ident.AvatarURL
	}

	if user.ID == 0 {
		if user.Name == "" {
			user.Name = ident.Provider + " user"
		}
		err = s.users.Create(ctx, user)
	} else {
		err = s.users.Update(ctx, user)
	}
	if err != nil {
		return nil, err
	}
	if err := s.startSession(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) findIdentity(ctx context.Context, ident Identity) (*repository.User, error) {
	if ident.Email != "" {
		user, err := s.users.FindByEmail(ctx, ident.Email)
		if err == nil {
			return user, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	if ident.Phone != "" {
		user, err := s.users.FindByPhone(ctx, ident.Phone)
		if err == nil {
			return user, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *AuthService) SignOut(context.Context) error {
	return s.sessions.Clear()
}

// Current returns the signed-in user. With the dev bypass on and nobody
// signed in it returns an unsaved developer user.
func (s *AuthService) Current(ctx context.Context) (*repository.User, error) {
	session, err := s.sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil {
		if s.devBypass {
			return &repository.User{Name: "Developer", Email: "dev@fieldbuddy.local", Provider: ProviderDev, Active: true}, nil
		}
		return nil, ErrNotSignedIn
	}

	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("session refers to a missing user", "user_id", session.UserID)
			return nil, ErrNotSignedIn
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrNotSignedIn
	}
	return user, nil
}

func (s *AuthService) startSession(user *repository.User) error {
	return s.sessions.Save(Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	})
}
