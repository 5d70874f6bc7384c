package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"collegeerp/internal/directory"
)

// Key is the well-known name the authenticated user is stored under: the
// cookie name and the prefix of every stored session.
const Key = "currentUser"

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// secret so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession means the caller is anonymous.
	ErrNoSession = errors.New("no session")
)

// State is where a caller sits in the session lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "AUTHENTICATED"
	}
	return "ANONYMOUS"
}

// Session is an authenticated user's context. The user record never carries
// a secret.
type Session struct {
	ID        string         `json:"id"`
	User      directory.User `json:"user"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Store keeps sessions between requests.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Resolver checks login claims against the directory and manages the
// session lifecycle.
type Resolver struct {
	dir     *directory.Directory
	secrets map[string]string
	store   Store
	now     func() time.Time
}

// NewResolver builds a resolver over the directory and its credentials.
func NewResolver(dir *directory.Directory, creds []directory.Credential, store Store) *Resolver {
	secrets := make(map[string]string, len(creds))
	for _, c := range creds {
		secrets[c.UserID] = c.Secret
	}
	return &Resolver{dir: dir, secrets: secrets, store: store, now: time.Now}
}

// Authenticate matches the email case-insensitively and the secret exactly.
func (r *Resolver) Authenticate(identifier, secret string) (directory.User, error) {
	u, ok := r.dir.UserByEmail(identifier)
	if !ok {
		return directory.User{}, ErrInvalidCredentials
	}
	stored, ok := r.secrets[u.ID]
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return directory.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and opens a session for the user.
func (r *Resolver) Login(ctx context.Context, identifier, secret string) (Session, error) {
	u, err := r.Authenticate(identifier, secret)
	if err != nil {
		return Session{}, err
	}
	s := Session{ID: uuid.NewString(), User: u, CreatedAt: r.now().UTC()}
	if err := r.store.Save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// Current returns the live session for id or ErrNoSession.
func (r *Resolver) Current(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	return r.store.Load(ctx, id)
}

// State reports whether id names a live session.
func (r *Resolver) State(ctx context.Context, id string) State {
	if _, err := r.Current(ctx, id); err != nil {
		return Anonymous
	}
	return Authenticated
}

// Logout destroys the session. Unknown ids are not an error.
func (r *Resolver) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return r.store.Delete(ctx, id)
}
