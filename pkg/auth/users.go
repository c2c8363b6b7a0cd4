package auth

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-50 alphanumeric characters")
	ErrInvalidHash        = errors.New("password hash is not a bcrypt hash")
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	DefaultBcryptCost = 12
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User is an account allowed to call the model store.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// UserStore holds accounts in memory. Accounts are normally seeded from
// configuration at startup.
type UserStore struct {
	mu          sync.RWMutex
	users       map[string]*User
	usernameMap map[string]string
	cost        int
}

// NewUserStore creates an empty store hashing passwords with the given bcrypt
// cost. A cost of zero selects DefaultBcryptCost.
func NewUserStore(cost int) *UserStore {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &UserStore{
		users:       make(map[string]*User),
		usernameMap: make(map[string]string),
		cost:        cost,
	}
}

// CreateUser hashes password and stores a new account.
func (s *UserStore) CreateUser(username, password, role string) (*User, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.AddUser(username, string(hash), role)
}

// AddUser stores an account whose password is already bcrypt-hashed.
func (s *UserStore) AddUser(username, passwordHash, role string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrInvalidHash, username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usernameMap[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}
	s.users[user.ID] = user
	s.usernameMap[username] = user.ID
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *UserStore) GetUserByUsername(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernameMap[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return s.users[id], nil
}

// Authenticate returns the user when password matches. Unknown users and wrong
// passwords both report ErrInvalidCredentials.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ListUsers returns all accounts ordered by username.
func (s *UserStore) ListUsers() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b *User) int { return strings.Compare(a.Username, b.Username) })
	return users
}

// HashPassword returns the bcrypt hash of password, for writing into
// configuration.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}
