package repository

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aims-registration-api/internal/models"
	"github.com/noah-isme/aims-registration-api/internal/seed"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

// UserRepository serves the demo roster from memory. Passwords are hashed
// once at construction.
type UserRepository struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

// NewUserRepository hashes every roster password with the given bcrypt cost
// (bcrypt.DefaultCost when zero).
func NewUserRepository(entries []seed.RosterEntry, cost int) (*UserRepository, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	r := &UserRepository{
		byID:    make(map[string]*models.User, len(entries)),
		byEmail: make(map[string]*models.User, len(entries)),
	}
	for _, entry := range entries {
		hash, err := bcrypt.GenerateFromPassword([]byte(entry.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", entry.User.ID, err)
		}
		user := entry.User
		user.PasswordHash = string(hash)
		email := strings.ToLower(user.Email)
		if _, dup := r.byEmail[email]; dup {
			return nil, fmt.Errorf("duplicate roster email %s", user.Email)
		}
		r.byID[user.ID] = &user
		r.byEmail[email] = &user
	}
	return r, nil
}

// FindByEmail looks up a user case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	out := *user
	return &out, nil
}

// FindByID looks up a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	out := *user
	return &out, nil
}
