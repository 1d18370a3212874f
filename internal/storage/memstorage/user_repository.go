package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vitoflow/metering-api/internal/domain/user"
	"github.com/vitoflow/metering-api/internal/ierr"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is an in-memory admin account store. The management API
// has exactly the operator accounts configured at startup; tenants never
// appear here.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewUserRepository(adminUser, adminPassword string) (*UserRepository, error) {
	repo := &UserRepository{
		users: make(map[string]*user.User),
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &user.User{
		ID:           uuid.New(),
		Username:     adminUser,
		PasswordHash: string(hashedPassword),
		Role:         "admin",
	}
	repo.users[strings.ToLower(admin.Username)] = admin

	return repo, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
