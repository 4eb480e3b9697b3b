package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// UserRepository stores users keyed by email. Writes replace the whole record.
type UserRepository struct {
	kv ports.KVStore
}

// NewUserRepository wraps the user namespace of the key-value store.
func NewUserRepository(kv ports.KVStore) *UserRepository {
	return &UserRepository{kv: kv}
}

// Put overwrites the user record.
func (r *UserRepository) Put(ctx context.Context, user domain.User) error {
	if user.Email == "" {
		return fmt.Errorf("user email is required: %w", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.kv.Put(ctx, user.Email, payload, 0); err != nil {
		return fmt.Errorf("store user %s: %w", user.Email, err)
	}
	return nil
}

// Get loads a user or reports domain.ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, email string) (domain.User, error) {
	raw, err := r.kv.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return domain.User{}, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("load user %s: %w", email, err)
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", email, err)
	}
	if user.Email == "" {
		user.Email = email
	}
	return user, nil
}

// List returns every stored user in key order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	keys, err := r.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(keys))
	for _, key := range keys {
		user, err := r.Get(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
