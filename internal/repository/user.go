// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/tourbook/tourbook/internal/models"
)

const userColumns = `id, name, email, photo, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires, active, created_at`

var userFields = columnSet{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

// CreateUser inserts a new user and fills in its ID and creation time.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Photo == "" {
		user.Photo = models.DefaultPhoto
	}
	user.Active = true
	user.CreatedAt = r.timestamp()

	id, err := insert(ctx, r.db,
		`INSERT INTO users (name, email, photo, role, password_hash, password_changed_at, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.Photo, string(user.Role), user.PasswordHash, user.PasswordChangedAt, user.Active, user.CreatedAt)
	if err != nil {
		return wrapWriteError(err, map[string]any{"email": user.Email})
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves an active user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ? AND active`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an active user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ? AND active`)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByResetToken retrieves the active user holding the hashed reset token.
// Expiry is left to the caller.
func (r *Repository) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE password_reset_token = ? AND active`)
	if err := r.db.GetContext(ctx, &user, query, tokenHash); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// ListUsers returns active users.
func (r *Repository) ListUsers(ctx context.Context, p ListParams) ([]models.User, error) {
	clauses, args := userFields.build(p, "created_at DESC", []string{"active"})
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(`SELECT `+userColumns+` FROM users`+clauses), args...); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of active users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE active`); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateUser saves the profile fields of a user. Password fields are not touched.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET name = ?, email = ?, photo = ?, role = ? WHERE id = ? AND active`),
		user.Name, user.Email, user.Photo, string(user.Role), user.ID)
	if err != nil {
		return wrapWriteError(err, map[string]any{"email": user.Email})
	}
	return requireAffected(res, nil)
}

// UpdateUserPassword stores a new password hash, records the change time and
// clears any pending reset token.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	changedAt = changedAt.UTC()
	return requireAffected(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET password_hash = ?, password_changed_at = ?,
			password_reset_token = NULL, password_reset_expires = NULL WHERE id = ?`),
		passwordHash, changedAt, id))
}

// SetPasswordResetToken stores a hashed reset token with its expiry.
func (r *Repository) SetPasswordResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	expires = expires.UTC()
	return requireAffected(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET password_reset_token = ?, password_reset_expires = ? WHERE id = ?`),
		tokenHash, expires, id))
}

// ClearPasswordResetToken removes any pending reset token.
func (r *Repository) ClearPasswordResetToken(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = ?`), id))
}

// DeactivateUser marks a user inactive. Inactive users are invisible to lookups.
func (r *Repository) DeactivateUser(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET active = ? WHERE id = ? AND active`), false, id))
}

// DeleteUser deletes a user by their ID
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id))
}

// CountAdmins returns the number of active admin users
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ? AND active`)
	if err := r.db.GetContext(ctx, &count, query, string(models.RoleAdmin)); err != nil {
		return 0, err
	}
	return count, nil
}
