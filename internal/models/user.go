// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"net/mail"
	"strings"
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultPhoto is assigned to users without an uploaded photo.
const DefaultPhoto = "default.jpg"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

type User struct { //nolint:govet // fieldalignment not critical for models
	ID                   int64      `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	Photo                string     `db:"photo" json:"photo"`
	Role                 Role       `db:"role" json:"role"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	PasswordChangedAt    *time.Time `db:"password_changed_at" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	Active               bool       `db:"active" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

// FirstName returns the first word of the user's name.
func (u *User) FirstName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(u.Name), " ")
	return first
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issue time. Both sides are compared at second precision.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// Validate checks the profile fields of a user.
func (u *User) Validate() error {
	v := validator{}
	v.check(strings.TrimSpace(u.Name) != "", "name", "Please tell us your name")
	v.check(u.Email != "", "email", "Please provide your email")
	if u.Email != "" {
		v.check(ValidEmail(u.Email), "email", "Please provide a valid email")
	}
	v.check(u.Role == "" || u.Role.Valid(), "role", "Role is either: user, guide, lead-guide, admin")
	return v.err()
}

// ValidEmail reports whether s is a bare email address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
