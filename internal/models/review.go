// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

type Review struct { //nolint:govet // fieldalignment not critical for models
	ID        int64     `db:"id" json:"id"`
	Review    string    `db:"review" json:"review"`
	Rating    int       `db:"rating" json:"rating"`
	TourID    int64     `db:"tour_id" json:"tour"`
	UserID    int64     `db:"user_id" json:"user"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Populated by joins for display.
	UserName  string `db:"user_name" json:"userName,omitempty"`
	UserPhoto string `db:"user_photo" json:"userPhoto,omitempty"`
}

func (r *Review) Validate() error {
	v := validator{}
	v.check(strings.TrimSpace(r.Review) != "", "review", "Review can not be empty!")
	v.check(r.Rating >= 1 && r.Rating <= 5, "rating", "Rating must be between 1 and 5")
	v.check(r.TourID > 0, "tour", "Review must belong to a tour.")
	v.check(r.UserID > 0, "user", "Review must belong to a user")
	return v.err()
}
