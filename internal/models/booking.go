// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

type Booking struct { //nolint:govet // fieldalignment not critical for models
	ID        int64     `db:"id" json:"id"`
	TourID    int64     `db:"tour_id" json:"tour"`
	UserID    int64     `db:"user_id" json:"user"`
	Price     float64   `db:"price" json:"price"`
	Paid      bool      `db:"paid" json:"paid"`
	SessionID string    `db:"session_id" json:"sessionId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (b *Booking) Validate() error {
	v := validator{}
	v.check(b.TourID > 0, "tour", "Booking must belong to a tour!")
	v.check(b.UserID > 0, "user", "Booking must belong to a user!")
	v.check(b.Price > 0, "price", "Booking must have a price.")
	return v.err()
}
