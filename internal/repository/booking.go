// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/tourbook/tourbook/internal/models"
)

const bookingColumns = `id, tour_id, user_id, price, paid, session_id, created_at`

var bookingFields = columnSet{
	"id":        "id",
	"tour":      "tour_id",
	"user":      "user_id",
	"price":     "price",
	"paid":      "paid",
	"createdAt": "created_at",
}

// CreateBooking inserts a booking.
func (r *Repository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.CreatedAt = r.timestamp()
	id, err := insert(ctx, r.db,
		`INSERT INTO bookings (tour_id, user_id, price, paid, session_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		booking.TourID, booking.UserID, booking.Price, booking.Paid, booking.SessionID, booking.CreatedAt)
	if err != nil {
		return wrapWriteError(err, nil)
	}
	booking.ID = id
	return nil
}

// GetBookingByID retrieves a booking by ID.
func (r *Repository) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	query := r.db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`)
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, wrapError(err)
	}
	return &booking, nil
}

// ListBookings returns bookings matching p.
func (r *Repository) ListBookings(ctx context.Context, p ListParams) ([]models.Booking, error) {
	clauses, args := bookingFields.build(p, "created_at DESC", nil)
	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(`SELECT `+bookingColumns+` FROM bookings`+clauses), args...); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBooking saves the price and paid flag of a booking.
func (r *Repository) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	return requireAffected(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE bookings SET price = ?, paid = ? WHERE id = ?`),
		booking.Price, booking.Paid, booking.ID))
}

// DeleteBooking deletes a booking by ID.
func (r *Repository) DeleteBooking(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM bookings WHERE id = ?`), id))
}

// ListBookedTours returns the tours a user has booked.
func (r *Repository) ListBookedTours(ctx context.Context, userID int64) ([]models.Tour, error) {
	tours := []models.Tour{}
	query := r.db.Rebind(`SELECT ` + tourColumns + ` FROM tours
		WHERE id IN (SELECT tour_id FROM bookings WHERE user_id = ?) ORDER BY start_date`)
	if err := r.db.SelectContext(ctx, &tours, query, userID); err != nil {
		return nil, err
	}
	return tours, nil
}
