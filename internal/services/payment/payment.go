// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package payment creates checkout sessions for tour bookings.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/google/uuid"
)

// Session is a checkout session the client is redirected to.
type Session struct {
	ID                string  `json:"id"`
	URL               string  `json:"url"`
	CancelURL         string  `json:"cancelUrl"`
	ClientReferenceID int64   `json:"clientReferenceId"`
	CustomerEmail     string  `json:"customerEmail"`
	AmountTotal       float64 `json:"amountTotal"`
	PaymentStatus     string  `json:"paymentStatus"`
}

// Provider creates checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, tour *models.Tour, user *models.User, successURL, cancelURL string) (*Session, error)
}

// BookingStore persists bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
}

// Local completes every checkout immediately and records a paid booking.
// It stands in for a hosted checkout during development.
type Local struct {
	bookings BookingStore
}

// NewLocal creates a local provider that writes bookings to store.
func NewLocal(store BookingStore) *Local {
	return &Local{bookings: store}
}

// CreateCheckoutSession implements Provider.
func (l *Local) CreateCheckoutSession(ctx context.Context, tour *models.Tour, user *models.User, successURL, cancelURL string) (*Session, error) {
	sess := &Session{
		ID:                "cs_" + uuid.NewString(),
		URL:               successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: tour.ID,
		CustomerEmail:     user.Email,
		AmountTotal:       tour.Price,
		PaymentStatus:     "paid",
	}

	booking := &models.Booking{
		TourID:    tour.ID,
		UserID:    user.ID,
		Price:     tour.Price,
		Paid:      true,
		SessionID: sess.ID,
	}
	if err := booking.Validate(); err != nil {
		return nil, err
	}
	if err := l.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("recording booking: %w", err)
	}

	slog.Info("checkout_completed", "session_id", sess.ID, "tour_id", tour.ID, "user_id", user.ID, "booking_id", booking.ID)
	return sess, nil
}
