// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const eventCheckoutCompleted = "checkout.session.completed"

// CheckoutStore persists bookings and resolves the paying customer.
type CheckoutStore interface {
	BookingStore
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// WebhookReceiver is implemented by providers that confirm payments
// asynchronously.
type WebhookReceiver interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Stripe redirects to a hosted Stripe Checkout page and records the
// booking once Stripe reports the session as completed.
type Stripe struct {
	sessions      session.Client
	webhookSecret string
	imageBase     string
	store         CheckoutStore
}

// StripeOption configures a Stripe provider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backendURL string
}

// WithBackendURL points the client at another Stripe API host.
func WithBackendURL(url string) StripeOption {
	return func(o *stripeOptions) { o.backendURL = url }
}

// NewStripe creates a Stripe provider. imageBase is the absolute URL prefix
// of tour cover images shown on the checkout page.
func NewStripe(secretKey, webhookSecret, imageBase string, store CheckoutStore, opts ...StripeOption) *Stripe {
	var o stripeOptions
	for _, opt := range opts {
		opt(&o)
	}

	backendCfg := &stripe.BackendConfig{}
	if o.backendURL != "" {
		backendCfg.URL = stripe.String(o.backendURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}

	return &Stripe{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
		imageBase:     imageBase,
		store:         store,
	}
}

// CreateCheckoutSession implements Provider.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, tour *models.Tour, user *models.User, successURL, cancelURL string) (*Session, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(tour.Name + " Tour"),
	}
	if tour.Summary != "" {
		product.Description = stripe.String(tour.Summary)
	}
	if tour.ImageCover != "" && s.imageBase != "" {
		product.Images = []*string{stripe.String(s.imageBase + "/" + tour.ImageCover)}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(strconv.FormatInt(tour.ID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(int64(math.Round(tour.Price * 100))),
				ProductData: product,
			},
		}},
	}
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating stripe checkout session: %w", err)
	}

	slog.Info("checkout_session_created", "session_id", cs.ID, "tour_id", tour.ID, "user_id", user.ID)
	return &Session{
		ID:                cs.ID,
		URL:               cs.URL,
		CancelURL:         cancelURL,
		ClientReferenceID: tour.ID,
		CustomerEmail:     user.Email,
		AmountTotal:       float64(cs.AmountTotal) / 100,
		PaymentStatus:     string(cs.PaymentStatus),
	}, nil
}

// HandleWebhook verifies a Stripe event and records a paid booking for a
// completed checkout. Other event types are acknowledged and ignored.
func (s *Stripe) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return apperror.Wrap(apperror.KindBadRequest, http.StatusBadRequest, "Webhook error: "+err.Error(), err)
	}
	if string(event.Type) != eventCheckoutCompleted || event.Data == nil {
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return apperror.Wrap(apperror.KindBadRequest, http.StatusBadRequest, "Webhook error: malformed checkout session", err)
	}
	return s.recordBooking(ctx, &cs)
}

func (s *Stripe) recordBooking(ctx context.Context, cs *stripe.CheckoutSession) error {
	tourID, err := strconv.ParseInt(cs.ClientReferenceID, 10, 64)
	if err != nil {
		return apperror.Wrap(apperror.KindBadRequest, http.StatusBadRequest, "Webhook error: unknown tour reference", err)
	}

	email := cs.CustomerEmail
	if email == "" && cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}
	if email == "" {
		return apperror.BadRequest("Webhook error: checkout session has no customer email")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolving checkout customer: %w", err)
	}

	booking := &models.Booking{
		TourID:    tourID,
		UserID:    user.ID,
		Price:     float64(cs.AmountTotal) / 100,
		Paid:      true,
		SessionID: cs.ID,
	}
	if err := booking.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return fmt.Errorf("recording booking: %w", err)
	}

	slog.Info("checkout_completed", "session_id", cs.ID, "tour_id", tourID, "user_id", user.ID, "booking_id", booking.ID)
	return nil
}
