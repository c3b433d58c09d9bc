// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"io"
	"net/http"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/services/payment"
	"github.com/labstack/echo/v4"
)

const maxWebhookBytes = 64 << 10

// CheckoutSession starts the checkout for the :tourId path parameter.
func (h *Handlers) CheckoutSession(c echo.Context) error {
	user := appcontext.CurrentUser(c)
	if user == nil {
		return apperror.Unauthenticated()
	}
	tourID, err := pathID(c, "tourId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	tour, err := h.repo.GetTourByID(ctx, tourID)
	if err != nil {
		return err
	}

	sess, err := h.payments.CreateCheckoutSession(ctx, tour, user,
		h.baseURL+"/my-tours?alert=booking",
		h.baseURL+"/tour/"+tour.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"session": sess,
	})
}

// CheckoutWebhook verifies a payment event and records the booking of a
// completed checkout. It answers 404 when the provider has no webhooks.
func (h *Handlers) CheckoutWebhook(c echo.Context) error {
	receiver, ok := h.payments.(payment.WebhookReceiver)
	if !ok {
		return echo.ErrNotFound
	}

	req := c.Request()
	payload, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBytes))
	if err != nil {
		return apperror.Wrap(apperror.KindBadRequest, http.StatusBadRequest, "Webhook error: unreadable body", err)
	}
	if err := receiver.HandleWebhook(req.Context(), payload, req.Header.Get("Stripe-Signature")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
