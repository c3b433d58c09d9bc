// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// StripeWebhookSecret signs webhook payloads built by CheckoutCompletedEvent.
const StripeWebhookSecret = "whsec_test_secret"

// StripeSignature returns a Stripe-Signature header for payload.
func StripeSignature(payload []byte, secret string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

// CheckoutCompletedEvent returns a checkout.session.completed event body
// for the given session, tour and customer.
func CheckoutCompletedEvent(sessionID string, tourID int64, email string, amountCents int64) []byte {
	return fmt.Appendf(nil, `{
  "id": "evt_test_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": %q,
      "object": "checkout.session",
      "client_reference_id": "%d",
      "customer_email": %q,
      "amount_total": %d,
      "payment_status": "paid"
    }
  }
}`, sessionID, tourID, email, amountCents)
}
