// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIPrefix is the path namespace of the JSON API.
const APIPrefix = "/api/"

// SanitizeJSON drops operator-like keys (leading "$" or containing ".")
// and escapes "<" in every string of a JSON request body.
func SanitizeJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				return next(c)
			}

			raw, err := io.ReadAll(req.Body)
			if err != nil {
				return err
			}
			_ = req.Body.Close()

			var body any
			if err := json.Unmarshal(raw, &body); err == nil {
				if cleaned, err := json.Marshal(sanitizeValue(body)); err == nil {
					raw = cleaned
				}
			}
			// Malformed JSON passes through unchanged so binding reports it.
			req.Body = io.NopCloser(bytes.NewReader(raw))
			req.ContentLength = int64(len(raw))
			return next(c)
		}
	}
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				delete(val, k)
				continue
			}
			val[k] = sanitizeValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = sanitizeValue(inner)
		}
		return val
	case string:
		return strings.ReplaceAll(val, "<", "&lt;")
	default:
		return v
	}
}

// DefaultHPPWhitelist lists query parameters that may repeat.
var DefaultHPPWhitelist = []string{
	"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price",
}

// ParameterPollution keeps only the last value of repeated query
// parameters, except for whitelisted names.
func ParameterPollution(whitelist ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.URL.RawQuery == "" {
				return next(c)
			}
			values, err := url.ParseQuery(req.URL.RawQuery)
			if err != nil {
				return next(c)
			}
			changed := false
			for key, vals := range values {
				if len(vals) > 1 && !slices.Contains(whitelist, baseParam(key)) {
					values[key] = vals[len(vals)-1:]
					changed = true
				}
			}
			if changed {
				req.URL.RawQuery = values.Encode()
			}
			return next(c)
		}
	}
}

// baseParam strips an operator suffix such as "price[gte]".
func baseParam(key string) string {
	name, _, _ := strings.Cut(key, "[")
	return name
}
