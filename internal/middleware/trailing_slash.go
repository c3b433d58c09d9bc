// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash redirects page requests with trailing slashes to the
// canonical URL without. API requests are rewritten in place so clients
// sending a body are not redirected.
func StripTrailingSlash() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if path == "/" || !strings.HasSuffix(path, "/") {
				return next(c)
			}

			newPath := strings.TrimRight(path, "/")
			if newPath == "" {
				newPath = "/"
			}
			if strings.HasPrefix(path, APIPrefix) || req.Method != http.MethodGet {
				req.URL.Path = newPath
				req.URL.RawPath = ""
				return next(c)
			}

			newURL := newPath
			if req.URL.RawQuery != "" {
				newURL += "?" + req.URL.RawQuery
			}
			return c.Redirect(http.StatusMovedPermanently, newURL)
		}
	}
}
