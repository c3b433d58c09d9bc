// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// Envelope is the success body of the JSON API.
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Status: "success", Data: data})
}

func successList[T any](c echo.Context, items []T) error {
	n := len(items)
	return c.JSON(http.StatusOK, Envelope{Status: "success", Results: &n, Data: map[string]any{"data": items}})
}

// bind decodes the request body (JSON or form) into v.
func bind(c echo.Context, v any) error {
	return new(echo.DefaultBinder).BindBody(c, v)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	return models.ParseID(name, c.Param(name))
}

// isFormPost reports whether the request came from an HTML form.
func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

// wantsHTML reports whether a browser navigation triggered the request.
func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
