// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the server-side pages.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/a-h/templ"
)

//go:embed views/*.html
var viewsFS embed.FS

// photoBase is the URL prefix user photos are served from.
var photoBase = "/img/users"

// SetPhotoBase changes the photo URL prefix. Call before serving requests.
func SetPhotoBase(prefix string) {
	if prefix != "" {
		photoBase = strings.TrimSuffix(prefix, "/")
	}
}

var funcs = template.FuncMap{
	"date":   formatDate,
	"photo":  func(name string) string { return photoBase + "/" + name },
	"price":  func(p float64) string { return fmt.Sprintf("$%.0f", p) },
	"rating": func(r float64) string { return fmt.Sprintf("%.1f", r) },
	"stars":  stars,
	"upper":  strings.ToUpper,
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("January 2006")
}

// stars marks the filled positions of a five star rating.
func stars(n int) []bool {
	s := make([]bool, 5)
	for i := range s {
		s[i] = i < n
	}
	return s
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"overview", "tour", "login", "account", "error"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(viewsFS, "views/base.html", "views/"+name+".html"))
	}
}

// View is the data every page template receives.
type View struct {
	Title  string
	User   *models.User
	Alert  string
	Locale string
	T      func(messageID string) string
	Data   any
}

// page renders the named template inside the base layout.
func page(name, title string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		view := View{
			Title:  title,
			User:   appcontext.UserFrom(ctx),
			Alert:  appcontext.FlashFrom(ctx),
			Locale: Locale(ctx),
			T:      func(id string) string { return T(ctx, id) },
			Data:   data,
		}
		return pages[name].ExecuteTemplate(w, "base", view)
	})
}

// Overview lists tours.
func Overview(title string, tours []models.Tour) templ.Component {
	return page("overview", title, tours)
}

// TourData is rendered on a tour detail page.
type TourData struct {
	Tour    *models.Tour
	Reviews []models.Review
	Guides  []models.User
}

// Tour renders a tour detail page.
func Tour(data TourData) templ.Component {
	return page("tour", data.Tour.Name+" tour", data)
}

// Login renders the login form.
func Login() templ.Component {
	return page("login", "Log into your account", nil)
}

// Account renders the account settings page.
func Account(user *models.User) templ.Component {
	return page("account", "Your account", user)
}

// ErrorData is rendered on the error page.
type ErrorData struct {
	Status  int
	Message string
}

// Error renders the error page.
func Error(title string, status int, message string) templ.Component {
	return page("error", title, ErrorData{Status: status, Message: message})
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}
