// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"strings"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/handlers"
	appmw "codeberg.org/tourbook/tourbook/internal/middleware"
	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, cfg *config.Config, h *handlers.Handlers, auth *appmw.Auth) {
	e.Static("/static", "static")
	if cfg.Storage.Backend == "local" && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		e.Static(cfg.Storage.PublicURL, cfg.Storage.LocalDir)
	}
	e.GET("/health", h.Health)
	e.POST(webhookPath, h.CheckoutWebhook)

	protect := auth.Protect()
	admin := auth.Protect(models.RoleAdmin)
	staff := auth.Protect(models.RoleAdmin, models.RoleLeadGuide)

	// Pages
	soft := auth.IsLoggedIn()
	e.GET("/", h.Overview, soft)
	e.GET("/tour/:slug", h.TourPage, soft)
	e.GET("/login", h.LoginPage, soft)
	e.GET("/me", h.AccountPage, protect)
	e.GET("/my-tours", h.MyTours, protect)
	e.POST("/submit-user-data", h.SubmitUserData, protect)

	api := e.Group("/api/v1", rateLimiter(cfg.RateLimit))

	// Users
	users := api.Group("/users")
	users.POST("/signup", h.Signup)
	users.POST("/login", h.Login)
	users.GET("/logout", h.Logout)
	users.POST("/forgotPassword", h.ForgotPassword)
	users.PATCH("/resetPassword/:token", h.ResetPassword)

	users.PATCH("/updateMyPassword", h.UpdateMyPassword, protect)
	users.GET("/me", h.GetMe, protect)
	users.PATCH("/updateMe", h.UpdateMe, protect)
	users.DELETE("/deleteMe", h.DeleteMe, protect)

	userRes := h.Users()
	users.GET("", userRes.GetAll, admin)
	users.POST("", h.CreateUser, admin)
	users.GET("/:id", userRes.GetOne, admin)
	users.PATCH("/:id", userRes.UpdateOne, admin)
	users.DELETE("/:id", userRes.DeleteOne, admin)

	// Tours
	tours := api.Group("/tours")
	tourRes := h.Tours()
	tours.GET("/top-5-cheap", handlers.AliasTopTours(tourRes.GetAll))
	tours.GET("/tour-stats", h.TourStats)
	tours.GET("", tourRes.GetAll)
	tours.POST("", tourRes.CreateOne, staff)
	tours.GET("/:id", tourRes.GetOne)
	tours.PATCH("/:id", tourRes.UpdateOne, staff)
	tours.DELETE("/:id", tourRes.DeleteOne, staff)
	tours.PUT("/:id/guides", h.SetTourGuides, staff)

	// Reviews, also mounted below a tour
	reviewRes := h.Reviews()
	authors := appmw.RestrictTo(models.RoleUser)
	owners := appmw.RestrictTo(models.RoleUser, models.RoleAdmin)
	tours.GET("/:tourId/reviews", reviewRes.GetAll, protect)
	tours.POST("/:tourId/reviews", reviewRes.CreateOne, protect, authors)

	reviews := api.Group("/reviews", protect)
	reviews.GET("", reviewRes.GetAll)
	reviews.POST("", reviewRes.CreateOne, authors)
	reviews.GET("/:id", reviewRes.GetOne)
	reviews.PATCH("/:id", reviewRes.UpdateOne, owners)
	reviews.DELETE("/:id", reviewRes.DeleteOne, owners)

	// Bookings
	bookingRes := h.Bookings()
	bookings := api.Group("/bookings", protect)
	bookings.GET("/checkout-session/:tourId", h.CheckoutSession)
	staffOnly := appmw.RestrictTo(models.RoleAdmin, models.RoleLeadGuide)
	bookings.GET("", bookingRes.GetAll, staffOnly)
	bookings.POST("", bookingRes.CreateOne, staffOnly)
	bookings.GET("/:id", bookingRes.GetOne, staffOnly)
	bookings.PATCH("/:id", bookingRes.UpdateOne, staffOnly)
	bookings.DELETE("/:id", bookingRes.DeleteOne, staffOnly)
}
