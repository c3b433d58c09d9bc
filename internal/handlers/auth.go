// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/services/auth"
	"codeberg.org/tourbook/tourbook/internal/storage"
	"github.com/labstack/echo/v4"
)

// SignupRequest is the request body for creating an account.
type SignupRequest struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// PasswordRequest carries a new password and its confirmation.
type PasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" form:"passwordCurrent"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// ProfileRequest holds the fields a user may change about themselves.
type ProfileRequest struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// sendToken issues a session token, sets the cookie and returns the user.
func (h *Handlers) sendToken(c echo.Context, user *models.User, status int) error {
	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	return h.sendIssuedToken(c, user, tok, status)
}

func (h *Handlers) sendIssuedToken(c echo.Context, user *models.User, tok string, status int) error {
	c.SetCookie(h.tokens.Cookie(tok))
	return c.JSON(status, Envelope{
		Status: "success",
		Token:  tok,
		Data:   map[string]any{"user": user},
	})
}

// Signup creates an account and logs the new user in.
func (h *Handlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Signup(c.Request().Context(), auth.SignupParams(req))
	if err != nil {
		return err
	}
	return h.sendToken(c, user, http.StatusCreated)
}

// Login checks the credentials and sets the session cookie. Form posts from
// the login page are redirected to the overview.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if isFormPost(c) {
		tok, err := h.tokens.Issue(user.ID)
		if err != nil {
			return err
		}
		c.SetCookie(h.tokens.Cookie(tok))
		h.setFlash(c, "flash_logged_in")
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return h.sendToken(c, user, http.StatusOK)
}

// Logout replaces the session cookie with a short-lived dummy value.
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(h.tokens.LogoutCookie())
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, Envelope{Status: "success"})
}

// ForgotPassword emails a reset link.
func (h *Handlers) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Envelope{Status: "success", Message: "Token sent to email!"})
}

// ResetPassword sets a new password from a reset token and logs the user in.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req PasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, tok, err := h.auth.ResetPassword(c.Request().Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendIssuedToken(c, user, tok, http.StatusCreated)
}

// UpdateMyPassword changes the password of the current user and issues a
// new token, since older ones are now stale.
func (h *Handlers) UpdateMyPassword(c echo.Context) error {
	current := appcontext.CurrentUser(c)
	if current == nil {
		return apperror.Unauthenticated()
	}
	var req PasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdatePassword(c.Request().Context(), current.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, user, http.StatusOK)
}

// GetMe returns the current user.
func (h *Handlers) GetMe(c echo.Context) error {
	user := appcontext.CurrentUser(c)
	if user == nil {
		return apperror.Unauthenticated()
	}
	return success(c, http.StatusOK, map[string]any{"data": user})
}

// UpdateMe changes name, email and photo of the current user.
func (h *Handlers) UpdateMe(c echo.Context) error {
	user, err := h.updateProfile(c)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, map[string]any{"user": user})
}

// DeleteMe deactivates the current user.
func (h *Handlers) DeleteMe(c echo.Context) error {
	user := appcontext.CurrentUser(c)
	if user == nil {
		return apperror.Unauthenticated()
	}
	if err := h.repo.DeactivateUser(c.Request().Context(), user.ID); err != nil {
		return err
	}
	c.SetCookie(h.tokens.LogoutCookie())
	return c.NoContent(http.StatusNoContent)
}

// CreateUser points admins to signup.
func (h *Handlers) CreateUser(_ echo.Context) error {
	return apperror.BadRequest("This route is not defined! Please use /signup instead")
}

// Users is the admin resource for user accounts. New accounts go through
// signup.
func (h *Handlers) Users() Resource[models.User, *models.User] {
	return Resource[models.User, *models.User]{
		List:   h.repo.ListUsers,
		Get:    h.repo.GetUserByID,
		Update: h.repo.UpdateUser,
		Delete: h.repo.DeleteUser,
		SetID:  func(u *models.User, id int64) { u.ID = id },
	}
}

// updateProfile applies a profile change of the current user, including an
// optional multipart photo upload.
func (h *Handlers) updateProfile(c echo.Context) (*models.User, error) {
	current := appcontext.CurrentUser(c)
	if current == nil {
		return nil, apperror.Unauthenticated()
	}

	var req ProfileRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		return nil, apperror.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}

	user := *current
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Email != "" {
		user.Email = models.NormalizeEmail(req.Email)
	}

	photo, err := h.savePhoto(c, user.ID)
	if err != nil {
		return nil, err
	}
	if photo != "" {
		user.Photo = photo
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := h.repo.UpdateUser(c.Request().Context(), &user); err != nil {
		return nil, err
	}
	appcontext.SetUser(c, &user)
	return &user, nil
}

// savePhoto stores an uploaded "photo" file and returns its name, or ""
// when the request carries no photo.
func (h *Handlers) savePhoto(c echo.Context, userID int64) (string, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return "", nil
	}
	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperror.BadRequest("Invalid photo upload")
	}
	if fh.Size > h.maxPhotoBytes {
		return "", apperror.BadRequest("Photo is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", apperror.BadRequest("Invalid photo upload")
	}
	head = head[:n]

	name, contentType, err := storage.PhotoName(userID, h.now(), head)
	if errors.Is(err, storage.ErrNotAnImage) {
		return "", apperror.BadRequest("Not an image! Please upload only images.")
	}
	if err != nil {
		return "", err
	}

	if err := h.photos.Save(c.Request().Context(), name, contentType, io.MultiReader(bytes.NewReader(head), f)); err != nil {
		return "", err
	}
	slog.Info("photo_uploaded", "user_id", userID, "photo", name)
	return name, nil
}

func (h *Handlers) setFlash(c echo.Context, messageID string) {
	if h.flash == nil {
		return
	}
	if err := h.flash.Set(c, i18n.T(c.Request().Context(), messageID)); err != nil {
		slog.Warn("flash_failed", "error", err)
	}
}
