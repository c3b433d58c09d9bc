// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"github.com/labstack/echo/v4"
)

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Identity, error)
	CookieName() string
}

// UserLoader is an interface for loading full user data
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Stage is the progress of a request through the auth chain.
type Stage int

const (
	StageNoCredential Stage = iota
	StageCredentialExtracted
	StageTokenVerified
	StageIdentityResolved
	StageAuthorized
)

func (s Stage) String() string {
	switch s {
	case StageNoCredential:
		return "no_credential"
	case StageCredentialExtracted:
		return "credential_extracted"
	case StageTokenVerified:
		return "token_verified"
	case StageIdentityResolved:
		return "identity_resolved"
	case StageAuthorized:
		return "authorized"
	}
	return "unknown"
}

// State is the per-request auth state threaded through the steps.
type State struct {
	Stage    Stage
	Token    string
	Identity *token.Identity
	User     *models.User
}

type outcome int

const (
	outcomeNext outcome = iota
	outcomeHalt
	outcomeReject
)

// Result tells the chain how to proceed after a step.
type Result struct {
	outcome outcome
	err     error
}

// Next advances to the following step.
func Next() Result { return Result{outcome: outcomeNext} }

// Halt ends the chain and lets the request through without an identity.
func Halt() Result { return Result{outcome: outcomeHalt} }

// Reject ends the chain with err.
func Reject(err error) Result { return Result{outcome: outcomeReject, err: err} }

// Step is one interceptor of the auth chain. A step only runs once the
// state has reached Requires.
type Step struct {
	Name     string
	Requires Stage
	Run      func(c echo.Context, st *State) Result
}

// Chain applies steps in order. A soft chain never rejects: any rejection
// leaves the request anonymous.
type Chain struct {
	steps []Step
	soft  bool
}

// NewChain builds a chain from steps.
func NewChain(soft bool, steps ...Step) *Chain {
	return &Chain{steps: steps, soft: soft}
}

// Evaluate runs all steps and returns the final state, or the rejection.
func (ch *Chain) Evaluate(c echo.Context) (*State, error) {
	st := &State{Stage: StageNoCredential}
	for _, step := range ch.steps {
		if st.Stage < step.Requires {
			return st, apperror.Unauthenticated()
		}
		res := step.Run(c, st)
		switch res.outcome {
		case outcomeNext:
			continue
		case outcomeHalt:
			return st, nil
		case outcomeReject:
			return st, res.err
		}
	}
	return st, nil
}

// Middleware returns the chain as echo middleware.
func (ch *Chain) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st, err := ch.Evaluate(c)
			if err == nil {
				return next(c)
			}
			if !ch.soft {
				return err
			}
			// Anything short of a full resolution is anonymous here.
			slog.Debug("soft_auth_anonymous", "stage", st.Stage.String(), "reason", err.Error())
			return next(c)
		}
	}
}

// ExtractCredential reads a bearer token from the Authorization header,
// when allowHeader is set, and falls back to the session cookie. With
// softMissing an absent credential halts the chain instead of rejecting.
func ExtractCredential(cookieName string, allowHeader, softMissing bool) Step {
	return Step{
		Name:     "extract_credential",
		Requires: StageNoCredential,
		Run: func(c echo.Context, st *State) Result {
			var raw string
			if allowHeader {
				if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
					raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				}
			}
			if raw == "" {
				if cookie, err := c.Cookie(cookieName); err == nil {
					raw = cookie.Value
				}
			}
			if raw == "" {
				if softMissing {
					return Halt()
				}
				return Reject(apperror.Unauthenticated())
			}
			st.Token = raw
			st.Stage = StageCredentialExtracted
			return Next()
		},
	}
}

// VerifyToken checks the extracted token's signature and expiry.
func VerifyToken(verifier TokenVerifier) Step {
	return Step{
		Name:     "verify_token",
		Requires: StageCredentialExtracted,
		Run: func(_ echo.Context, st *State) Result {
			identity, err := verifier.Verify(st.Token)
			if err != nil {
				if errors.Is(err, token.ErrExpiredToken) {
					return Reject(apperror.ExpiredToken(err))
				}
				return Reject(apperror.InvalidToken(err))
			}
			st.Identity = identity
			st.Stage = StageTokenVerified
			return Next()
		},
	}
}

// ResolveIdentity loads the user the token names.
func ResolveIdentity(users UserLoader) Step {
	return Step{
		Name:     "resolve_identity",
		Requires: StageTokenVerified,
		Run: func(c echo.Context, st *State) Result {
			user, err := users.GetUserByID(c.Request().Context(), st.Identity.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return Reject(apperror.UserNotFound())
				}
				return Reject(err)
			}
			st.User = user
			st.Stage = StageIdentityResolved
			return Next()
		},
	}
}

// CheckRevocation rejects tokens issued before the last password change.
func CheckRevocation() Step {
	return Step{
		Name:     "check_revocation",
		Requires: StageIdentityResolved,
		Run: func(_ echo.Context, st *State) Result {
			if st.User.ChangedPasswordAfter(st.Identity.IssuedAt) {
				return Reject(apperror.StaleToken())
			}
			return Next()
		},
	}
}

// AttachIdentity exposes the resolved user to handlers and templates.
func AttachIdentity() Step {
	return Step{
		Name:     "attach_identity",
		Requires: StageIdentityResolved,
		Run: func(c echo.Context, st *State) Result {
			appcontext.SetUser(c, st.User)
			return Next()
		},
	}
}

// Authorize rejects users whose role is not in roles.
func Authorize(roles ...models.Role) Step {
	return Step{
		Name:     "authorize",
		Requires: StageIdentityResolved,
		Run: func(_ echo.Context, st *State) Result {
			if !slices.Contains(roles, st.User.Role) {
				return Reject(apperror.Forbidden())
			}
			st.Stage = StageAuthorized
			return Next()
		},
	}
}

// Auth builds the protect and soft chains from shared dependencies.
type Auth struct {
	tokens TokenVerifier
	users  UserLoader
}

// NewAuth creates the auth middleware factory.
func NewAuth(tokens TokenVerifier, users UserLoader) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// ProtectChain is the rejecting chain, optionally ending in a role gate.
func (a *Auth) ProtectChain(roles ...models.Role) *Chain {
	steps := []Step{
		ExtractCredential(a.tokens.CookieName(), true, false),
		VerifyToken(a.tokens),
		ResolveIdentity(a.users),
		CheckRevocation(),
		AttachIdentity(),
	}
	if len(roles) > 0 {
		steps = append(steps, Authorize(roles...))
	}
	return NewChain(false, steps...)
}

// SoftChain resolves an identity from the session cookie when possible.
func (a *Auth) SoftChain() *Chain {
	return NewChain(true,
		ExtractCredential(a.tokens.CookieName(), false, true),
		VerifyToken(a.tokens),
		ResolveIdentity(a.users),
		CheckRevocation(),
		AttachIdentity(),
	)
}

// Protect requires a valid, current session token.
func (a *Auth) Protect(roles ...models.Role) echo.MiddlewareFunc {
	return a.ProtectChain(roles...).Middleware()
}

// IsLoggedIn attaches the user when a valid cookie is present and never rejects.
func (a *Auth) IsLoggedIn() echo.MiddlewareFunc {
	return a.SoftChain().Middleware()
}

// RestrictTo gates a route on the attached user's role. It must follow
// Protect; a missing identity is reported as Unauthenticated.
func RestrictTo(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := appcontext.CurrentUser(c)
			if user == nil {
				return apperror.Unauthenticated()
			}
			if !slices.Contains(roles, user.Role) {
				return apperror.Forbidden()
			}
			return next(c)
		}
	}
}
