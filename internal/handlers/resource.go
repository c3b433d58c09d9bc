// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"net/http"

	"codeberg.org/tourbook/tourbook/internal/repository"
	"github.com/labstack/echo/v4"
)

// record is a model pointer that can validate itself.
type record[T any] interface {
	*T
	Validate() error
}

// Resource serves the generic CRUD operations of one model type. Nil
// operations are answered with 405.
type Resource[T any, P record[T]] struct {
	List   func(ctx context.Context, p repository.ListParams) ([]T, error)
	Get    func(ctx context.Context, id int64) (P, error)
	Create func(ctx context.Context, item P) error
	Update func(ctx context.Context, item P) error
	Delete func(ctx context.Context, id int64) error

	// Scope narrows list queries, e.g. to a parent from the path.
	Scope func(c echo.Context, p repository.ListParams) (repository.ListParams, error)
	// Prepare fills in fields of a new item before validation.
	Prepare func(c echo.Context, item P) error
	// SetID restores the identifier after a body is decoded onto an item.
	SetID func(item P, id int64)
}

// GetAll lists items.
func (r Resource[T, P]) GetAll(c echo.Context) error {
	if r.List == nil {
		return echo.ErrMethodNotAllowed
	}
	p, err := listParams(c)
	if err != nil {
		return err
	}
	if r.Scope != nil {
		if p, err = r.Scope(c, p); err != nil {
			return err
		}
	}
	items, err := r.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return successList(c, items)
}

// GetOne returns the item with the :id path parameter.
func (r Resource[T, P]) GetOne(c echo.Context) error {
	if r.Get == nil {
		return echo.ErrMethodNotAllowed
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := r.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, map[string]any{"data": item})
}

// CreateOne decodes, validates and stores a new item.
func (r Resource[T, P]) CreateOne(c echo.Context) error {
	if r.Create == nil {
		return echo.ErrMethodNotAllowed
	}
	item := P(new(T))
	if err := bind(c, item); err != nil {
		return err
	}
	if r.SetID != nil {
		r.SetID(item, 0)
	}
	if r.Prepare != nil {
		if err := r.Prepare(c, item); err != nil {
			return err
		}
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := r.Create(c.Request().Context(), item); err != nil {
		return err
	}
	return success(c, http.StatusCreated, map[string]any{"data": item})
}

// UpdateOne applies the request body to the stored item, validates the
// result and saves it.
func (r Resource[T, P]) UpdateOne(c echo.Context) error {
	if r.Get == nil || r.Update == nil {
		return echo.ErrMethodNotAllowed
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	item, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bind(c, item); err != nil {
		return err
	}
	if r.SetID != nil {
		r.SetID(item, id)
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := r.Update(ctx, item); err != nil {
		return err
	}
	return success(c, http.StatusOK, map[string]any{"data": item})
}

// DeleteOne removes the item with the :id path parameter.
func (r Resource[T, P]) DeleteOne(c echo.Context) error {
	if r.Delete == nil {
		return echo.ErrMethodNotAllowed
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := r.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

