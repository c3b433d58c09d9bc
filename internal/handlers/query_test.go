// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(target string) echo.Context {
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
}

func TestListParams(t *testing.T) {
	p, err := listParams(queryContext("/api/v1/tours?difficulty=easy&difficulty=medium&price[lt]=500&sort=-price,%20name&limit=10&page=2&fields=name"))
	require.NoError(t, err)

	assert.Equal(t, []string{"-price", "name"}, p.Sort)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, []repository.Filter{
		{Field: "difficulty", Op: "in", Values: []string{"easy", "medium"}},
		{Field: "price", Op: "lt", Value: "500"},
	}, p.Filters)
}

func TestListParams_Empty(t *testing.T) {
	p, err := listParams(queryContext("/api/v1/tours"))
	require.NoError(t, err)
	assert.Equal(t, repository.ListParams{}, p)
}

func TestListParams_InvalidPaging(t *testing.T) {
	for _, target := range []string{"/x?limit=abc", "/x?limit=0", "/x?page=-1"} {
		t.Run(target, func(t *testing.T) {
			_, err := listParams(queryContext(target))
			assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		})
	}
}

func TestListParams_RepeatedComparisonKeepsLast(t *testing.T) {
	p, err := listParams(queryContext("/x?duration[gte]=3&duration[gte]=5"))
	require.NoError(t, err)
	require.Len(t, p.Filters, 1)
	assert.Equal(t, repository.Filter{Field: "duration", Op: "gte", Value: "5"}, p.Filters[0])
}

func TestWithFilter_ReplacesUserFilter(t *testing.T) {
	p := repository.ListParams{Filters: []repository.Filter{
		{Field: "tour", Op: "eq", Value: "9"},
		{Field: "rating", Op: "gte", Value: "4"},
	}}

	p = withFilter(p, "tour", "1")

	assert.Equal(t, []repository.Filter{
		{Field: "rating", Op: "gte", Value: "4"},
		{Field: "tour", Op: "eq", Value: "1"},
	}, p.Filters)
}
