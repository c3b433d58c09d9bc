// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"github.com/labstack/echo/v4"
)

// reservedParams control paging and sorting and are never filters.
var reservedParams = []string{"sort", "limit", "page", "fields", "alert"}

// listParams reads sort, limit, page and field filters from the query.
// "price[lt]=500" compares, "difficulty=easy" matches, and a repeated
// parameter matches any of its values.
func listParams(c echo.Context) (repository.ListParams, error) {
	var p repository.ListParams
	query := c.QueryParams()

	if s := query.Get("sort"); s != "" {
		for field := range strings.SplitSeq(s, ",") {
			if field = strings.TrimSpace(field); field != "" {
				p.Sort = append(p.Sort, field)
			}
		}
	}

	var err error
	if p.Limit, err = positiveInt(query.Get("limit"), "limit"); err != nil {
		return p, err
	}
	if p.Page, err = positiveInt(query.Get("page"), "page"); err != nil {
		return p, err
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if slices.Contains(reservedParams, key) {
			continue
		}
		values := query[key]
		field, op := key, "eq"
		if name, rest, ok := strings.Cut(key, "["); ok && strings.HasSuffix(rest, "]") {
			field, op = name, strings.TrimSuffix(rest, "]")
		}
		switch {
		case len(values) > 1 && op == "eq":
			p.Filters = append(p.Filters, repository.Filter{Field: field, Op: "in", Values: values})
		default:
			p.Filters = append(p.Filters, repository.Filter{Field: field, Op: op, Value: values[len(values)-1]})
		}
	}
	return p, nil
}

func positiveInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.BadRequest(fmt.Sprintf("Invalid %s: %s", name, raw))
	}
	return n, nil
}

// withFilter adds a fixed equality filter, replacing any user supplied one.
func withFilter(p repository.ListParams, field, value string) repository.ListParams {
	p.Filters = slices.DeleteFunc(p.Filters, func(f repository.Filter) bool { return f.Field == field })
	p.Filters = append(p.Filters, repository.Filter{Field: field, Op: "eq", Value: value})
	return p
}
