// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"fmt"
	"strings"
)

// Defaults applied to list queries.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter restricts a list query on one field. The "in" operator matches
// any of Values; all other operators compare against Value.
type Filter struct {
	Field  string
	Op     string
	Value  string
	Values []string
}

// ListParams describes filtering, ordering and pagination of a list query.
// Field names are the public API names; unknown fields are ignored.
type ListParams struct {
	Filters []Filter
	Sort    []string
	Limit   int
	Page    int
}

var comparators = map[string]string{
	"eq":  "=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// columnSet maps public field names to SQL columns.
type columnSet map[string]string

// build renders the WHERE, ORDER BY and LIMIT clauses for p. base holds
// conditions that always apply.
func (cs columnSet) build(p ListParams, defaultSort string, base []string, baseArgs ...any) (string, []any) {
	conds := append([]string(nil), base...)
	args := append([]any(nil), baseArgs...)

	for _, f := range p.Filters {
		col, ok := cs[f.Field]
		if !ok {
			continue
		}
		if f.Op == "in" {
			if len(f.Values) == 0 {
				continue
			}
			conds = append(conds, fmt.Sprintf("%s IN (?%s)", col, strings.Repeat(", ?", len(f.Values)-1)))
			for _, v := range f.Values {
				args = append(args, v)
			}
			continue
		}
		op, ok := comparators[f.Op]
		if !ok {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", col, op))
		args = append(args, f.Value)
	}

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	var order []string
	for _, s := range p.Sort {
		dir := "ASC"
		if strings.HasPrefix(s, "-") {
			dir = "DESC"
			s = s[1:]
		}
		if col, ok := cs[s]; ok {
			order = append(order, col+" "+dir)
		}
	}
	if len(order) == 0 {
		order = []string{defaultSort}
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	page := max(p.Page, 1)
	fmt.Fprintf(&b, " LIMIT %d OFFSET %d", limit, (page-1)*limit)

	return b.String(), args
}
