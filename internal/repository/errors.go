// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Field string
	Value string
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s: %s", e.Field, e.Value)
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

const pgUniqueViolation = "23505"

var (
	sqliteUnique = regexp.MustCompile(`UNIQUE constraint failed: ([\w.]+(?:, [\w.]+)*)`)
	pgUniqueKey  = regexp.MustCompile(`Key \(([^)]+)\)=\((.*)\) already exists`)
)

// wrapWriteError detects unique violations in err. values supplies the
// written column values so the duplicate can be reported by value.
func wrapWriteError(err error, values map[string]any) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if m := pgUniqueKey.FindStringSubmatch(pgErr.Detail); m != nil {
			return &DuplicateError{Field: m[1], Value: m[2], Err: err}
		}
		return &DuplicateError{Field: pgErr.ConstraintName, Err: err}
	}

	m := sqliteUnique.FindStringSubmatch(err.Error())
	if m == nil {
		return wrapError(err)
	}

	var fields, vals []string
	for _, qualified := range strings.Split(m[1], ", ") {
		col := qualified[strings.LastIndex(qualified, ".")+1:]
		fields = append(fields, col)
		if v, ok := values[col]; ok {
			vals = append(vals, fmt.Sprint(v))
		}
	}
	return &DuplicateError{Field: strings.Join(fields, ", "), Value: strings.Join(vals, ", "), Err: err}
}
