// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ValidationError collects field-level validation messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), ". ")
}

// Messages returns the field messages ordered by field name, without a
// trailing period so callers can join them with ". ".
func (e *ValidationError) Messages() []string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	messages := make([]string, len(keys))
	for i, k := range keys {
		messages[i] = strings.TrimSuffix(e.Fields[k], ".")
	}
	return messages
}

// validator accumulates field errors; the first message per field wins.
type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if ok {
		return
	}
	if _, exists := v[field]; !exists {
		v[field] = message
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// CastError reports an identifier that could not be parsed.
type CastError struct {
	Path  string
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Path, e.Value)
}

// ParseID parses a positive integer identifier taken from the named path.
func ParseID(path, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &CastError{Path: path, Value: raw}
	}
	return id, nil
}
