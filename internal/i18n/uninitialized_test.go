// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestWithoutInit_FallsBackToMessageID(t *testing.T) {
	saved := bundle
	bundle = nil
	t.Cleanup(func() { bundle = saved })

	ctx := WithLocale(context.Background(), language.German)

	assert.Equal(t, "de", GetLocale(ctx))
	assert.Nil(t, ctx.Value(localizerContextKey{}))
	assert.Equal(t, "app_name", T(ctx, "app_name"))
	assert.Equal(t, "app_name", TData(ctx, "app_name", map[string]any{"Name": "x"}))
	assert.Equal(t, "app_name", TPlural(ctx, "app_name", 2))
	assert.Equal(t, "app_name", T(context.Background(), "app_name"))
}
