// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err:  &UserError{Message: "Cannot open ledger", Err: fmt.Errorf("database is locked")},
			want: "Cannot open ledger: database is locked",
		},
		{
			name: "message only",
			err:  &UserError{Message: "Missing solution name"},
			want: "Missing solution name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUserError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("missing API key")
	err := NewProviderError("Cannot create provider", "", "", fmt.Errorf("gemini: %w", sentinel))

	assert.ErrorIs(t, err, sentinel)

	var ue *UserError
	wrapped := fmt.Errorf("run: %w", err)
	require.True(t, stderrors.As(wrapped, &ue))
	assert.Equal(t, ExitProvider, ue.ExitCode)
}

func TestConstructors_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want int
	}{
		{"config", NewConfigError("m", "c", "f", nil), ExitConfig},
		{"storage", NewStorageError("m", "c", "f", nil), ExitStorage},
		{"provider", NewProviderError("m", "c", "f", nil), ExitProvider},
		{"input", NewInputError("m", "c", "f"), ExitInput},
		{"permission", NewPermissionError("m", "c", "f", nil), ExitPermission},
		{"not found", NewNotFoundError("m", "c", "f"), ExitNotFound},
		{"partial", NewPartialError("m", "c", "f"), ExitPartial},
		{"internal", NewInternalError("m", "c", "f", nil), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.ExitCode)
			assert.Equal(t, "m", tt.err.Message)
			assert.Equal(t, "c", tt.err.Cause)
			assert.Equal(t, "f", tt.err.Fix)
		})
	}
}

func TestUserError_Format(t *testing.T) {
	err := NewConfigError(
		"Cannot load configuration",
		".enrich/project.yaml not found",
		"Run 'enrich init'",
		nil,
	)
	got := err.Format(true)
	assert.Equal(t, "Error: Cannot load configuration\nCause: .enrich/project.yaml not found\nFix:   Run 'enrich init'\n", got)

	bare := &UserError{Message: "Boom"}
	assert.Equal(t, "Error: Boom\n", bare.Format(true))
}

func TestUserError_FormatNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	got := NewInputError("Bad flag", "", "").Format(false)
	assert.Equal(t, "Error: Bad flag\n", got)
}

func TestWrite(t *testing.T) {
	t.Run("user error text", func(t *testing.T) {
		var buf bytes.Buffer
		code := Write(&buf, NewNotFoundError("No run report", "", "Run 'enrich run' first"), false, true)
		assert.Equal(t, ExitNotFound, code)
		assert.Contains(t, buf.String(), "Error: No run report")
		assert.Contains(t, buf.String(), "Fix:   Run 'enrich run' first")
	})

	t.Run("user error json", func(t *testing.T) {
		var buf bytes.Buffer
		code := Write(&buf, NewPartialError("2 files failed", "provider timeouts", ""), true, true)
		assert.Equal(t, ExitPartial, code)

		var got ErrorJSON
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "2 files failed", got.Error)
		assert.Equal(t, "provider timeouts", got.Cause)
		assert.Empty(t, got.Fix)
		assert.Equal(t, ExitPartial, got.ExitCode)
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		code := Write(&buf, stderrors.New("unexpected"), false, true)
		assert.Equal(t, ExitInternal, code)
		assert.Equal(t, "Error: unexpected\n", buf.String())
	})

	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, ExitSuccess, Write(&buf, nil, false, true))
		assert.Empty(t, buf.String())
	})
}
