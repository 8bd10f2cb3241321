package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/config"
	"github.com/roach88/bookcat/internal/fixture"
	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/storage"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(ISBNResult{Input: "0-8070-8369-0", Normalized: "0807083690"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"input": "0-8070-8369-0", "normalized": "0807083690"}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"domain": "files.example.com"}
	require.NoError(t, formatter.Error(ErrCodeTransition, "cannot return to pending", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTransition, resp.Error.Code)
	assert.Equal(t, "cannot return to pending", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("3 editions"))
	require.NoError(t, formatter.Error(ErrCodeNotFound, "work 7", map[string]int{"id": 7}))
	assert.Equal(t, "3 editions\nError [E005]: work 7\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeNotFound, "work 7", map[string]int{"id": 7}))
	assert.Contains(t, buf.String(), "Details: map[id:7]")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Fixture has %d edition(s)", 3)

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Equal(t, "Fixture has 3 edition(s)\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestFail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"permission", fmt.Errorf("set status: %w", auth.ErrPermissionDenied), ErrCodePermission, ExitFailure},
		{"token", auth.ErrInvalidToken, ErrCodePermission, ExitFailure},
		{"transition", link.ErrInvalidTransition, ErrCodeTransition, ExitFailure},
		{"isbn", errInvalidISBN, ErrCodeInvalidISBN, ExitFailure},
		{"not found", fmt.Errorf("get work 3: %w", storage.ErrNotFound), ErrCodeNotFound, ExitFailure},
		{"conflict", storage.ErrConflict, ErrCodeConflict, ExitFailure},
		{"page", book.ErrPageOutOfRange, ErrCodePageOutOfRange, ExitFailure},
		{"config", config.ErrInvalid, ErrCodeConfig, ExitCommandError},
		{"fixture", fixture.ErrUnknownKey, ErrCodeFixture, ExitCommandError},
		{"url", link.ErrInvalidURL, ErrCodeInvalidInput, ExitCommandError},
		{"input", errInvalidInput, ErrCodeInvalidInput, ExitCommandError},
		{"storage", errStorage, ErrCodeStorage, ExitCommandError},
		{"other", errors.New("boom"), ErrCodeGeneric, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail("operation failed", tt.err)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "operation failed")
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", errStorage)))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "no"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
