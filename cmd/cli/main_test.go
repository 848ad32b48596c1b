package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A manifest with a syntax error is guaranteed to panic during the
	// loading phase inside app.New.
	invalidHCL := `
		section "broken" {
			block = "hero"
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "story.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"-log-level", "error", filePath}
	out := &bytes.Buffer{}

	runErr := run(out, args)

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	manifest := `
		section "solo" {
			block = "hero"
			keyframe {
				t      = 0
				values = { opacity = 0 }
			}
			keyframe {
				t      = 1
				values = { opacity = 1 }
			}
		}
	`
	filePath := filepath.Join(t.TempDir(), "story.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(manifest), 0600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-log-level", "error", "-section-height", "100", "-viewport-height", "80", "-step", "25", filePath})

	require.NoError(t, err)
	require.Contains(t, out.String(), "solo")
	require.Contains(t, out.String(), "mounted")
}
