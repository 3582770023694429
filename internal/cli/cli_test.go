package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safestep/internal/intake/validation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "rules", "check")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRulesCheckDefaults(t *testing.T) {
	out, err := execute(t, "rules", "check", "--identity", "phone")
	require.NoError(t, err)
	assert.Contains(t, out, "5 rule(s) OK")
	assert.Contains(t, out, "phone required")
}

func TestRulesCheckJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "rules", "check", "--identity", "email")
	require.NoError(t, err)

	var rules []validation.Rule
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.NotEmpty(t, rules)
	assert.Equal(t, "greenId", rules[0].Name)
}

func TestRulesCheckInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: a\n    min_length: 5\n    max_length: 2\n"), 0o600))

	_, err := execute(t, "rules", "check", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateValidRecord(t *testing.T) {
	out, err := execute(t, "validate", "--identity", "email", `{"greenId":"g1","f_name":"Ann","email":"ann@example.com"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ record valid")
}

func TestValidateInvalidRecord(t *testing.T) {
	out, err := execute(t, "validate", "--identity", "email", `{"greenId":"g1","email":"ann@example.com"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "f_name: is required but not provided")
}

func TestValidateMalformedRecord(t *testing.T) {
	_, err := execute(t, "validate", `{"greenId":["g1"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "malformed")
}

func TestValidateJSONReport(t *testing.T) {
	out, _ := execute(t, "--format", "json", "validate", "--identity", "email", `{"greenId":"g 1","f_name":"Ann","email":"ann@example.com"}`)

	var report validation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Passed)
	assert.Contains(t, report.Fields, "greenId")
}

func TestReplayDryRun(t *testing.T) {
	t.Setenv("INTAKE_BATCH_SIZE", "2")
	t.Setenv("INTAKE_LOG_LEVEL", "error")

	lines := []string{
		`{"greenId":"g1","f_name":"Ann","email":"ann@example.com"}`,
		``,
		`{"greenId":"g2","email":"bob@example.com"}`,
		`{"greenId":"g3","f_name":"Ann","email":"ANN@example.com"}`,
	}
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))

	out, err := execute(t, "--format", "json", "replay", "--dry-run", path)
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 2, result.Linked)
	assert.Equal(t, 2, result.Batches)
	assert.Zero(t, result.FailedBatches)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "line:3", result.Rejected[0].ID)
}

func TestReplayMissingFile(t *testing.T) {
	_, err := execute(t, "replay", "--dry-run", filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", assert.AnError)))
}
