package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgvalidity/modules/org/services"
)

const (
	fixturePath = "testdata/org.json"
	rootUnit    = "00000000-0000-0000-0000-000000000001"
	midUnit     = "00000000-0000-0000-0000-000000000002"
	leafUnit    = "00000000-0000-0000-0000-000000000003"
	employee    = "00000000-0000-0000-0000-0000000000e1"
	engagement  = "00000000-0000-0000-0000-0000000000f1"
)

func runCLI(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--fixture", fixturePath}, args...))
	err := cmd.Execute()

	if stdout.Len() == 0 {
		return nil, err
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out), stdout.String())
	return out, err
}

func TestCovers_ActiveRange(t *testing.T) {
	out, err := runCLI(t, "covers", "--entity", midUnit, "--from", "2017-01-01", "--to", "2017-08-29")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
}

func TestCovers_RangeBeyondActiveEnd(t *testing.T) {
	out, err := runCLI(t, "covers", "--entity", midUnit, "--from", "2017-01-01", "--to", "2017-09-01")
	require.Error(t, err)
	require.Equal(t, exitValidation, exitCode(err))
	require.Equal(t, false, out["ok"])

	errOut := out["error"].(map[string]any)
	require.Equal(t, services.CodeDateOutsideOrgUnitRange, errOut["code"])
	require.Equal(t, "state_rejected", errOut["gap_reason"])
	gap := errOut["gap"].(map[string]any)
	require.Equal(t, "2017-08-29T00:00:00Z", gap["from"])
}

func TestCovers_Employee(t *testing.T) {
	out, err := runCLI(t, "covers", "--kind", "employee", "--entity", employee, "--from", "2016-01-01")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
}

func TestCovers_UnknownEntityIsNotAValidationFailure(t *testing.T) {
	out, err := runCLI(t, "covers", "--entity", "00000000-0000-0000-0000-00000000dead", "--from", "2017-01-01", "--to", "2017-02-01")
	require.Error(t, err)
	require.Nil(t, out)
	require.ErrorIs(t, err, services.ErrNotFound)
	require.Equal(t, exitDB, exitCode(err))
}

func TestProject_MergesAndClips(t *testing.T) {
	out, err := runCLI(t, "project", "--entity", midUnit, "--from", "2016-06-01", "--to", "2018-01-01")
	require.NoError(t, err)
	effects := out["effects"].([]any)
	require.Len(t, effects, 3)

	first := effects[0].(map[string]any)
	require.Equal(t, "inactive", first["state"])
	require.Equal(t, "2016-06-01T00:00:00Z", first["interval"].(map[string]any)["from"])
}

func TestProject_AsOf(t *testing.T) {
	out, err := runCLI(t, "project", "--entity", engagement, "--attr", "function_validity", "--as-of", "2017-03-01")
	require.NoError(t, err)
	effects := out["effects"].([]any)
	require.Len(t, effects, 1)
	state := effects[0].(map[string]any)["state"].(map[string]any)
	require.Equal(t, midUnit, state["target"])
}

func TestSplice_WithDiff(t *testing.T) {
	out, err := runCLI(t, "splice",
		"--uuid", engagement,
		"--original-from", "2017-02-01", "--original-to", "2017-06-01",
		"--from", "2017-03-01", "--to", "2017-08-01",
		"--person", employee,
		"--diff",
	)
	require.NoError(t, err)
	result := out["result"].(map[string]any)
	payload := result["payload"].(map[string]any)
	require.Len(t, payload["fragments"].([]any), 2)
	require.Equal(t, "Edit engagement", payload["note"])
	require.NotEmpty(t, out["diff"])
}

func TestSplice_StaleOriginal(t *testing.T) {
	out, err := runCLI(t, "splice",
		"--uuid", engagement,
		"--original-from", "2017-02-01", "--original-to", "2017-05-01",
		"--from", "2017-03-01", "--to", "2017-08-01",
		"--person", employee,
	)
	require.Error(t, err)
	require.Equal(t, exitValidation, exitCode(err))
	require.Equal(t, services.CodeStaleEdit, out["error"].(map[string]any)["code"])
}

func TestTerminate(t *testing.T) {
	out, err := runCLI(t, "terminate",
		"--uuid", engagement,
		"--original-from", "2017-02-01", "--original-to", "2017-06-01",
		"--at", "2017-04-01",
	)
	require.NoError(t, err)
	payload := out["result"].(map[string]any)["payload"].(map[string]any)
	frags := payload["fragments"].([]any)
	require.Len(t, frags, 2)
	require.Equal(t, "inactive", frags[1].(map[string]any)["state"])
}

func TestCheckParent(t *testing.T) {
	out, err := runCLI(t, "check-parent", "--root", rootUnit, "--unit", midUnit, "--candidate", leafUnit, "--as-of-date", "2017-03-01")
	require.Error(t, err)
	require.Equal(t, services.CodeOrgUnitMoveToChild, out["error"].(map[string]any)["code"])

	out, err = runCLI(t, "check-parent", "--root", rootUnit, "--unit", rootUnit, "--candidate", leafUnit, "--as-of-date", "2017-03-01")
	require.Error(t, err)
	require.Equal(t, services.CodeCannotMoveRootOrgUnit, out["error"].(map[string]any)["code"])

	out, err = runCLI(t, "check-parent", "--root", rootUnit, "--unit", leafUnit, "--candidate", midUnit, "--as-of-date", "2017-10-01")
	require.Error(t, err)
	require.Equal(t, services.CodeOrgUnitInactiveAncestor, out["error"].(map[string]any)["code"])

	out, err = runCLI(t, "check-parent", "--root", rootUnit, "--unit", leafUnit, "--candidate", rootUnit, "--as-of-date", "2017-03-01")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
}

func TestCheckInactivation(t *testing.T) {
	out, err := runCLI(t, "check-inactivation", "--unit", midUnit, "--date", "2017-06-01")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])

	out, err = runCLI(t, "check-inactivation", "--unit", midUnit, "--date", "2017-05-01")
	require.Error(t, err)
	require.Equal(t, services.CodeInvalidInactivationDate, out["error"].(map[string]any)["code"])
}

func TestUsageErrors(t *testing.T) {
	_, err := runCLI(t, "covers", "--entity", "not-a-uuid")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runCLI(t, "covers", "--entity", midUnit, "--from", "yesterday")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runCLI(t, "covers", "--entity", midUnit, "--kind", "position")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, 1, exitCode(errors.New("boom")))
	require.Equal(t, exitDBWrite, exitCode(&services.StoreError{Op: "update", Err: errors.New("boom")}))
	require.Equal(t, exitDB, exitCode(&services.StoreError{Op: "get", Err: errors.New("boom")}))
	require.Equal(t, exitValidation, exitCode(&services.ServiceError{Code: services.CodeStaleEdit}))
}

func TestMetricsFlag_DumpsValidityCounters(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--fixture", fixturePath, "--metrics", "covers", "--entity", midUnit, "--from", "2017-01-01", "--to", "2017-08-29"})
	require.NoError(t, cmd.Execute())

	require.Contains(t, stderr.String(), "org_validity_store_calls_total")
	require.Contains(t, stderr.String(), `op="get_effects"`)
}
