package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navbytes/requestkit/pkg/cli"
)

// execute runs the CLI with args against an isolated config directory and
// returns captured stdout and stderr.
func execute(t *testing.T, configDir string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("REQUESTKIT_CONFIG_DIR", configDir)

	cmd := cli.NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "resolve", "Bearer ${API_TOKEN}", "--var", "API_TOKEN=abc123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc123\n", stdout)
}

func TestResolveCommandWithRequest(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "resolve", "${domain()}${path()}",
		"--url", "https://api.example.com/v1/users", "--method", "GET")
	require.NoError(t, err)
	assert.Equal(t, "api.example.com/v1/users\n", stdout)
}

func TestResolveCommandRequestJSON(t *testing.T) {
	dir := t.TempDir()
	requestFile := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(requestFile, []byte(`{
		"url": "https://api.example.com/v2?id=9",
		"method": "PUT",
		"headers": {"X-Env": "ci"}
	}`), 0600))

	stdout, _, err := execute(t, dir, "resolve", `${method()} ${query("id")} ${header("x-env")}`,
		"--request-json", requestFile)
	require.NoError(t, err)
	assert.Equal(t, "PUT 9 ci\n", stdout)
}

func TestResolveCommandFailure(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := execute(t, dir, "resolve", "${MISSING}")
	require.Error(t, err)
	assert.Contains(t, stderr, "MISSING")
	assert.Contains(t, stderr, "unresolved")
}

func TestResolveCommandShowVars(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "resolve", "${A}-${B}",
		"--var", "A=1", "--var", "B=2", "--show-vars")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1-2\n")
	assert.Contains(t, stdout, "resolved: A, B")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "validate", "Bearer ${API_TOKEN}")
	require.NoError(t, err)
	assert.Contains(t, stdout, "reference: ${API_TOKEN}")
	assert.Contains(t, stdout, "✓ Value is valid")

	_, stderr, err := execute(t, dir, "validate", "Bearer ${unterminated")
	require.Error(t, err)
	assert.Contains(t, stderr, "✗ Value has errors")

	_, stderr, err = execute(t, dir, "validate", "x", "--name", "2bad")
	require.Error(t, err)
	assert.Contains(t, stderr, "digit")
}

func TestFunctionsCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "functions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "uuid()")
	assert.Contains(t, stdout, "random(min, max)")
	assert.Contains(t, stdout, "substring(value, start, [end])")
	assert.Contains(t, stdout, "date([format])")
}

func TestVarsLifecycle(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "vars", "set", "API_TOKEN", "abc123")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Saved global variable "API_TOKEN"`)

	stdout, _, err = execute(t, dir, "vars", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "API_TOKEN")
	assert.Contains(t, stdout, "abc123")

	// Updating keeps a single row.
	_, _, err = execute(t, dir, "vars", "set", "API_TOKEN", "rotated")
	require.NoError(t, err)
	stdout, _, err = execute(t, dir, "vars", "list", "--scope", "global")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rotated")
	assert.NotContains(t, stdout, "abc123")

	// Stored variables feed resolve --store.
	stdout, _, err = execute(t, dir, "resolve", "Bearer ${API_TOKEN}", "--store")
	require.NoError(t, err)
	assert.Equal(t, "Bearer rotated\n", stdout)

	stdout, _, err = execute(t, dir, "vars", "delete", "API_TOKEN")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Deleted global variable "API_TOKEN"`)

	_, _, err = execute(t, dir, "vars", "delete", "API_TOKEN")
	assert.Error(t, err, "second delete finds nothing")
}

func TestVarsSetRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, dir, "vars", "set", "bad name", "x")
	assert.Error(t, err)

	_, _, err = execute(t, dir, "vars", "set", "OK", "${unterminated")
	assert.Error(t, err)

	_, _, err = execute(t, dir, "vars", "set", "OK", "x", "--scope", "galaxy")
	assert.Error(t, err)
}

const cliProfileYAML = `
version: "1"
name: staging
variables:
  - name: trace_id
    value: "${uuid()}"
rules:
  - name: auth
    domain: api.example.com
    headers:
      - name: X-Trace
        value: "${trace_id}"
`

func TestProfileLifecycle(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "staging.yaml")
	require.NoError(t, os.WriteFile(file, []byte(cliProfileYAML), 0600))

	stdout, _, err := execute(t, dir, "profile", "import", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Imported profile "staging"`)

	stdout, _, err = execute(t, dir, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "staging")

	stdout, _, err = execute(t, dir, "profile", "export", "staging")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: staging")
	assert.Contains(t, stdout, "trace_id")

	outFile := filepath.Join(dir, "out.yaml")
	stdout, _, err = execute(t, dir, "profile", "export", "staging", "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported")
	_, err = os.Stat(outFile)
	require.NoError(t, err)

	// Profile variables are visible to resolve --profile.
	stdout, _, err = execute(t, dir, "resolve", "id=${trace_id}", "--profile", "staging")
	require.NoError(t, err)
	assert.Regexp(t, `^id=[0-9a-f-]{36}\n$`, stdout)

	stdout, _, err = execute(t, dir, "profile", "delete", "staging")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Deleted profile "staging"`)

	_, _, err = execute(t, dir, "profile", "list")
	require.NoError(t, err)
}

func TestProfileImportJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"name": "from-extension",
		"variables": [{"name": "API_TOKEN", "value": "tok"}],
		"rules": [{
			"name": "auth",
			"pattern": {"domain": "api.example.com"},
			"headers": [{"operation": "set", "name": "Authorization", "value": "Bearer ${API_TOKEN}"}]
		}]
	}`), 0600))

	stdout, _, err := execute(t, dir, "profile", "import", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Imported profile "from-extension"`)

	stdout, _, err = execute(t, dir, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "from-extension")
}

func TestProfileImportBadFile(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, dir, "profile", "import", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"description": "no name"}`), 0600))
	_, _, err = execute(t, dir, "profile", "import", bad)
	assert.Error(t, err)
}
