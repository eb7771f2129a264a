package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
id: piko-a
name: PIKO A
widthMm: 45
components:
  - id: G231
    type: straight
    lengthMm: 231
  - id: R1
    type: curve
    radiusMm: 422
    angleDeg: 30
`

const validLayout = `{
  "id": "yard",
  "trackSystem": "piko-a",
  "items": [
    {"id": "a", "componentId": "G231", "x": 0, "y": 0, "rotationDeg": 0, "isGrounded": true},
    {"id": "b", "componentId": "G231", "x": 231, "y": 0, "rotationDeg": 0}
  ],
  "connections": [
    {"a": {"itemId": "a", "connectorKey": "end"}, "b": {"itemId": "b", "connectorKey": "start"}}
  ]
}`

const brokenLayout = `{
  "trackSystem": "piko-a",
  "items": [{"id": "a", "componentId": "W99", "x": 0, "y": 0, "rotationDeg": 0}],
  "connections": []
}`

type fixture struct {
	dir     string
	catalog string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, catalog: filepath.Join(dir, "piko-a.yaml")}
	require.NoError(t, os.WriteFile(f.catalog, []byte(testCatalog), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yard.json"), []byte(validLayout), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(brokenLayout), 0644))
	return f
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func execute(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--catalog", f.catalog, "--store-path", f.path("layouts")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, newFixture(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "railyard version ")
}

func TestValidateCommand(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, f, "validate", f.path("yard.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog piko-a is valid (2 components)")
	assert.Contains(t, out, "is valid (2 items, 1 connections)")

	out, err = execute(t, f, "validate", f.path("yard.json"), f.path("broken.json"))
	assert.ErrorIs(t, err, errValidation)
	assert.Contains(t, out, "broken.json is invalid")
	assert.Contains(t, out, `unknown component "W99"`)
}

func TestValidateCommand_StoredLayout(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, f, "validate", "ghost")
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)

	_, err = execute(t, f, "--store", "carrier-pigeon", "validate", "ghost")
	assert.ErrorContains(t, err, "unknown store")
}

func TestGraphCommand(t *testing.T) {
	f := newFixture(t)
	out, err := execute(t, f, "graph", f.path("yard.json"), "--highlight", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "graph LR")
	assert.Contains(t, out, `a ---|"end - start"| b`)
	assert.Contains(t, out, "class a grounded;")
	assert.Contains(t, out, "class b highlight;")
}

func TestReportCommand(t *testing.T) {
	f := newFixture(t)
	out, err := execute(t, f, "report", f.path("yard.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "# Layout yard")
	assert.Contains(t, out, "| 1 | a, b | yes |")
	assert.Contains(t, out, "- `b:end` at (462.0, 0.0) facing 0.0°")
}

func TestInspectCommand(t *testing.T) {
	f := newFixture(t)
	out, err := execute(t, f, "inspect", "G231")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "G231"`)
	assert.Contains(t, out, `"pathD": "M 0 0 L 231 0"`)

	_, err = execute(t, f, "inspect", "W99")
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
}

func TestMissingCatalog(t *testing.T) {
	f := newFixture(t)
	f.catalog = f.path("missing.yaml")
	_, err := execute(t, f, "inspect")
	assert.ErrorContains(t, err, "failed to load catalog")
}
