package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/snapshot"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func generateSnapshot(t *testing.T, entities string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.snapshot")
	out, err := run(t, "generate", path, "--entities", entities)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+entities+" entities")
	return path
}

func TestGenerateAndDump(t *testing.T) {
	path := generateSnapshot(t, "4")

	out, err := run(t, "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "entity 1\n")
	assert.Contains(t, out, "entity 4\n")
	assert.Contains(t, out, "improbable.Metadata")
	assert.Contains(t, out, "Spawner")
	assert.Contains(t, out, "4 entities")
}

func TestDumpJSON(t *testing.T) {
	path := generateSnapshot(t, "2")

	out, err := run(t, "dump", path, "--format", "json")
	require.NoError(t, err)

	var dumps []struct {
		Components []struct {
			Name string `json:"name"`
			ID   uint32 `json:"id"`
		} `json:"components"`
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &dumps))
	require.Len(t, dumps, 2)
	assert.Equal(t, int64(1), dumps[0].ID)
	assert.Len(t, dumps[0].Components, 4)
}

func TestDumpWithBundle(t *testing.T) {
	path := generateSnapshot(t, "1")
	bundlePath := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(bundlePath, []byte(`{
		"components": [
			{"name": "demo.Health", "id": 1000, "fields": [
				{"name": "current", "type": "int32", "id": 1}
			]}
		]
	}`), 0o644))

	out, err := run(t, "dump", path, "--bundle", bundlePath)
	require.NoError(t, err)
	assert.Contains(t, out, "improbable.Position")
}

func TestConnect(t *testing.T) {
	path := generateSnapshot(t, "3")

	out, err := run(t, "connect", path, "--worker-type", "Physics")
	require.NoError(t, err)
	assert.Contains(t, out, "entity 3\n")
	assert.Contains(t, out, "authoritative")
	assert.Contains(t, out, "3 entities in view")
}

func TestConnectParamsFile(t *testing.T) {
	path := generateSnapshot(t, "1")
	params := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(params, []byte("worker_type: Physics\nport: 0\n"), 0o644))

	_, err := run(t, "connect", path, "--params", params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestRootErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{"dump", "x", "--format", "xml"}, "invalid format"},
		{"bad log level", []string{"dump", "x", "--log-level", "loud"}, "invalid log level"},
		{"missing bundle", []string{"dump", "x", "--bundle", "/nonexistent/schema.json"}, "schema.json"},
		{"missing snapshot", []string{"dump", "/nonexistent/default.snapshot"}, "default.snapshot"},
		{"no entities", []string{"generate", "x", "--entities", "0"}, "--entities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBrowseModel(t *testing.T) {
	path := generateSnapshot(t, "3")
	reg, err := loadRegistry("")
	require.NoError(t, err)

	m := newBrowseModel(reg, path)
	m.Update(m.load())
	require.True(t, m.loaded)
	require.NoError(t, m.err)
	assert.Len(t, m.visible, 3)
	assert.Contains(t, m.View(), "Spawner")

	m.filter.SetValue("spawner")
	m.applyFilter()
	assert.Equal(t, []int{0}, m.visible)

	m.filter.SetValue("")
	m.applyFilter()
	assert.Len(t, m.visible, 3)
}

func TestReadSnapshotFreesEverything(t *testing.T) {
	path := generateSnapshot(t, "2")
	reg, err := loadRegistry("")
	require.NoError(t, err)

	dumps, err := readSnapshot(reg, path)
	require.NoError(t, err)
	require.Len(t, dumps, 2)

	stats := &objectStats{}
	rt := local.New()
	rt.Subscribe(stats)
	records, err := snapshot.ReadAll(rt, reg, path)
	require.NoError(t, err)
	for _, r := range records {
		r.Entity.Close()
	}
	rt.Unsubscribe(stats)
	require.NoError(t, rt.Close())

	assert.Positive(t, stats.created.Load())
	assert.Equal(t, stats.created.Load(), stats.dropped.Load())
}
