package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/worker-sdk/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParameters_YAML(t *testing.T) {
	path := writeFile(t, "worker.yaml", `
worker_type: RustWorker
host: 127.0.0.1
port: 7000
log_level: debug
connection_timeout: 2s
attributes: [physics]
locator:
  host: locator.example
  project: demo
`)
	p, err := LoadParameters(path)
	require.NoError(t, err)

	assert.Equal(t, "RustWorker", p.WorkerType)
	assert.True(t, strings.HasPrefix(p.WorkerID, "RustWorker-"))
	assert.Equal(t, "127.0.0.1", p.Host)
	assert.Equal(t, uint16(7000), p.Port)
	assert.Equal(t, "debug", p.LogLevel)
	assert.Equal(t, 2*time.Second, p.ConnectionTimeout)
	assert.Equal(t, DefaultHeartbeatInterval, p.HeartbeatInterval)
	assert.Equal(t, DefaultPollInterval, p.PollInterval)
	assert.Equal(t, []string{"physics", "RustWorker"}, p.Attributes)
	assert.Equal(t, LocatorParams{Host: "locator.example", Project: "demo"}, p.Locator)
}

func TestLoadParameters_TOML(t *testing.T) {
	path := writeFile(t, "worker.toml", `
worker_type = "RustWorker"
worker_id = "w1"
port = 7001
heartbeat_interval = "500ms"
attributes = ["RustWorker"]
`)
	p, err := LoadParameters(path)
	require.NoError(t, err)

	assert.Equal(t, "w1", p.WorkerID)
	assert.Equal(t, DefaultHost, p.Host)
	assert.Equal(t, uint16(7001), p.Port)
	assert.Equal(t, 500*time.Millisecond, p.HeartbeatInterval)
	assert.Equal(t, []string{"RustWorker"}, p.Attributes, "worker type is not duplicated")
}

func TestLoadParameters_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		kind    errors.Kind
	}{
		{"unknown yaml key", "w.yaml", "worker_type: A\nbogus: 1\n", errors.KindInvalidInput},
		{"unknown toml key", "w.toml", "worker_type = \"A\"\nbogus = 1\n", errors.KindInvalidInput},
		{"malformed yaml", "w.yml", "worker_type: [\n", errors.KindInvalidInput},
		{"missing worker type", "w.yaml", "port: 1\n", errors.KindInvalidInput},
		{"bad log level", "w.yaml", "worker_type: A\nlog_level: loud\n", errors.KindInvalidInput},
		{"unsupported extension", "w.json", "{}", errors.KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadParameters(writeFile(t, tt.file, tt.content))
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errors.PhaseConfig, e.Phase)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}

	_, err := LoadParameters(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParameters_Validate(t *testing.T) {
	p := DefaultParameters("A")
	p.Normalize()
	require.NoError(t, p.Validate())

	bad := p
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = p
	bad.Host = ""
	assert.Error(t, bad.Validate())

	bad = p
	bad.PollInterval = -time.Millisecond
	assert.Error(t, bad.Validate())
}

func TestParameters_Native(t *testing.T) {
	p := DefaultParameters("A")
	p.LogLevel = "warn"
	p.Normalize()
	n := p.native()

	assert.Equal(t, "A", n.WorkerType)
	assert.Equal(t, uint8(LogWarn), n.LogLevel)
	assert.Equal(t, uint32(10000), n.HeartbeatMillis)
	assert.Equal(t, []string{"A"}, n.Attributes)
}

func TestEnums(t *testing.T) {
	assert.Equal(t, Authoritative, AuthorityFromRaw(1))
	assert.True(t, AuthorityLossImminent.HasAuthority())
	assert.False(t, NotAuthoritative.HasAuthority())
	assertFatal(t, func() { AuthorityFromRaw(9) })

	assert.Equal(t, LogError, LogLevelFromRaw(4))
	assertFatal(t, func() { LogLevelFromRaw(0) })
	assertFatal(t, func() { LogLevelFromRaw(6) })

	l, err := ParseLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, LogWarn, l)
	assert.Equal(t, "warn", l.String())

	assert.Equal(t, "permission_denied", StatusPermissionDenied.String())
}

func assertFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(*errors.Error)
		require.True(t, ok, "panic value %v", r)
		assert.True(t, e.Fatal())
	}()
	fn()
}
