package worker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// Parameters configure a worker connection.
type Parameters struct {
	WorkerType        string        `yaml:"worker_type" toml:"worker_type"`
	WorkerID          string        `yaml:"worker_id" toml:"worker_id"`
	Host              string        `yaml:"host" toml:"host"`
	LogLevel          string        `yaml:"log_level" toml:"log_level"`
	Locator           LocatorParams `yaml:"locator" toml:"locator"`
	Attributes        []string      `yaml:"attributes" toml:"attributes"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" toml:"heartbeat_interval"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" toml:"connection_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	Port              uint16        `yaml:"port" toml:"port"`
}

// LocatorParams name the locator service and project for deployment
// queries.
type LocatorParams struct {
	Host    string `yaml:"host" toml:"host"`
	Project string `yaml:"project" toml:"project"`
}

// Default parameter values.
const (
	DefaultHost              = "localhost"
	DefaultPort              = 7777
	DefaultLogLevel          = "info"
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultConnectionTimeout = 10 * time.Second
	DefaultPollInterval      = 10 * time.Millisecond
)

// DefaultParameters returns parameters for a worker of the given type with
// every other field at its default.
func DefaultParameters(workerType string) Parameters {
	return Parameters{
		WorkerType:        workerType,
		Host:              DefaultHost,
		Port:              DefaultPort,
		LogLevel:          DefaultLogLevel,
		HeartbeatInterval: DefaultHeartbeatInterval,
		ConnectionTimeout: DefaultConnectionTimeout,
		PollInterval:      DefaultPollInterval,
	}
}

// LoadParameters reads parameters from a .yaml, .yml or .toml file. Fields
// missing from the file keep their defaults. The result is normalized and
// validated.
func LoadParameters(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, errors.Config("cannot read "+path, err)
	}

	p := DefaultParameters("")
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Parameters{}, errors.Config("parse error in "+path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &p)
		if err != nil {
			return Parameters{}, errors.Config("parse error in "+path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Parameters{}, errors.Config("unknown key "+undecoded[0].String()+" in "+path, nil)
		}
	default:
		return Parameters{}, errors.New(errors.PhaseConfig, errors.KindUnsupported).
			Detail("unsupported parameters file extension %q", ext).
			Build()
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// Normalize fills derived fields: an empty worker id becomes
// "<worker type>-<uuid>" and the worker type is added to the attributes.
func (p *Parameters) Normalize() {
	if p.WorkerID == "" && p.WorkerType != "" {
		p.WorkerID = p.WorkerType + "-" + uuid.NewString()
	}
	if p.LogLevel == "" {
		p.LogLevel = DefaultLogLevel
	}
	if p.PollInterval == 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.WorkerType != "" {
		for _, a := range p.Attributes {
			if a == p.WorkerType {
				return
			}
		}
		p.Attributes = append(p.Attributes, p.WorkerType)
	}
}

// Validate reports the first invalid field.
func (p Parameters) Validate() error {
	switch {
	case p.WorkerType == "":
		return errors.Config("worker_type is required", nil)
	case p.Host == "":
		return errors.Config("host is required", nil)
	case p.Port == 0:
		return errors.Config("port must be non-zero", nil)
	case p.HeartbeatInterval < 0 || p.ConnectionTimeout < 0 || p.PollInterval <= 0:
		return errors.Config("durations must be positive", nil)
	}
	if _, err := ParseLogLevel(p.LogLevel); err != nil {
		return err
	}
	return nil
}

// native converts the parameters to their native form.
func (p Parameters) native() native.ConnectionParameters {
	level, _ := ParseLogLevel(p.LogLevel)
	return native.ConnectionParameters{
		WorkerType:        p.WorkerType,
		LogLevel:          uint8(level),
		HeartbeatMillis:   uint32(p.HeartbeatInterval.Milliseconds()),
		ConnectionTimeout: uint32(p.ConnectionTimeout.Milliseconds()),
		Attributes:        p.Attributes,
	}
}
