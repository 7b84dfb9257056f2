package worker

import (
	"strings"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// Authority is a worker's write access to a component of an entity.
type Authority uint8

const (
	NotAuthoritative Authority = iota
	Authoritative
	AuthorityLossImminent
)

// AuthorityFromRaw converts a native authority value. Values outside the
// known set break the native contract and panic.
func AuthorityFromRaw(raw uint8) Authority {
	switch a := Authority(raw); a {
	case NotAuthoritative, Authoritative, AuthorityLossImminent:
		return a
	default:
		panic(errors.Fatal(errors.PhaseNative, "unknown authority value %d", raw))
	}
}

// HasAuthority reports whether the worker may write the component.
func (a Authority) HasAuthority() bool {
	return a == Authoritative || a == AuthorityLossImminent
}

func (a Authority) String() string {
	switch a {
	case NotAuthoritative:
		return "not_authoritative"
	case Authoritative:
		return "authoritative"
	case AuthorityLossImminent:
		return "authority_loss_imminent"
	default:
		return "unknown"
	}
}

// LogLevel is the severity of a log message sent to or received from the
// runtime.
type LogLevel uint8

const (
	LogDebug LogLevel = iota + 1
	LogInfo
	LogWarn
	LogError
	LogFatal
)

// LogLevelFromRaw converts a native log level. Values outside the known set
// break the native contract and panic.
func LogLevelFromRaw(raw uint8) LogLevel {
	l := LogLevel(raw)
	if l < LogDebug || l > LogFatal {
		panic(errors.Fatal(errors.PhaseNative, "unknown log level value %d", raw))
	}
	return l
}

// ParseLogLevel parses a level name as used in parameters files.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogDebug, nil
	case "info":
		return LogInfo, nil
	case "warn", "warning":
		return LogWarn, nil
	case "error":
		return LogError, nil
	case "fatal":
		return LogFatal, nil
	default:
		return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(s).
			Detail("unknown log level %q", s).
			Build()
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	case LogFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StatusCode is the outcome of a command or entity query.
type StatusCode uint8

const (
	StatusSuccess          = StatusCode(native.StatusSuccess)
	StatusTimeout          = StatusCode(native.StatusTimeout)
	StatusNotFound         = StatusCode(native.StatusNotFound)
	StatusAuthorityLost    = StatusCode(native.StatusAuthorityLost)
	StatusPermissionDenied = StatusCode(native.StatusPermissionDenied)
	StatusApplicationError = StatusCode(native.StatusApplicationError)
	StatusInternalError    = StatusCode(native.StatusInternalError)
)

func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	case StatusNotFound:
		return "not_found"
	case StatusAuthorityLost:
		return "authority_lost"
	case StatusPermissionDenied:
		return "permission_denied"
	case StatusApplicationError:
		return "application_error"
	case StatusInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}
