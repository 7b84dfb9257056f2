package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // Go to schema object
	PhaseDecode   Phase = "decode"   // schema object to Go
	PhaseRegistry Phase = "registry" // component vtable registration and lookup
	PhaseSnapshot Phase = "snapshot" // snapshot streams
	PhaseConnect  Phase = "connect"  // connection establishment
	PhaseCommand  Phase = "command"  // command requests and responses
	PhaseNative   Phase = "native"   // native runtime contract
	PhaseFuture   Phase = "future"   // async completion handling
	PhaseConfig   Phase = "config"   // worker parameters
	PhaseLoad     Phase = "load"     // schema bundle loading
	PhaseValidate Phase = "validate" // data validation
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch     Kind = "type_mismatch"
	KindInvalidData      Kind = "invalid_data"
	KindUnsupported      Kind = "unsupported"
	KindUnknownComponent Kind = "unknown_component"
	KindNativeError      Kind = "native_error"
	KindInvalidEntityID  Kind = "invalid_entity_id"
	KindContract         Kind = "contract"
	KindRegistration     Kind = "registration"
	KindReservedID       Kind = "reserved_id"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindCanceled         Kind = "canceled"
	KindTimeout          Kind = "timeout"
	KindDisconnected     Kind = "disconnected"
	KindClosed           Kind = "closed"
)

// Error is the structured error type used throughout the SDK
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	Component string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Component != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Component != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", component ")
			b.WriteString(e.Component)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("component ")
			b.WriteString(e.Component)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Component != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error signals a broken native contract or a
// programming error that must not be recovered from.
func (e *Error) Fatal() bool {
	return e.Kind == KindContract
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Component sets the component name or id
func (b *Builder) Component(c string) *Builder {
	b.err.Component = c
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Fatal creates a contract violation error. Callers panic with it.
func Fatal(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindContract).Detail(detail, args...).Build()
}

// UnknownComponent creates the lookup failure for an unregistered component id
func UnknownComponent(phase Phase, id uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindUnknownComponent,
		Component: fmt.Sprintf("%d", id),
		Detail:    "no such component",
		Value:     id,
	}
}

// NativeError wraps an error string returned by the native runtime
func NativeError(phase Phase, op, msg string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNativeError,
		Detail: fmt.Sprintf("%s: %s", op, msg),
		Value:  msg,
	}
}

// InvalidEntityID creates an error for entity ids that are not strictly positive
func InvalidEntityID(phase Phase, id int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEntityID,
		Detail: fmt.Sprintf("entity id %d is not positive", id),
		Value:  id,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, component string, want string, got any) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		Component: component,
		GoType:    fmt.Sprintf("%T", got),
		Detail:    "expected " + want,
		Value:     got,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(id uint32, name string, detail string) *Error {
	return &Error{
		Phase:     PhaseRegistry,
		Kind:      KindRegistration,
		Component: name,
		Detail:    detail,
		Value:     id,
	}
}

// ReservedID creates an error for component ids in a reserved range
func ReservedID(id uint32, name string) *Error {
	return &Error{
		Phase:     PhaseRegistry,
		Kind:      KindReservedID,
		Component: name,
		Detail:    fmt.Sprintf("component id %d is in a reserved range", id),
		Value:     id,
	}
}

// Closed creates an error for operations on released objects or streams
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// Load creates a schema bundle loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a worker parameters error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
