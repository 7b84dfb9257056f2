package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseDecode,
				Kind:      KindTypeMismatch,
				Path:      []string{"acl", "read_acl", "attribute_set"},
				GoType:    "string",
				Component: "improbable.EntityAcl",
				Detail:    "cannot convert",
			},
			contains: []string{"[decode]", "type_mismatch", "acl.read_acl.attribute_set", "string", "improbable.EntityAcl", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRegistry,
				Kind:  KindUnknownComponent,
			},
			contains: []string{"[registry]", "unknown_component"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseSnapshot,
				Kind:   KindNativeError,
				Detail: "write entity",
				Cause:  errors.New("disk full"),
			},
			contains: []string{"[snapshot]", "native_error", "write entity", "caused by", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseConnect,
		Kind:  KindNativeError,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseRegistry,
		Kind:  KindUnknownComponent,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseRegistry, Kind: KindUnknownComponent}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindUnknownComponent}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRegistry, Kind: KindNotFound}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseRegistry, Kind: KindUnknownComponent}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindTypeMismatch).
		Path("position", "coords").
		GoType("string").
		Component("improbable.Position").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "Coordinates", "int").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "position" || err.Path[1] != "coords" {
		t.Errorf("Path = %v, want [position coords]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.Component != "improbable.Position" {
		t.Errorf("Component = %v, want 'improbable.Position'", err.Component)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected Coordinates, got int" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Fatal", func(t *testing.T) {
		err := Fatal(PhaseNative, "create %s returned null", "component data")
		if !err.Fatal() {
			t.Error("Fatal() should be true for contract errors")
		}
		if err.Detail != "create component data returned null" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("UnknownComponent", func(t *testing.T) {
		err := UnknownComponent(PhaseRegistry, 1234)
		if err.Kind != KindUnknownComponent {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownComponent)
		}
		if err.Fatal() {
			t.Error("unknown component must be reportable")
		}
		if !strings.Contains(err.Error(), "1234") {
			t.Errorf("message %q should carry the id", err.Error())
		}
	})

	t.Run("NativeError", func(t *testing.T) {
		err := NativeError(PhaseSnapshot, "write entity", "stream closed")
		if err.Kind != KindNativeError {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNativeError)
		}
		if err.Value != "stream closed" {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("InvalidEntityID", func(t *testing.T) {
		err := InvalidEntityID(PhaseSnapshot, 0)
		if err.Kind != KindInvalidEntityID {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEntityID)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseEncode, "Position", "improbable.Position", 3)
		if err.GoType != "int" {
			t.Errorf("GoType = %v, want int", err.GoType)
		}
	})

	t.Run("ReservedID", func(t *testing.T) {
		err := ReservedID(50, "Custom")
		if err.Kind != KindReservedID {
			t.Errorf("Kind = %v, want %v", err.Kind, KindReservedID)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseSnapshot, "output stream")
		if err.Detail != "output stream is closed" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})
}
