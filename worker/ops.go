package worker

import (
	"io"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// Op is one operation received from the deployment.
type Op interface {
	Type() native.OpType
}

// DisconnectOp reports that the connection was lost or never established.
type DisconnectOp struct {
	Reason string
	Status StatusCode
}

// FlagUpdateOp reports a change of a worker flag.
type FlagUpdateOp struct {
	Name string
}

// LogMessageOp is a log message from the runtime.
type LogMessageOp struct {
	Message string
	Level   LogLevel
}

// MetricsOp requests the worker's metrics.
type MetricsOp struct{}

// CriticalSectionOp brackets ops that must be applied atomically.
type CriticalSectionOp struct {
	InCriticalSection bool
}

// AddEntityOp reports an entity entering the worker's view.
type AddEntityOp struct {
	EntityID int64
}

// RemoveEntityOp reports an entity leaving the worker's view.
type RemoveEntityOp struct {
	EntityID int64
}

// EntityCommandResponseOp answers an entity id reservation, entity
// creation, deletion or query.
type EntityCommandResponseOp struct {
	Message   string
	EntityID  int64
	RequestID RequestID
	Status    StatusCode
	Kind      native.OpType
}

// AddComponentOp delivers the initial data of a component. Value holds the
// decoded component value; Err is set when the component could not be
// decoded.
type AddComponentOp struct {
	Value       any
	Err         error
	EntityID    int64
	ComponentID uint32
}

// RemoveComponentOp reports a component leaving the worker's view.
type RemoveComponentOp struct {
	EntityID    int64
	ComponentID uint32
}

// AuthorityChangeOp reports a change of the worker's authority over a
// component.
type AuthorityChangeOp struct {
	EntityID    int64
	ComponentID uint32
	Authority   Authority
}

// ComponentUpdateOp delivers a decoded component update.
type ComponentUpdateOp struct {
	Update      any
	Err         error
	EntityID    int64
	ComponentID uint32
}

// CommandRequestOp delivers a command sent to a component the worker is
// authoritative over. Request is owned by the op list.
type CommandRequestOp struct {
	Request     *schema.CommandRequest
	Err         error
	EntityID    int64
	RequestID   RequestID
	ComponentID uint32
}

// CommandResponseOp answers a command request sent by the worker. Response
// is nil unless Status is StatusSuccess; it is owned by the op list.
type CommandResponseOp struct {
	Response    *schema.CommandResponse
	Message     string
	EntityID    int64
	RequestID   RequestID
	ComponentID uint32
	Status      StatusCode
}

func (DisconnectOp) Type() native.OpType              { return native.OpDisconnect }
func (FlagUpdateOp) Type() native.OpType              { return native.OpFlagUpdate }
func (LogMessageOp) Type() native.OpType              { return native.OpLogMessage }
func (MetricsOp) Type() native.OpType                 { return native.OpMetrics }
func (CriticalSectionOp) Type() native.OpType         { return native.OpCriticalSection }
func (AddEntityOp) Type() native.OpType               { return native.OpAddEntity }
func (RemoveEntityOp) Type() native.OpType            { return native.OpRemoveEntity }
func (o EntityCommandResponseOp) Type() native.OpType { return o.Kind }
func (AddComponentOp) Type() native.OpType            { return native.OpAddComponent }
func (RemoveComponentOp) Type() native.OpType         { return native.OpRemoveComponent }
func (AuthorityChangeOp) Type() native.OpType         { return native.OpAuthorityChange }
func (ComponentUpdateOp) Type() native.OpType         { return native.OpComponentUpdate }
func (CommandRequestOp) Type() native.OpType          { return native.OpCommandRequest }
func (CommandResponseOp) Type() native.OpType         { return native.OpCommandResponse }

// OpList is a batch of decoded ops. Close releases the command payloads it
// owns.
type OpList struct {
	Ops []Op
}

// Errors returns the decode errors carried by the ops, in order.
func (l *OpList) Errors() []error {
	var errs []error
	for _, op := range l.Ops {
		if err := opError(op); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close releases every command payload of the list.
func (l *OpList) Close() error {
	for _, op := range l.Ops {
		var c io.Closer
		switch o := op.(type) {
		case CommandRequestOp:
			if o.Request != nil {
				c = o.Request
			}
		case CommandResponseOp:
			if o.Response != nil {
				c = o.Response
			}
		}
		if c != nil {
			c.Close()
		}
	}
	return nil
}

func opError(op Op) error {
	switch o := op.(type) {
	case AddComponentOp:
		return o.Err
	case ComponentUpdateOp:
		return o.Err
	case CommandRequestOp:
		return o.Err
	}
	return nil
}

// decodeOp converts a native op. Data owned by the native op list is
// decoded or copied before the list is destroyed.
func decodeOp(rt native.Runtime, reg *component.Registry, op native.Op) Op {
	switch op.Type {
	case native.OpDisconnect:
		return DisconnectOp{Reason: op.Message, Status: StatusCode(op.StatusCode)}
	case native.OpFlagUpdate:
		return FlagUpdateOp{Name: op.Message}
	case native.OpLogMessage:
		return LogMessageOp{Level: LogLevelFromRaw(op.LogLevel), Message: op.Message}
	case native.OpMetrics:
		return MetricsOp{}
	case native.OpCriticalSection:
		return CriticalSectionOp{InCriticalSection: op.StatusCode != 0}
	case native.OpAddEntity:
		return AddEntityOp{EntityID: op.EntityID}
	case native.OpRemoveEntity:
		return RemoveEntityOp{EntityID: op.EntityID}
	case native.OpReserveEntityIDsResponse, native.OpCreateEntityResponse,
		native.OpDeleteEntityResponse, native.OpEntityQueryResponse:
		return EntityCommandResponseOp{
			Kind:      op.Type,
			RequestID: RequestID(op.RequestID),
			EntityID:  op.EntityID,
			Status:    StatusCode(op.StatusCode),
			Message:   op.Message,
		}
	case native.OpAddComponent:
		out := AddComponentOp{EntityID: op.EntityID, ComponentID: op.ComponentID}
		out.Value, out.Err = decodeData(rt, reg, op)
		return out
	case native.OpRemoveComponent:
		return RemoveComponentOp{EntityID: op.EntityID, ComponentID: op.ComponentID}
	case native.OpAuthorityChange:
		return AuthorityChangeOp{
			EntityID:    op.EntityID,
			ComponentID: op.ComponentID,
			Authority:   AuthorityFromRaw(op.Authority),
		}
	case native.OpComponentUpdate:
		out := ComponentUpdateOp{EntityID: op.EntityID, ComponentID: op.ComponentID}
		out.Update, out.Err = decodeUpdate(rt, reg, op)
		return out
	case native.OpCommandRequest:
		out := CommandRequestOp{
			RequestID:   RequestID(op.RequestID),
			EntityID:    op.EntityID,
			ComponentID: op.ComponentID,
		}
		if reg != nil && !reg.Has(op.ComponentID) {
			out.Err = errors.UnknownComponent(errors.PhaseCommand, op.ComponentID)
		}
		if !op.Data.IsNull() {
			out.Request = schema.CommandRequestFromRaw(rt, rt.Objects().Copy(op.Data))
		}
		return out
	case native.OpCommandResponse:
		out := CommandResponseOp{
			RequestID:   RequestID(op.RequestID),
			EntityID:    op.EntityID,
			ComponentID: op.ComponentID,
			Status:      StatusCode(op.StatusCode),
			Message:     op.Message,
		}
		if !op.Data.IsNull() {
			out.Response = schema.CommandResponseFromRaw(rt, rt.Objects().Copy(op.Data))
		}
		return out
	default:
		panic(errors.Fatal(errors.PhaseNative, "unknown op type %d", op.Type))
	}
}

func decodeData(rt native.Runtime, reg *component.Registry, op native.Op) (any, error) {
	if reg == nil {
		return nil, errors.UnknownComponent(errors.PhaseDecode, op.ComponentID)
	}
	if op.Data.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "add component %d of entity %d has no data", op.ComponentID, op.EntityID))
	}
	data := schema.ComponentDataFromRaw(rt, rt.Objects().Copy(op.Data))
	defer data.Close()
	return reg.DecodeData(data)
}

func decodeUpdate(rt native.Runtime, reg *component.Registry, op native.Op) (any, error) {
	if reg == nil {
		return nil, errors.UnknownComponent(errors.PhaseDecode, op.ComponentID)
	}
	if op.Data.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "update of component %d on entity %d has no data", op.ComponentID, op.EntityID))
	}
	upd := schema.ComponentUpdateFromRaw(rt, rt.Objects().Copy(op.Data))
	defer upd.Close()
	return reg.DecodeUpdate(upd)
}
