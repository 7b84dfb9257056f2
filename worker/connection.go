package worker

import (
	"time"

	"go.uber.org/zap"

	workersdk "github.com/wippyai/worker-sdk"
	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/handle"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// RequestID identifies a command request within one connection.
type RequestID uint32

// Connection is an established (or failed) native connection. It is safe
// for concurrent use; calls are serialised on the native handle.
type Connection struct {
	rt       native.Runtime
	reg      *component.Registry
	owned    *handle.Owned
	workerID string
}

func connectionKind(w native.WorkerABI) handle.Kind {
	return handle.Funcs{
		KindName: "connection",
		CreateFunc: func() native.Ptr {
			panic(errors.Fatal(errors.PhaseConnect, "connections are only created by Connect"))
		},
		DestroyFunc: w.ConnectionDestroy,
		CopyFunc: func(native.Ptr) native.Ptr {
			panic(errors.Fatal(errors.PhaseConnect, "connections cannot be copied"))
		},
	}
}

func newConnection(rt native.Runtime, reg *component.Registry, p native.Ptr) *Connection {
	w := rt.Worker()
	return &Connection{
		rt:       rt,
		reg:      reg,
		owned:    handle.FromRaw(connectionKind(w), p),
		workerID: w.WorkerID(p),
	}
}

// Registry returns the registry ops are decoded with.
func (c *Connection) Registry() *component.Registry {
	return c.reg
}

// WorkerID returns the id the worker connected with.
func (c *Connection) WorkerID() string {
	return c.workerID
}

// IsConnected reports whether the connection is live.
func (c *Connection) IsConnected() bool {
	if c.owned.Released() {
		return false
	}
	var ok bool
	c.owned.With(func(p native.Ptr) {
		ok = c.rt.Worker().IsConnected(p)
	})
	return ok
}

// Attributes returns the attributes the deployment assigned to the worker.
func (c *Connection) Attributes() []string {
	var attrs []string
	c.owned.With(func(p native.Ptr) {
		attrs = c.rt.Worker().WorkerAttributes(p)
	})
	return attrs
}

// SendUpdate sends a component update for an entity. The update is handed
// to the runtime and released whether or not the send succeeds.
func (c *Connection) SendUpdate(entityID int64, upd *schema.ComponentUpdate) error {
	if err := workersdk.CheckEntityID(errors.PhaseConnect, entityID); err != nil {
		upd.Close()
		return err
	}
	if upd.Released() {
		return errors.Closed(errors.PhaseConnect, "component update")
	}

	var msg string
	c.owned.With(func(p native.Ptr) {
		msg = c.rt.Worker().SendComponentUpdate(p, entityID, upd.IntoRaw())
	})
	if msg != "" {
		return errors.NativeError(errors.PhaseConnect, "send component update", msg)
	}
	return nil
}

// SendComponentUpdate encodes u with def and sends it.
func SendComponentUpdate[T, U any](c *Connection, entityID int64, def *component.Definition[T, U], u U) error {
	return c.SendUpdate(entityID, def.NewUpdate(c.rt, u))
}

// SendCommandRequest sends a command to a component of an entity. The
// response arrives as a CommandResponseOp carrying the returned id. A zero
// timeout leaves the choice to the runtime.
func (c *Connection) SendCommandRequest(entityID int64, req *schema.CommandRequest, timeout time.Duration) (RequestID, error) {
	if err := workersdk.CheckEntityID(errors.PhaseCommand, entityID); err != nil {
		req.Close()
		return 0, err
	}
	if req.Released() {
		return 0, errors.Closed(errors.PhaseCommand, "command request")
	}

	var id uint32
	c.owned.With(func(p native.Ptr) {
		id = c.rt.Worker().SendCommandRequest(p, entityID, req.IntoRaw(), millis(timeout))
	})
	return RequestID(id), nil
}

// SendCommandResponse answers a received command request.
func (c *Connection) SendCommandResponse(id RequestID, resp *schema.CommandResponse) error {
	if resp.Released() {
		return errors.Closed(errors.PhaseCommand, "command response")
	}
	var msg string
	c.owned.With(func(p native.Ptr) {
		msg = c.rt.Worker().SendCommandResponse(p, uint32(id), resp.IntoRaw())
	})
	if msg != "" {
		return errors.NativeError(errors.PhaseCommand, "send command response", msg)
	}
	return nil
}

// SendCommandFailure fails a received command request with a message.
func (c *Connection) SendCommandFailure(id RequestID, message string) error {
	var msg string
	c.owned.With(func(p native.Ptr) {
		msg = c.rt.Worker().SendCommandFailure(p, uint32(id), message)
	})
	if msg != "" {
		return errors.NativeError(errors.PhaseCommand, "send command failure", msg)
	}
	return nil
}

// SendLog sends a log message to the deployment.
func (c *Connection) SendLog(level LogLevel, loggerName, message string) {
	c.SendEntityLog(level, loggerName, message, 0)
}

// SendEntityLog sends a log message about an entity. An entity id of 0
// sends a plain message.
func (c *Connection) SendEntityLog(level LogLevel, loggerName, message string, entityID int64) {
	c.owned.With(func(p native.Ptr) {
		c.rt.Worker().SendLogMessage(p, uint8(level), loggerName, message, entityID)
	})
}

// AcknowledgeAuthorityLoss tells the deployment the worker is ready to lose
// authority over a component after an AuthorityLossImminent change.
func (c *Connection) AcknowledgeAuthorityLoss(entityID int64, componentID uint32) {
	c.owned.With(func(p native.Ptr) {
		c.rt.Worker().SendAuthorityLossImminentAcknowledgement(p, entityID, componentID)
	})
}

// GetOpList fetches the operations received since the last call, waiting
// up to timeout for the first one. The caller must close the list.
func (c *Connection) GetOpList(timeout time.Duration) *OpList {
	w := c.rt.Worker()
	var list native.Ptr
	c.owned.With(func(p native.Ptr) {
		list = w.GetOpList(p, millis(timeout))
	})
	if list.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "native op list is null"))
	}
	defer w.OpListDestroy(list)

	n := w.OpListCount(list)
	out := &OpList{Ops: make([]Op, 0, n)}
	for i := range n {
		op := decodeOp(c.rt, c.reg, w.OpListOp(list, i))
		if e := opError(op); e != nil {
			Logger().Debug("op decode failed",
				zap.String("worker_id", c.workerID),
				zap.Uint32("index", i),
				zap.Error(e))
		}
		out.Ops = append(out.Ops, op)
	}
	return out
}

// Close destroys the connection. Later calls do nothing.
func (c *Connection) Close() error {
	return c.owned.Close()
}

func millis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}
