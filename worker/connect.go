package worker

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/future"
	"github.com/wippyai/worker-sdk/native"
)

// Connect returns a future for a connection attempt with params. Nothing is
// sent until the future is first polled. The connection it yields may have
// failed; check IsConnected and read the disconnect op for the reason.
func Connect(rt native.Runtime, reg *component.Registry, params Parameters) *future.Future[Parameters, *Connection] {
	w := rt.Worker()
	return future.New(params, future.Ops[Parameters, *Connection]{
		Name: "connect " + params.WorkerID,
		Start: func(p Parameters) native.Ptr {
			Logger().Debug("connecting",
				zap.String("worker_id", p.WorkerID),
				zap.String("host", p.Host),
				zap.Uint16("port", p.Port))
			return w.ConnectAsync(p.Host, p.Port, p.WorkerID, p.native())
		},
		Poll: func(f native.Ptr) (*Connection, bool) {
			c := w.ConnectionFutureGet(f, 0)
			if c.IsNull() {
				return nil, false
			}
			return newConnection(rt, reg, c), true
		},
		Destroy: w.ConnectionFutureDestroy,
	})
}

// ConnectAndWait normalizes and validates params, connects and waits for
// the attempt to finish, bounded by ctx and params.ConnectionTimeout. A
// failed attempt returns a disconnected error carrying the runtime's reason.
func ConnectAndWait(ctx context.Context, rt native.Runtime, reg *component.Registry, params Parameters) (*Connection, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if params.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.ConnectionTimeout)
		defer cancel()
	}

	conn, err := future.Await(ctx, Connect(rt, reg, params), params.PollInterval)
	if err != nil {
		kind := errors.KindCanceled
		var e *errors.Error
		if stderrors.As(err, &e) {
			kind = e.Kind
		}
		return nil, errors.Wrap(errors.PhaseConnect, kind, err, "connection attempt of "+params.WorkerID+" abandoned")
	}

	if !conn.IsConnected() {
		reason := disconnectReason(conn)
		conn.Close()
		Logger().Warn("connection failed",
			zap.String("worker_id", params.WorkerID),
			zap.String("reason", reason))
		return nil, errors.New(errors.PhaseConnect, errors.KindDisconnected).
			Value(params.WorkerID).
			Detail("%s", reason).
			Build()
	}

	Logger().Info("connected",
		zap.String("worker_id", conn.WorkerID()),
		zap.Strings("attributes", conn.Attributes()))
	return conn, nil
}

func disconnectReason(c *Connection) string {
	ops := c.GetOpList(0)
	defer ops.Close()
	for _, op := range ops.Ops {
		if d, ok := op.(DisconnectOp); ok {
			return d.Reason
		}
	}
	return "connection failed"
}
