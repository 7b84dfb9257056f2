package local

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/native"
)

// Authority values delivered in OpAuthorityChange.
const (
	authorityNotAuthoritative uint8 = iota
	authorityAuthoritative
	authorityLossImminent
)

type connectFuture struct {
	host     string
	workerID string
	params   native.ConnectionParameters
	polls    int
	port     uint16
	done     bool
}

type deploymentFuture struct {
	locator string
	project string
	polls   int
}

type pendingCommand struct {
	entityID    int64
	componentID uint32
}

type connection struct {
	pending    map[uint32]pendingCommand
	workerID   string
	reason     string
	queue      []native.Op
	params     native.ConnectionParameters
	mu         sync.Mutex
	nextID     uint32
	connected  bool
	notifiedDC bool
}

type opList struct {
	ops []native.Op
}

type workerABI struct {
	r *Runtime
}

func (a workerABI) ConnectAsync(host string, port uint16, workerID string, params native.ConnectionParameters) native.Ptr {
	return a.r.alloc(tagConnectFuture, &connectFuture{
		host:     host,
		port:     port,
		workerID: workerID,
		params:   params,
		polls:    a.r.cfg.ConnectPolls,
	})
}

func (a workerABI) ConnectionFutureGet(future native.Ptr, _ uint32) native.Ptr {
	f := lookup[*connectFuture](a.r, future, tagConnectFuture, "connection future")
	if f.done {
		return 0
	}
	if f.polls > 0 {
		f.polls--
		return 0
	}
	f.done = true
	return a.r.openConnection(f)
}

func (a workerABI) ConnectionFutureDestroy(future native.Ptr) {
	if a.r.closed.Load() {
		return
	}
	a.r.free(future, tagConnectFuture, "connection future")
}

func (r *Runtime) openConnection(f *connectFuture) native.Ptr {
	c := &connection{
		workerID: f.workerID,
		params:   f.params,
		pending:  make(map[uint32]pendingCommand),
		nextID:   1,
	}

	switch {
	case f.host == "" || f.port == 0:
		c.reason = fmt.Sprintf("invalid address %q:%d", f.host, f.port)
	case slices.Contains(r.cfg.RejectWorkerTypes, f.params.WorkerType):
		c.reason = fmt.Sprintf("worker type %q rejected by deployment", f.params.WorkerType)
	default:
		c.connected = true
	}

	p := r.alloc(tagConnection, c)
	if !c.connected {
		Logger().Info("connection attempt failed",
			zap.String("worker_id", f.workerID),
			zap.String("reason", c.reason))
		return p
	}

	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	w.connections = append(w.connections, p)
	ids := make([]int64, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		c.queue = append(c.queue, native.Op{Type: native.OpAddEntity, EntityID: id})
		comps := w.entities[id]
		compIDs := make([]uint32, 0, len(comps))
		for cid := range comps {
			compIDs = append(compIDs, cid)
		}
		slices.Sort(compIDs)
		for _, cid := range compIDs {
			c.queue = append(c.queue, native.Op{
				Type:        native.OpAddComponent,
				EntityID:    id,
				ComponentID: cid,
				Data:        r.copyContainer(comps[cid]),
			})
			c.queue = append(c.queue, native.Op{
				Type:        native.OpAuthorityChange,
				EntityID:    id,
				ComponentID: cid,
				Authority:   authorityAuthoritative,
			})
		}
	}

	Logger().Info("worker connected",
		zap.String("worker_id", f.workerID),
		zap.String("worker_type", f.params.WorkerType),
		zap.Int("entities", len(ids)))
	return p
}

func (r *Runtime) connection(p native.Ptr) *connection {
	return lookup[*connection](r, p, tagConnection, "connection")
}

func (a workerABI) ConnectionDestroy(conn native.Ptr) {
	if a.r.closed.Load() {
		return
	}
	c := a.r.free(conn, tagConnection, "connection").(*connection)

	w := a.r.world
	w.mu.Lock()
	w.connections = slices.DeleteFunc(w.connections, func(p native.Ptr) bool { return p == conn })
	w.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	a.r.releaseOps(c.queue)
	c.queue = nil
}

func (a workerABI) IsConnected(conn native.Ptr) bool {
	c := a.r.connection(conn)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (a workerABI) WorkerID(conn native.Ptr) string {
	return a.r.connection(conn).workerID
}

func (a workerABI) WorkerAttributes(conn native.Ptr) []string {
	c := a.r.connection(conn)
	attrs := slices.Clone(c.params.Attributes)
	if c.params.WorkerType != "" && !slices.Contains(attrs, c.params.WorkerType) {
		attrs = append(attrs, c.params.WorkerType)
	}
	return append(attrs, "workerId:"+c.workerID)
}

func (a workerABI) SendComponentUpdate(conn native.Ptr, entityID int64, update native.Ptr) string {
	r := a.r
	c := r.connection(conn)
	u := r.container(update)
	if !c.isConnected() {
		r.freeContainer(update)
		return "connection is not connected"
	}

	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	data, ok := w.entities[entityID][u.componentID]
	if !ok {
		r.freeContainer(update)
		return fmt.Sprintf("entity %d has no component %d", entityID, u.componentID)
	}
	r.applyUpdate(data, update)

	// Every connection sees the update; the sender receives the original
	for _, p := range w.connections {
		other := r.connection(p)
		payload := update
		if p != conn {
			payload = r.copyContainer(update)
		}
		other.enqueue(native.Op{
			Type:        native.OpComponentUpdate,
			EntityID:    entityID,
			ComponentID: u.componentID,
			Data:        payload,
		})
	}
	return ""
}

func (a workerABI) SendCommandRequest(conn native.Ptr, entityID int64, request native.Ptr, _ uint32) uint32 {
	r := a.r
	c := r.connection(conn)
	req := r.container(request)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	if !c.isConnected() {
		r.freeContainer(request)
		c.enqueue(native.Op{
			Type:        native.OpCommandResponse,
			RequestID:   id,
			EntityID:    entityID,
			ComponentID: req.componentID,
			StatusCode:  native.StatusTimeout,
			Message:     "connection is not connected",
		})
		return id
	}

	w := r.world
	w.mu.Lock()
	_, exists := w.entities[entityID][req.componentID]
	w.mu.Unlock()

	if !exists {
		r.freeContainer(request)
		c.enqueue(native.Op{
			Type:        native.OpCommandResponse,
			RequestID:   id,
			EntityID:    entityID,
			ComponentID: req.componentID,
			StatusCode:  native.StatusNotFound,
			Message:     fmt.Sprintf("entity %d has no component %d", entityID, req.componentID),
		})
		return id
	}

	// Loopback: the requesting worker is authoritative over every component
	c.mu.Lock()
	c.pending[id] = pendingCommand{entityID: entityID, componentID: req.componentID}
	c.queue = append(c.queue, native.Op{
		Type:        native.OpCommandRequest,
		RequestID:   id,
		EntityID:    entityID,
		ComponentID: req.componentID,
		Data:        request,
	})
	c.mu.Unlock()
	return id
}

func (a workerABI) SendCommandResponse(conn native.Ptr, requestID uint32, response native.Ptr) string {
	r := a.r
	c := r.connection(conn)

	c.mu.Lock()
	defer c.mu.Unlock()

	pc, ok := c.pending[requestID]
	if !ok {
		r.freeContainer(response)
		return fmt.Sprintf("no pending command request %d", requestID)
	}
	delete(c.pending, requestID)
	c.queue = append(c.queue, native.Op{
		Type:        native.OpCommandResponse,
		RequestID:   requestID,
		EntityID:    pc.entityID,
		ComponentID: pc.componentID,
		StatusCode:  native.StatusSuccess,
		Data:        response,
	})
	return ""
}

func (a workerABI) SendCommandFailure(conn native.Ptr, requestID uint32, message string) string {
	c := a.r.connection(conn)

	c.mu.Lock()
	defer c.mu.Unlock()

	pc, ok := c.pending[requestID]
	if !ok {
		return fmt.Sprintf("no pending command request %d", requestID)
	}
	delete(c.pending, requestID)
	c.queue = append(c.queue, native.Op{
		Type:        native.OpCommandResponse,
		RequestID:   requestID,
		EntityID:    pc.entityID,
		ComponentID: pc.componentID,
		StatusCode:  native.StatusApplicationError,
		Message:     message,
	})
	return ""
}

func (a workerABI) SendLogMessage(conn native.Ptr, level uint8, loggerName, message string, entityID int64) {
	c := a.r.connection(conn)
	fields := []zap.Field{
		zap.String("worker_id", c.workerID),
		zap.String("logger", loggerName),
	}
	if entityID > 0 {
		fields = append(fields, zap.Int64("entity_id", entityID))
	}
	log := Logger().Named("worker")
	switch level {
	case 1:
		log.Debug(message, fields...)
	case 2:
		log.Info(message, fields...)
	case 3:
		log.Warn(message, fields...)
	default:
		log.Error(message, fields...)
	}
}

func (a workerABI) SendAuthorityLossImminentAcknowledgement(conn native.Ptr, entityID int64, componentID uint32) {
	c := a.r.connection(conn)
	Logger().Debug("authority loss acknowledged",
		zap.String("worker_id", c.workerID),
		zap.Int64("entity_id", entityID),
		zap.Uint32("component_id", componentID))
}

func (a workerABI) GetOpList(conn native.Ptr, _ uint32) native.Ptr {
	c := a.r.connection(conn)

	c.mu.Lock()
	defer c.mu.Unlock()

	list := &opList{ops: c.queue}
	c.queue = nil
	if !c.connected && !c.notifiedDC {
		c.notifiedDC = true
		list.ops = append(list.ops, native.Op{
			Type:       native.OpDisconnect,
			StatusCode: native.StatusInternalError,
			Message:    c.reason,
		})
	}
	return a.r.alloc(tagOpList, list)
}

func (a workerABI) OpListCount(list native.Ptr) uint32 {
	return uint32(len(lookup[*opList](a.r, list, tagOpList, "op list").ops))
}

func (a workerABI) OpListOp(list native.Ptr, i uint32) native.Op {
	ops := lookup[*opList](a.r, list, tagOpList, "op list").ops
	if int(i) >= len(ops) {
		return native.Op{}
	}
	return ops[i]
}

func (a workerABI) OpListDestroy(list native.Ptr) {
	l := a.r.free(list, tagOpList, "op list").(*opList)
	a.r.releaseOps(l.ops)
}

func (r *Runtime) releaseOps(ops []native.Op) {
	for _, op := range ops {
		if op.Data != 0 {
			r.freeContainer(op.Data)
		}
	}
}

func (a workerABI) DeploymentListAsync(locatorHost string, projectName string) native.Ptr {
	return a.r.alloc(tagDeploymentFuture, &deploymentFuture{
		locator: locatorHost,
		project: projectName,
		polls:   a.r.cfg.ConnectPolls,
	})
}

func (a workerABI) DeploymentListFutureGet(future native.Ptr, _ uint32) ([]string, bool, string) {
	f := lookup[*deploymentFuture](a.r, future, tagDeploymentFuture, "deployment list future")
	if f.polls > 0 {
		f.polls--
		return nil, false, ""
	}
	if f.locator == "" {
		return nil, true, "locator host is empty"
	}
	if f.project == "" {
		return nil, true, "project name is empty"
	}
	return slices.Clone(a.r.cfg.Deployments), true, ""
}

func (a workerABI) DeploymentListFutureDestroy(future native.Ptr) {
	if a.r.closed.Load() {
		return
	}
	a.r.free(future, tagDeploymentFuture, "deployment list future")
}

func (c *connection) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *connection) enqueue(op native.Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, op)
}

// Disconnect drops a connection from the simulated deployment. The worker
// sees a disconnect op on its next op list.
func (r *Runtime) Disconnect(conn native.Ptr, reason string) {
	c := r.connection(conn)
	c.mu.Lock()
	c.connected = false
	c.reason = reason
	c.mu.Unlock()

	w := r.world
	w.mu.Lock()
	w.connections = slices.DeleteFunc(w.connections, func(p native.Ptr) bool { return p == conn })
	w.mu.Unlock()
}
