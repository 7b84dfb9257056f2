package native

// ConnectionParameters is the native view of the settings used to open a
// connection.
type ConnectionParameters struct {
	WorkerType        string
	LogLevel          uint8
	HeartbeatMillis   uint32
	ConnectionTimeout uint32
	Attributes        []string
}

// OpType enumerates the operations a connection delivers in an op list.
type OpType uint8

const (
	OpDisconnect OpType = iota + 1
	OpFlagUpdate
	OpLogMessage
	OpMetrics
	OpCriticalSection
	OpAddEntity
	OpRemoveEntity
	OpReserveEntityIDsResponse
	OpCreateEntityResponse
	OpDeleteEntityResponse
	OpEntityQueryResponse
	OpAddComponent
	OpRemoveComponent
	OpAuthorityChange
	OpComponentUpdate
	OpCommandRequest
	OpCommandResponse
)

// Op is one operation of an op list. Data points to a container owned by
// the op list; it is valid until the op list is destroyed.
type Op struct {
	Message     string
	Data        Ptr
	EntityID    int64
	RequestID   uint32
	ComponentID uint32
	Type        OpType
	Authority   uint8
	LogLevel    uint8
	StatusCode  uint8
}

// Status codes carried by command responses and disconnect ops.
const (
	StatusSuccess uint8 = iota + 1
	StatusTimeout
	StatusNotFound
	StatusAuthorityLost
	StatusPermissionDenied
	StatusApplicationError
	StatusInternalError
)

// WorkerABI covers connection establishment, messaging and the locator.
//
// Futures follow the start/poll/destroy protocol: the start call returns a
// completion handle, polling with a zero timeout never blocks, and the handle
// must be destroyed exactly once whether or not a result was consumed.
type WorkerABI interface {
	ConnectAsync(host string, port uint16, workerID string, params ConnectionParameters) Ptr
	// ConnectionFutureGet returns the connection once the attempt finished,
	// or the null handle while it is still pending. A finished attempt that
	// failed returns a connection for which IsConnected reports false.
	ConnectionFutureGet(future Ptr, timeoutMillis uint32) Ptr
	ConnectionFutureDestroy(future Ptr)

	ConnectionDestroy(conn Ptr)
	IsConnected(conn Ptr) bool
	WorkerID(conn Ptr) string
	WorkerAttributes(conn Ptr) []string

	// SendComponentUpdate takes ownership of update.
	SendComponentUpdate(conn Ptr, entityID int64, update Ptr) string
	// SendCommandRequest takes ownership of request.
	SendCommandRequest(conn Ptr, entityID int64, request Ptr, timeoutMillis uint32) uint32
	// SendCommandResponse takes ownership of response.
	SendCommandResponse(conn Ptr, requestID uint32, response Ptr) string
	SendCommandFailure(conn Ptr, requestID uint32, message string) string
	SendLogMessage(conn Ptr, level uint8, loggerName, message string, entityID int64)
	SendAuthorityLossImminentAcknowledgement(conn Ptr, entityID int64, componentID uint32)

	GetOpList(conn Ptr, timeoutMillis uint32) Ptr
	OpListCount(list Ptr) uint32
	OpListOp(list Ptr, i uint32) Op
	OpListDestroy(list Ptr)

	DeploymentListAsync(locatorHost string, projectName string) Ptr
	// DeploymentListFutureGet reports ready=false while pending. A non-empty
	// error string reports a failed query.
	DeploymentListFutureGet(future Ptr, timeoutMillis uint32) (deployments []string, ready bool, err string)
	DeploymentListFutureDestroy(future Ptr)
}
