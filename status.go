package persistentws

// Status is the state of the logical connection.
type Status int

const (
	// StatusInit holds until the first attempt opens or fails.
	StatusInit Status = iota
	// StatusConnected holds while the transport is open.
	StatusConnected
	// StatusDisconnected holds from a failure or close until the next open.
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
