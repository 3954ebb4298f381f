package relay

// Channel is one connection's ordered, reliable, bidirectional text
// transport. The transport layer (internal/ws) owns the underlying
// connection resource; the relay only sends and receives frames on it.
//
// Receive blocks until a frame arrives; any error means the channel is no
// longer usable (peer closed, network failure) and the session must end.
// Send may fail independently per call; a failed member is pruned by the
// registry without affecting the rest of the room.
type Channel interface {
	Receive() ([]byte, error)
	Send(data []byte) error
	Close() error
}
