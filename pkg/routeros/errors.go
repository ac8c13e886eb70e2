package routeros

import "errors"

var (
	// ErrNotConnected is returned by Run when the session has no live
	// channel, either because Connect never succeeded or the transport
	// dropped underneath it.
	ErrNotConnected = errors.New("not connected to device")

	// ErrAllPortsFailed is returned by Connect when every candidate port
	// was exhausted without establishing a session.
	ErrAllPortsFailed = errors.New("unable to connect on any candidate port")
)
