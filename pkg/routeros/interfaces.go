package routeros

//go:generate mockgen -destination=mock_routeros.go -package=routeros github.com/routerwatch/routerwatch/pkg/routeros Dialer,Conn

import "context"

// Row is one record returned by a RouterOS command. The API returns every
// value as a string and omits absent fields entirely; rows handed to
// callers of Session.Run have passed sanitization.
type Row map[string]string

// Conn is a live channel to one device. Implementations own the wire
// protocol; the core passes command strings through opaquely.
type Conn interface {
	// Run executes a command such as "/interface/print" with optional
	// "key=value" arguments and returns the raw reply rows.
	Run(ctx context.Context, command string, args ...string) ([]Row, error)

	// Closed is signalled when the transport drops without Close being
	// called. Used for passive failure detection.
	Closed() <-chan struct{}

	Close() error
}

// Dialer establishes authenticated connections to devices.
type Dialer interface {
	Dial(ctx context.Context, host string, port int, username, password string) (Conn, error)
}
