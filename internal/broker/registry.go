package broker

import (
	"fmt"
	"sync"
)

// ConnectionRegistry owns the live broker connections, one per declared
// connection name. Connections are dialed lazily on first use and
// redialed transparently after a broker restart. A configuration reload
// that changes a connection's URL takes effect on the next publish.
type ConnectionRegistry struct {
	dial Dialer

	mu    sync.Mutex
	conns map[string]*managedConnection
}

type managedConnection struct {
	url     string
	conn    Connection
	channel Channel
}

// NewConnectionRegistry creates a registry that dials with dial.
func NewConnectionRegistry(dial Dialer) *ConnectionRegistry {
	return &ConnectionRegistry{
		dial:  dial,
		conns: make(map[string]*managedConnection),
	}
}

// Channel returns a usable channel on the named connection, dialing or
// redialing as needed.
func (r *ConnectionRegistry) Channel(name, url string) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conns[name]
	if ok && mc.url != url {
		// The connection was redeclared with a new URL.
		r.closeLocked(mc)
		ok = false
	}
	if !ok {
		mc = &managedConnection{url: url}
		r.conns[name] = mc
	}

	if mc.conn == nil || mc.conn.IsClosed() {
		conn, err := r.dial(url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %q: %w", name, err)
		}
		mc.conn = conn
		mc.channel = nil
	}

	if mc.channel == nil || mc.channel.IsClosed() {
		channel, err := mc.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open channel on %q: %w", name, err)
		}
		mc.channel = channel
	}

	return mc.channel, nil
}

// Close closes every open connection. The registry stays usable;
// subsequent Channel calls redial.
func (r *ConnectionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, mc := range r.conns {
		r.closeLocked(mc)
		delete(r.conns, name)
	}
}

func (r *ConnectionRegistry) closeLocked(mc *managedConnection) {
	if mc.channel != nil && !mc.channel.IsClosed() {
		_ = mc.channel.Close()
	}
	if mc.conn != nil && !mc.conn.IsClosed() {
		_ = mc.conn.Close()
	}
}
