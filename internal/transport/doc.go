// Package transport provides the network primitives used by discovery and
// device sessions.
//
// # Discovery Sockets
//
// ResolveEndpoints turns user-supplied interface selectors into probe
// endpoints. A selector can be an interface name ("eth0"), an IPv4 address
// assigned to a local interface ("192.168.1.20", "127.0.0.1") or "0.0.0.0"
// for the limited broadcast address. With no selectors every up,
// broadcast-capable IPv4 interface is used:
//
//	endpoints, err := transport.ResolveEndpoints([]string{"eth0", "127.0.0.1"})
//	for _, ep := range endpoints {
//	    conn, err := transport.ListenProbe(ep)
//	    ...
//	    _, err = conn.WriteToUDP(probe, ep.TargetAddr(port))
//	}
//
// Broadcast-capable interfaces are probed at their subnet broadcast address.
// Interfaces without broadcast support (loopback) are probed by unicast to the
// interface address.
//
// # Session Framing
//
// Session messages are framed with a 4-byte big-endian length prefix:
//
//	+----------------+------------------+
//	| length (4, BE) | payload (length) |
//	+----------------+------------------+
//
// Empty frames and frames above the configured maximum (64 KiB by default)
// are rejected on both sides.
//
// # Errors
//
// Network failures are classified into *Error values (timeout, connection
// refused, closed, protocol) so that callers can decide whether to retry.
package transport
