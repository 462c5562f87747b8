package transport

import (
	"fmt"
	"net"
	"time"
)

// ListenProbe opens the UDP socket used to send probes on ep and receive
// the answers. Go enables SO_BROADCAST on IPv4 datagram sockets.
func ListenProbe(ep Endpoint) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", ep.LocalAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to open probe socket on %s: %w", ep.Name, err)
	}
	return conn, nil
}

// ListenResponder binds the UDP socket a device listens on for probes.
func ListenResponder(host string, port int) (*net.UDPConn, error) {
	ip := net.IPv4zero
	if host != "" {
		ip = net.ParseIP(host)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("invalid IPv4 responder host %q", host)
		}
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP %s:%d: %w", ip, port, err)
	}
	return conn, nil
}

// ReadDatagram reads one datagram, waiting at most until deadline.
// A zero deadline blocks until data arrives or the socket is closed.
func ReadDatagram(conn *net.UDPConn, buf []byte, deadline time.Time) (int, *net.UDPAddr, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, err
	}
	return conn.ReadFromUDP(buf)
}
