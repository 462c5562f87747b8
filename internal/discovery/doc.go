// Package discovery locates AIO devices on the local network.
//
// # Discovery Process
//
// Discover resolves the requested interfaces to probe endpoints and opens one
// UDP socket per endpoint. For each of Tries attempts it:
//  1. Sends a probe carrying a fresh nonce and the glob pattern on every socket
//  2. Collects announcements until the attempt's Timeout expires
//  3. Keeps announcements that answer one of this call's nonces and whose
//     name matches the pattern
//
// Results are de-duplicated by address and returned in the order they were
// first seen. All attempts always run, so a call takes about Tries*Timeout.
//
// # Interfaces
//
// Interfaces may be named ("eth0"), given by an assigned IPv4 address
// ("192.168.1.5", "127.0.0.1") or "0.0.0.0" for the limited broadcast on
// any interface. The default is every up, broadcast-capable IPv4 interface.
//
// # Usage Example
//
//	devices, err := discovery.Discover(ctx, "aio-*",
//	    discovery.WithTimeout(500*time.Millisecond),
//	    discovery.WithTries(2),
//	)
//	if err != nil {
//	    return err
//	}
//	for _, dev := range devices {
//	    fmt.Println(dev)
//	}
//
// # mDNS
//
// Devices that also advertise the _aio._tcp service can be found with
// BrowseMDNS, or merged into Discover's results with WithMDNS.
package discovery
