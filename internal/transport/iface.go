package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
)

// AnyInterface selects the unspecified address and the limited broadcast.
const AnyInterface = "0.0.0.0"

// ErrNoInterfaces is returned when no usable probe endpoint could be resolved.
var ErrNoInterfaces = errors.New("no usable network interfaces")

// Endpoint is one local socket/target pair used to send discovery probes.
type Endpoint struct {
	// Name identifies the interface ("eth0", "lo", or "any").
	Name string

	// Local is the IPv4 address the probe socket binds to.
	Local net.IP

	// Target is where probes are sent: a broadcast address, or the
	// interface address itself for non-broadcast interfaces.
	Target net.IP

	// Broadcast reports whether Target is a broadcast address.
	Broadcast bool
}

// String returns "name(local->target)".
func (e Endpoint) String() string {
	return fmt.Sprintf("%s(%s->%s)", e.Name, e.Local, e.Target)
}

// TargetAddr returns the UDP destination for probes on port.
func (e Endpoint) TargetAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: e.Target, Port: port}
}

// LocalAddr returns the UDP address the probe socket binds to.
func (e Endpoint) LocalAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: e.Local, Port: 0}
}

// interfaceInfo is a snapshot of one interface and its addresses.
type interfaceInfo struct {
	iface net.Interface
	addrs []net.Addr
}

// listInterfaces is replaced in tests.
var listInterfaces = func() ([]interfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	infos := make([]interfaceInfo, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		infos = append(infos, interfaceInfo{iface: ifi, addrs: addrs})
	}
	return infos, nil
}

// ResolveEndpoints maps interface selectors to probe endpoints.
//
// Selectors that cannot be resolved are logged and skipped. Only when
// nothing resolves is an error returned; it wraps ErrNoInterfaces and
// carries every selector failure.
func ResolveEndpoints(selectors []string) ([]Endpoint, error) {
	infos, err := listInterfaces()
	if err != nil {
		return nil, err
	}

	if len(selectors) == 0 {
		endpoints := defaultEndpoints(infos)
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("%w: no broadcast-capable IPv4 interface is up", ErrNoInterfaces)
		}
		return endpoints, nil
	}

	var endpoints []Endpoint
	var errs error
	seen := make(map[string]bool)

	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		resolved, err := resolveSelector(sel, infos)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, ep := range resolved {
			key := ep.Local.String() + "->" + ep.Target.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			endpoints = append(endpoints, ep)
		}
	}

	if len(endpoints) == 0 {
		if errs == nil {
			return nil, ErrNoInterfaces
		}
		return nil, fmt.Errorf("%w: %v", ErrNoInterfaces, errs)
	}
	for _, err := range multierr.Errors(errs) {
		logging.Warn("Skipping interface selector", zap.Error(err))
	}
	return endpoints, nil
}

func defaultEndpoints(infos []interfaceInfo) []Endpoint {
	var endpoints []Endpoint
	for _, info := range infos {
		flags := info.iface.Flags
		if flags&net.FlagUp == 0 || flags&net.FlagBroadcast == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range info.addrs {
			if ep, ok := endpointFor(info.iface, addr); ok {
				endpoints = append(endpoints, ep)
			}
		}
	}
	return endpoints
}

func resolveSelector(sel string, infos []interfaceInfo) ([]Endpoint, error) {
	if sel == "" {
		return nil, fmt.Errorf("empty interface selector")
	}

	if ip := net.ParseIP(sel); ip != nil {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("interface %s: only IPv4 is supported", sel)
		}
		if ip4.Equal(net.IPv4zero) {
			return []Endpoint{{
				Name:      "any",
				Local:     net.IPv4zero,
				Target:    net.IPv4bcast,
				Broadcast: true,
			}}, nil
		}
		for _, info := range infos {
			for _, addr := range info.addrs {
				ipnet, ok := addr.(*net.IPNet)
				if !ok || !ipnet.IP.Equal(ip4) {
					continue
				}
				if ep, ok := endpointFor(info.iface, addr); ok {
					return []Endpoint{ep}, nil
				}
			}
		}
		return nil, fmt.Errorf("interface %s: address is not assigned to any local interface", sel)
	}

	for _, info := range infos {
		if info.iface.Name != sel {
			continue
		}
		if info.iface.Flags&net.FlagUp == 0 {
			return nil, fmt.Errorf("interface %s is down", sel)
		}
		var endpoints []Endpoint
		for _, addr := range info.addrs {
			if ep, ok := endpointFor(info.iface, addr); ok {
				endpoints = append(endpoints, ep)
			}
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("interface %s has no IPv4 address", sel)
		}
		return endpoints, nil
	}

	return nil, fmt.Errorf("interface %s not found", sel)
}

// endpointFor builds the endpoint for one interface address. IPv6 and
// non-IPNet addresses are skipped.
func endpointFor(ifi net.Interface, addr net.Addr) (Endpoint, bool) {
	ipnet, ok := addr.(*net.IPNet)
	if !ok {
		return Endpoint{}, false
	}
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return Endpoint{}, false
	}

	ep := Endpoint{Name: ifi.Name, Local: ip4, Target: ip4}
	if ifi.Flags&net.FlagBroadcast != 0 && ifi.Flags&net.FlagLoopback == 0 {
		if bcast := BroadcastAddr(ipnet); bcast != nil {
			ep.Target = bcast
			ep.Broadcast = true
		}
	}
	return ep, true
}

// BroadcastAddr computes the directed broadcast address of an IPv4 network.
// Returns nil for IPv6 networks and for /31 and /32 prefixes, which have
// no broadcast address.
func BroadcastAddr(ipnet *net.IPNet) net.IP {
	ip := ipnet.IP.To4()
	if ip == nil {
		return nil
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	if ones, _ := net.IPMask(mask).Size(); ones >= 31 {
		return nil
	}
	broadcast := make(net.IP, net.IPv4len)
	for i := range ip {
		broadcast[i] = ip[i] | ^mask[i]
	}
	return broadcast
}

// IsLocalAddr reports whether ip is loopback or assigned to one of this
// host's interfaces.
func IsLocalAddr(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	infos, err := listInterfaces()
	if err != nil {
		return false
	}
	for _, info := range infos {
		for _, addr := range info.addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return true
			}
		}
	}
	return false
}
