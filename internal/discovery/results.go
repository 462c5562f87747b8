package discovery

import (
	"net/netip"
	"sync"

	"github.com/aio-mgr/aiomgr/internal/device"
)

// resultSet is an insertion-ordered set of devices keyed by address.
type resultSet struct {
	mu      sync.Mutex
	seen    map[netip.AddrPort]struct{}
	devices []*device.Device
}

func newResultSet() *resultSet {
	return &resultSet{seen: make(map[netip.AddrPort]struct{})}
}

// add stores dev unless its address is already present. It reports whether
// dev was new.
func (r *resultSet) add(dev *device.Device) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[dev.Addr()]; ok {
		return false
	}
	r.seen[dev.Addr()] = struct{}{}
	r.devices = append(r.devices, dev)
	return true
}

func (r *resultSet) list() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, len(r.devices))
	copy(out, r.devices)
	return out
}
