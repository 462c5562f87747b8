package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/device"
	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/pattern"
)

const (
	// ServiceType is the mDNS service type AIO devices advertise.
	ServiceType = "_aio._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// BrowseMDNS collects _aio._tcp services whose name matches pattern until
// timeout expires or ctx is cancelled.
func BrowseMDNS(ctx context.Context, pat string, caseSensitive bool, timeout time.Duration, opts ...device.Option) ([]*device.Device, error) {
	matcher, err := pattern.Compile(pat, caseSensitive)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	results := newResultSet()
	done := make(chan struct{})

	// The resolver closes entries once ctx is done.
	go func() {
		defer close(done)
		for entry := range entries {
			dev := parseServiceEntry(entry, matcher, opts...)
			if dev != nil && results.add(dev) {
				logging.Debug("mDNS device", zap.String("device", dev.String()))
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	return results.list(), nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry does not describe a matching AIO device.
func parseServiceEntry(entry *zeroconf.ServiceEntry, matcher *pattern.Matcher, opts ...device.Option) *device.Device {
	txt := parseTXT(entry.Text)

	name := txt["name"]
	if name == "" {
		name = entry.Instance
	}
	if name == "" || !matcher.Match(name) {
		return nil
	}

	// Prefer the advertised session host, then the first IPv4 record.
	ip := txt["host"]
	if ip == "" {
		for _, addr := range entry.AddrIPv4 {
			ip = addr.String()
			break
		}
	}
	if ip == "" {
		return nil
	}

	devOpts := append([]device.Option{device.WithName(name)}, opts...)
	dev, err := device.New(ip, entry.Port, devOpts...)
	if err != nil {
		logging.Debug("Ignoring mDNS entry",
			zap.String("instance", entry.Instance),
			zap.Error(err))
		return nil
	}
	return dev
}

// parseTXT splits "key=value" TXT records. Keys without a value map to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}
