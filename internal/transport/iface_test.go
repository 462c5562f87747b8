package transport

import (
	"errors"
	"net"
	"testing"
)

func mustCIDR(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		t.Fatalf("ParseCIDR(%q): %v", cidr, err)
	}
	ipnet.IP = ip
	return ipnet
}

// fakeInterfaces installs a fixed interface table for the duration of a test.
func fakeInterfaces(t *testing.T) {
	t.Helper()
	infos := []interfaceInfo{
		{
			iface: net.Interface{Index: 1, Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			addrs: []net.Addr{mustCIDR(t, "127.0.0.1/8"), mustCIDR(t, "::1/128")},
		},
		{
			iface: net.Interface{Index: 2, Name: "eth0", Flags: net.FlagUp | net.FlagBroadcast | net.FlagMulticast},
			addrs: []net.Addr{mustCIDR(t, "192.168.1.20/24"), mustCIDR(t, "fe80::1/64")},
		},
		{
			iface: net.Interface{Index: 3, Name: "wlan0", Flags: net.FlagBroadcast},
			addrs: []net.Addr{mustCIDR(t, "10.0.0.7/16")},
		},
		{
			iface: net.Interface{Index: 4, Name: "tun0", Flags: net.FlagUp | net.FlagPointToPoint},
			addrs: []net.Addr{mustCIDR(t, "10.8.0.2/32")},
		},
	}
	orig := listInterfaces
	listInterfaces = func() ([]interfaceInfo, error) { return infos, nil }
	t.Cleanup(func() { listInterfaces = orig })
}

func TestResolveEndpoints_Default(t *testing.T) {
	fakeInterfaces(t)

	eps, err := ResolveEndpoints(nil)
	if err != nil {
		t.Fatalf("ResolveEndpoints(nil) error = %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("got %d endpoints, want 1 (only eth0 is up and broadcast-capable): %v", len(eps), eps)
	}
	ep := eps[0]
	if ep.Name != "eth0" || !ep.Local.Equal(net.ParseIP("192.168.1.20")) {
		t.Errorf("endpoint = %v, want eth0 on 192.168.1.20", ep)
	}
	if !ep.Target.Equal(net.ParseIP("192.168.1.255")) || !ep.Broadcast {
		t.Errorf("target = %v (broadcast=%v), want 192.168.1.255", ep.Target, ep.Broadcast)
	}
}

func TestResolveEndpoints_Selectors(t *testing.T) {
	fakeInterfaces(t)

	tests := []struct {
		name          string
		selectors     []string
		wantLocal     string
		wantTarget    string
		wantBroadcast bool
	}{
		{"loopback by address", []string{"127.0.0.1"}, "127.0.0.1", "127.0.0.1", false},
		{"loopback by name", []string{"lo"}, "127.0.0.1", "127.0.0.1", false},
		{"eth0 by name", []string{"eth0"}, "192.168.1.20", "192.168.1.255", true},
		{"eth0 by address", []string{"192.168.1.20"}, "192.168.1.20", "192.168.1.255", true},
		{"any", []string{"0.0.0.0"}, "0.0.0.0", "255.255.255.255", true},
		{"point to point", []string{"tun0"}, "10.8.0.2", "10.8.0.2", false},
		{"duplicates collapse", []string{"eth0", "192.168.1.20"}, "192.168.1.20", "192.168.1.255", true},
		{"bad selector skipped", []string{"nope0", "lo"}, "127.0.0.1", "127.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eps, err := ResolveEndpoints(tt.selectors)
			if err != nil {
				t.Fatalf("ResolveEndpoints(%v) error = %v", tt.selectors, err)
			}
			if len(eps) != 1 {
				t.Fatalf("got %d endpoints, want 1: %v", len(eps), eps)
			}
			if got := eps[0].Local.String(); got != tt.wantLocal {
				t.Errorf("Local = %s, want %s", got, tt.wantLocal)
			}
			if got := eps[0].Target.String(); got != tt.wantTarget {
				t.Errorf("Target = %s, want %s", got, tt.wantTarget)
			}
			if eps[0].Broadcast != tt.wantBroadcast {
				t.Errorf("Broadcast = %v, want %v", eps[0].Broadcast, tt.wantBroadcast)
			}
		})
	}
}

func TestResolveEndpoints_Errors(t *testing.T) {
	fakeInterfaces(t)

	tests := []struct {
		name      string
		selectors []string
	}{
		{"unknown name", []string{"nope0"}},
		{"unassigned address", []string{"172.16.0.1"}},
		{"interface down", []string{"wlan0"}},
		{"ipv6 only", []string{"fe80::1"}},
		{"empty selector", []string{" "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveEndpoints(tt.selectors)
			if !errors.Is(err, ErrNoInterfaces) {
				t.Errorf("ResolveEndpoints(%v) error = %v, want ErrNoInterfaces", tt.selectors, err)
			}
		})
	}
}

func TestResolveEndpoints_NoDefault(t *testing.T) {
	orig := listInterfaces
	listInterfaces = func() ([]interfaceInfo, error) { return nil, nil }
	defer func() { listInterfaces = orig }()

	if _, err := ResolveEndpoints(nil); !errors.Is(err, ErrNoInterfaces) {
		t.Errorf("ResolveEndpoints(nil) error = %v, want ErrNoInterfaces", err)
	}
}

func TestBroadcastAddr(t *testing.T) {
	tests := []struct {
		cidr string
		want string
	}{
		{"192.168.1.20/24", "192.168.1.255"},
		{"10.0.0.7/16", "10.0.255.255"},
		{"172.16.5.4/12", "172.31.255.255"},
		{"10.8.0.2/31", ""},
		{"10.8.0.2/32", ""},
		{"fe80::1/64", ""},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			got := BroadcastAddr(mustCIDR(t, tt.cidr))
			if tt.want == "" {
				if got != nil {
					t.Errorf("BroadcastAddr(%s) = %v, want nil", tt.cidr, got)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("BroadcastAddr(%s) = %v, want %s", tt.cidr, got, tt.want)
			}
		})
	}
}

func TestEndpoint_Addrs(t *testing.T) {
	ep := Endpoint{Name: "lo", Local: net.IPv4(127, 0, 0, 1), Target: net.IPv4(127, 0, 0, 1)}
	if got := ep.TargetAddr(5311).String(); got != "127.0.0.1:5311" {
		t.Errorf("TargetAddr() = %s, want 127.0.0.1:5311", got)
	}
	if got := ep.LocalAddr().Port; got != 0 {
		t.Errorf("LocalAddr().Port = %d, want 0", got)
	}
	if got := ep.String(); got != "lo(127.0.0.1->127.0.0.1)" {
		t.Errorf("String() = %s", got)
	}
}

func TestIsLocalAddr(t *testing.T) {
	fakeInterfaces(t)

	tests := []struct {
		ip   net.IP
		want bool
	}{
		{net.ParseIP("127.0.0.1"), true},
		{net.ParseIP("127.4.5.6"), true},
		{net.ParseIP("192.168.1.20"), true},
		{net.ParseIP("10.0.0.7"), true},
		{net.ParseIP("192.168.1.21"), false},
		{net.ParseIP("203.0.113.9"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsLocalAddr(tt.ip); got != tt.want {
			t.Errorf("IsLocalAddr(%v) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
