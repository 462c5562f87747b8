package config

import (
	"sort"
	"time"
)

// CurrentVersion is the configuration file format version.
const CurrentVersion = 1

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                     `yaml:"version"`
	Devices     map[string]*DeviceEntry `yaml:"devices,omitempty"` // Keyed by device name
	Preferences *Preferences            `yaml:"preferences,omitempty"`
}

// DeviceEntry is a remembered device address.
type DeviceEntry struct {
	Host     string    `yaml:"host"`
	Port     int       `yaml:"port"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences holds discovery defaults used by the CLI.
type Preferences struct {
	Pattern         string        `yaml:"pattern,omitempty"`
	Interfaces      []string      `yaml:"interfaces,omitempty"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout,omitempty"` // per attempt, e.g. "1s"
	Tries           int           `yaml:"tries,omitempty"`
	DiscoveryPort   int           `yaml:"discovery_port,omitempty"`
	CaseSensitive   bool          `yaml:"case_sensitive"`
	MDNS            bool          `yaml:"mdns,omitempty"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Pattern:         "aio*",
		DiscoverTimeout: time.Second,
		Tries:           3,
		DiscoveryPort:   5311,
		CaseSensitive:   true,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Devices:     make(map[string]*DeviceEntry),
		Preferences: DefaultPreferences(),
	}
}

// LookupDevice returns the entry remembered under name.
func (r *Registry) LookupDevice(name string) (*DeviceEntry, bool) {
	d, ok := r.Devices[name]
	return d, ok
}

// RememberDevice records or refreshes the address of name.
func (r *Registry) RememberDevice(name, host string, port int) *DeviceEntry {
	if r.Devices == nil {
		r.Devices = make(map[string]*DeviceEntry)
	}
	d, ok := r.Devices[name]
	if !ok {
		d = &DeviceEntry{}
		r.Devices[name] = d
	}
	d.Host = host
	d.Port = port
	d.LastSeen = time.Now()
	return d
}

// ForgetDevice removes name. It reports whether an entry existed.
func (r *Registry) ForgetDevice(name string) bool {
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	return true
}

// DeviceNames returns the remembered names in sorted order.
func (r *Registry) DeviceNames() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fillDefaults initializes maps and any unset preference.
func (r *Registry) fillDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*DeviceEntry)
	}
	def := DefaultPreferences()
	if r.Preferences == nil {
		r.Preferences = def
		return
	}
	p := r.Preferences
	if p.Pattern == "" {
		p.Pattern = def.Pattern
	}
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = def.DiscoverTimeout
	}
	if p.Tries <= 0 {
		p.Tries = def.Tries
	}
	if p.DiscoveryPort <= 0 {
		p.DiscoveryPort = def.DiscoveryPort
	}
}
