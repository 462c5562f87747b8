package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aio-mgr/aiomgr/internal/config"
	"github.com/aio-mgr/aiomgr/internal/device"
	"github.com/aio-mgr/aiomgr/internal/discovery"
	"github.com/aio-mgr/aiomgr/internal/ui"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

// TokenEnvVar supplies the session token when --token is not given.
const TokenEnvVar = "AIO_TOKEN"

// Discovery flags shared by scan and send
var (
	ifaces        []string
	scanTimeout   time.Duration
	scanTries     int
	discoveryPort int
	caseSensitive bool
	useMDNS       bool
)

func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&ifaces, "iface", nil, "Interface name or IPv4 address to probe (repeatable, 0.0.0.0 = any)")
	cmd.Flags().DurationVar(&scanTimeout, "timeout", time.Second, "Wait per discovery attempt")
	cmd.Flags().IntVar(&scanTries, "tries", 3, "Number of discovery attempts")
	cmd.Flags().IntVar(&discoveryPort, "discovery-port", wire.DefaultDiscoveryPort, "UDP port devices listen on for probes")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", true, "Match device names case-sensitively")
	cmd.Flags().BoolVar(&useMDNS, "mdns", false, "Also browse for _aio._tcp mDNS services")
}

// scannerFor builds a scanner from stored preferences, overridden by any
// flag given on the command line.
func scannerFor(cmd *cobra.Command, prefs *config.Preferences) *discovery.Scanner {
	s := discovery.NewScanner()
	if prefs != nil {
		s.Interfaces = prefs.Interfaces
		s.Timeout = prefs.DiscoverTimeout
		s.Tries = prefs.Tries
		s.Port = prefs.DiscoveryPort
		s.CaseSensitive = prefs.CaseSensitive
		s.MDNS = prefs.MDNS
	}

	flags := cmd.Flags()
	if flags.Changed("iface") {
		s.Interfaces = ifaces
	}
	if flags.Changed("timeout") {
		s.Timeout = scanTimeout
	}
	if flags.Changed("tries") {
		s.Tries = scanTries
	}
	if flags.Changed("discovery-port") {
		s.Port = discoveryPort
	}
	if flags.Changed("case-sensitive") {
		s.CaseSensitive = caseSensitive
	}
	if flags.Changed("mdns") {
		s.MDNS = useMDNS
	}
	return s
}

// loadPreferences returns stored preferences, or defaults if the registry
// cannot be read.
func loadPreferences() (*config.Registry, *config.Preferences) {
	reg, err := config.LoadRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		return nil, config.DefaultPreferences()
	}
	return reg, reg.Preferences
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(emulateCmd)
}

// Scan command
var (
	saveDevices bool
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [pattern]",
	Short: "Discover AIO devices on the network",
	Long: `Discover AIO devices whose name matches a glob pattern.

A probe is broadcast on every selected interface for each attempt, and
announcements are collected until the attempt times out. Every attempt runs,
so the scan takes about tries x timeout. Devices are listed in the order
they answered.`,
	Example: `  # Scan with stored preferences (default pattern aio*)
  aio-mgr scan

  # Scan one interface quickly
  aio-mgr scan 'aio-lab-*' --iface eth0 --timeout 300ms --tries 1

  # Case-insensitive scan that remembers what it finds
  aio-mgr scan 'AIO*' --case-sensitive=false --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	addDiscoveryFlags(scanCmd)
	scanCmd.Flags().BoolVar(&saveDevices, "save", false, "Remember discovered devices in the config file")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print results as JSON")
}

type deviceJSON struct {
	Name string `json:"name,omitempty"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, prefs := loadPreferences()
	pattern := prefs.Pattern
	if len(args) == 1 {
		pattern = args[0]
	}
	scanner := scannerFor(cmd, prefs)

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	interactive := !scanJSON && ui.IsInteractive(os.Stdout)

	var devices []*device.Device
	label := fmt.Sprintf("Scanning for %q (%d x %s)", pattern, scanner.Tries, scanner.Timeout)
	err := ui.RunScan(ctx, label, out, interactive, func(ctx context.Context) error {
		var err error
		devices, err = scanner.Discover(ctx, pattern)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		list := make([]deviceJSON, 0, len(devices))
		for _, d := range devices {
			list = append(list, deviceJSON{Name: d.Name(), Host: d.Host(), Port: d.Port()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	printer := ui.NewPrinter(out)
	rows := make([]ui.DeviceRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, ui.DeviceRow{Name: d.Name(), Address: d.Addr().String()})
	}
	printer.PrintDevices(ui.NewDeviceTable("Discovered devices", rows))

	if len(devices) == 0 {
		printer.Newline()
		res := ui.NewWarningResult("No devices answered", map[string]string{"Pattern": pattern})
		res.Troubleshooting = []string{
			"Check that the device is powered and on the same network segment",
			"Select the interface explicitly with --iface",
			"Try a longer --timeout or more --tries",
			"Use --case-sensitive=false if the name's case may differ",
		}
		printer.PrintResult(res)
		return nil
	}

	if saveDevices && reg != nil {
		for _, d := range devices {
			name := d.Name()
			if name == "" {
				name = d.Addr().String()
			}
			reg.RememberDevice(name, d.Host(), d.Port())
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save devices: %w", err)
		}
		printer.Newline()
		printer.Printf("Saved %d device(s).\n", len(devices))
	}
	return nil
}

// Send command
var (
	targetAddr string
	targetName string
	token      string
	ioTimeout  time.Duration
	retries    int
	sendJSON   bool
)

var sendCmd = &cobra.Command{
	Use:   "send <command...>",
	Short: "Send a command to a device",
	Long: `Open a session, send one command, print the response and disconnect.

The target is chosen with --device host:port, --name (a remembered device),
or otherwise by discovery: the first device matching --pattern is used.
The token comes from --token or the AIO_TOKEN environment variable.

The command exits non-zero when the response status is not OKAY.`,
	Example: `  # Ping a known address
  AIO_TOKEN=secret aio-mgr send --device 192.168.1.40:5312 ping

  # Use a remembered device
  aio-mgr send --name aio-lab-1 --token secret info

  # Discover the first matching device and send to it
  aio-mgr send --pattern 'aio-lab-*' --token secret echo hello`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var sendPattern string

func init() {
	addDiscoveryFlags(sendCmd)
	sendCmd.Flags().StringVar(&targetAddr, "device", "", "Device address host:port (skips discovery)")
	sendCmd.Flags().StringVar(&targetName, "name", "", "Remembered device name")
	sendCmd.Flags().StringVar(&sendPattern, "pattern", "", "Discovery pattern when no device is given")
	sendCmd.Flags().StringVar(&token, "token", "", "Session token (default $AIO_TOKEN)")
	sendCmd.Flags().DurationVar(&ioTimeout, "io-timeout", device.DefaultIOTimeout, "Timeout per request")
	sendCmd.Flags().IntVar(&retries, "retries", 2, "Redial attempts when the device refuses or times out")
	sendCmd.Flags().BoolVar(&sendJSON, "json", false, "Print the response as JSON")
}

func resolveTarget(ctx context.Context, cmd *cobra.Command, opts []device.Option) (*device.Device, error) {
	switch {
	case targetAddr != "":
		return device.Parse(targetAddr, opts...)

	case targetName != "":
		reg, err := config.LoadRegistry()
		if err != nil {
			return nil, err
		}
		entry, ok := reg.LookupDevice(targetName)
		if !ok {
			return nil, fmt.Errorf("no remembered device named %q (see 'aio-mgr devices')", targetName)
		}
		return device.New(entry.Host, entry.Port, append(opts, device.WithName(targetName))...)
	}

	_, prefs := loadPreferences()
	pattern := prefs.Pattern
	if sendPattern != "" {
		pattern = sendPattern
	}
	scanner := scannerFor(cmd, prefs)
	scanner.DeviceOptions = opts

	devices, err := scanner.Discover(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no device matching %q found", pattern)
	}
	return devices[0], nil
}

func runSend(cmd *cobra.Command, args []string) error {
	if token == "" {
		token = os.Getenv(TokenEnvVar)
	}
	if token == "" {
		return fmt.Errorf("a token is required (--token or %s)", TokenEnvVar)
	}

	ctx, cancel := signalContext()
	defer cancel()

	dev, err := resolveTarget(ctx, cmd, []device.Option{
		device.WithIOTimeout(ioTimeout),
		device.WithDialRetries(retries, 0),
	})
	if err != nil {
		return err
	}

	resp, err := dev.Connect(ctx, token)
	if err != nil {
		return fmt.Errorf("connect to %s failed: %w", dev, err)
	}
	if !resp.OK() {
		printResponse(cmd, dev, "connect", resp)
		return fmt.Errorf("connect to %s: %s", dev, resp.Status())
	}
	defer func() {
		// Disconnect with a fresh context so Ctrl-C still closes cleanly.
		dctx, dcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer dcancel()
		_, _ = dev.Disconnect(dctx)
	}()

	command := strings.Join(args, " ")
	resp, err = dev.Send(ctx, command)
	if err != nil {
		return fmt.Errorf("send to %s failed: %w", dev, err)
	}
	printResponse(cmd, dev, command, resp)

	if !resp.OK() {
		return fmt.Errorf("%s answered %s", dev, resp.Status())
	}
	return nil
}

func printResponse(cmd *cobra.Command, dev *device.Device, title string, resp wire.Response) {
	out := cmd.OutOrStdout()
	if sendJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return
	}
	printer := ui.NewPrinter(out)
	printer.PrintResult(ui.NewResponseResult(title, resp).AddDetail("device", dev.String()))
}

// Devices command
var forgetName string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List remembered devices",
	Long: `List the devices stored in the configuration file.

Devices are remembered with 'aio-mgr scan --save'.`,
	Example: `  aio-mgr devices
  aio-mgr devices --forget aio-lab-1`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().StringVar(&forgetName, "forget", "", "Remove the named device")
}

func runDevices(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	if forgetName != "" {
		if !reg.ForgetDevice(forgetName) {
			return fmt.Errorf("no remembered device named %q", forgetName)
		}
		if err := reg.Save(); err != nil {
			return err
		}
		printer.Printf("Forgot %s.\n", forgetName)
		return nil
	}

	rows := make([]ui.DeviceRow, 0, len(reg.Devices))
	for _, name := range reg.DeviceNames() {
		entry := reg.Devices[name]
		rows = append(rows, ui.DeviceRow{
			Name:     name,
			Address:  entry.Host + ":" + strconv.Itoa(entry.Port),
			LastSeen: entry.LastSeen,
		})
	}
	printer.PrintDevices(ui.NewDeviceTable("Remembered devices", rows))
	return nil
}
