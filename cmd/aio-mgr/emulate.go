package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aio-mgr/aiomgr/internal/emulator"
	"github.com/aio-mgr/aiomgr/internal/ui"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

var emuConfig emulator.Config

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Run an emulated AIO device",
	Long: `Run an in-process AIO device until interrupted.

The emulator answers discovery probes and serves command sessions using the
same protocol as real devices. It understands auth, ping, info and echo.

Optional extras:
  --advertise      register the session port as an _aio._tcp mDNS service
  --capture-dir    append every session frame to a JSONL capture file
  --monitor-addr   stream events to WebSocket clients at ws://<addr>/events`,
	Example: `  # Emulator on the default ports
  aio-mgr emulate --token secret

  # Reachable from the LAN, with capture and a live event feed
  aio-mgr emulate --token secret --host 0.0.0.0 --capture-dir ./captures --monitor-addr 127.0.0.1:8090`,
	Args: cobra.NoArgs,
	RunE: runEmulate,
}

func init() {
	f := emulateCmd.Flags()
	f.StringVar(&emuConfig.Name, "name", emulator.DefaultName, "Device name announced to probes")
	f.StringVar(&emuConfig.Token, "token", "", "Session token (default $AIO_TOKEN)")
	f.StringVar(&emuConfig.Host, "host", emulator.DefaultHost, "Session listener IPv4 address")
	f.IntVar(&emuConfig.Port, "port", wire.DefaultSessionPort, "Session TCP port (0 = ephemeral)")
	f.StringVar(&emuConfig.DiscoveryHost, "discovery-host", emulator.DefaultDiscoveryHost, "Probe listener IPv4 address")
	f.IntVar(&emuConfig.DiscoveryPort, "discovery-port", wire.DefaultDiscoveryPort, "Probe UDP port (-1 = ephemeral)")
	f.DurationVar(&emuConfig.IdleTimeout, "idle-timeout", emulator.DefaultIdleTimeout, "Close sessions idle for this long")
	f.BoolVar(&emuConfig.Advertise, "advertise", false, "Advertise via mDNS")
	f.StringVar(&emuConfig.CaptureDir, "capture-dir", "", "Directory for JSONL frame capture (disabled if empty)")
	f.StringVar(&emuConfig.MonitorAddr, "monitor-addr", "", "WebSocket monitor address (disabled if empty)")
}

func runEmulate(cmd *cobra.Command, args []string) error {
	if emuConfig.Token == "" {
		emuConfig.Token = os.Getenv(TokenEnvVar)
	}

	srv, err := emulator.New(emuConfig)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %w", err)
	}
	if err := srv.Start(); err != nil {
		return err
	}

	params := map[string]string{
		"Name":      srv.Name(),
		"Session":   srv.Address(),
		"Discovery": fmt.Sprintf("%s:%d", emuConfig.DiscoveryHost, srv.DiscoveryPort()),
	}
	if addr := srv.MonitorAddr(); addr != "" {
		params["Monitor"] = "ws://" + addr + "/events"
	}
	if emuConfig.CaptureDir != "" {
		params["Capture"] = emuConfig.CaptureDir
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader(ui.NewHeader("AIO emulator", "aio-mgr emulate", params))
	printer.Println("  Press Ctrl-C to stop.")

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	printer.Println("  Stopping...")
	return srv.Stop()
}
