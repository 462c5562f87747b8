// Package emulator provides an in-process AIO device.
//
// A Server answers discovery probes over UDP and serves authenticated
// command sessions over TCP using the same wire protocol as real devices.
// It is used by tests and by "aio-mgr emulate":
//
//	srv, err := emulator.New(emulator.Config{Token: "secret"})
//	if err != nil {
//		return err
//	}
//	if err := srv.Start(); err != nil {
//		return err
//	}
//	defer srv.Stop()
//
// By default the session listener takes a free port on 127.0.0.1 and the
// probe listener binds the well-known discovery port on every interface, so
// a default discovery.Discover call finds it. Tests that run several
// emulators set DiscoveryPort to EphemeralPort.
//
// Command handling is delegated to a Responder. NewDefaultResponder supports
// auth, ping, info and echo.
//
// Optional extras, each off by default: mDNS advertisement of the session
// port (Advertise), JSONL capture of every session frame (CaptureDir) and a
// WebSocket event feed (MonitorAddr).
package emulator
