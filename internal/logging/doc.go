// Package logging holds the process-wide zap logger used across aio-mgr.
//
// The logger is silent until Initialize is called with a level or
// AIO_LOG_LEVEL is set, so library callers of discovery and device see no
// output by default. Levels are used as follows:
//   - debug: probe and announcement traffic, frame dumps (LogFrame)
//   - info: session lifecycle, emulator start and stop
//   - warn: per-interface failures, dropped sessions and monitor clients
//   - error: listener failures
//
// Typical start-up:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// All functions are safe for concurrent use.
package logging
