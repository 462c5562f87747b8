// Package ui provides terminal output components for the aio-mgr CLI.
//
// This package uses Bubble Tea and Lipgloss to render compact, styled
// output. Components follow a "run once and exit" pattern: they present
// results clearly but never wait for user input.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success/failure/warning boxes, including device responses
//   - DeviceTable: list of discovered or remembered devices
//   - RunScan: spinner shown while discovery runs
//
// # Interactive Output
//
// RunScan only animates when stdout is a terminal (see IsInteractive).
// Otherwise it runs the scan silently so output stays clean in pipes and
// scripts.
//
// # Logging Integration
//
// This package expects logging to be controlled via the AIO_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
