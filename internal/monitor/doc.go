// Package monitor streams emulator activity to WebSocket clients.
//
// A Hub is an http.Handler. Each client that upgrades receives every Event
// published after it joined, encoded as one JSON text message. Clients that
// fall behind are disconnected rather than slowing the publisher down.
package monitor
