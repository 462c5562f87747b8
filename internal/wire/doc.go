// Package wire defines the aio discovery and session messages and their CBOR
// encoding.
//
// # Discovery
//
// A client broadcasts a Probe datagram carrying a glob pattern and a nonce.
// Every device whose name matches answers with an Announcement that echoes the
// nonce and names the TCP endpoint of its session server:
//
//	Probe        {kind: "probe", v: 1, id: <uuid>, pattern: "aio*", fold: false}
//	Announcement {kind: "announce", v: 1, id: <uuid>, name: "aio-emulator", host: "127.0.0.1", port: 40123}
//
// # Sessions
//
// Session messages travel inside length-prefixed frames (see the transport
// package). Requests are CBOR maps; responses are free-form CBOR maps with a
// mandatory "status" key:
//
//	Request  {op: "connect", id: 1, token: "secret"}
//	Response {status: "OKAY", id: 1, session: "..."}
//
// Status values are OKAY, ERROR and DENIED. Callers must inspect the status of
// every response; a DENIED connect is a normal response, not an error.
//
// # Thread Safety
//
// Encoding and decoding functions are stateless and safe for concurrent use.
package wire
