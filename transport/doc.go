// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw link-layer (AF_PACKET) and network-layer (raw IP) sockets bound to one
// named interface. Every transfer waits on the socket's reactor registration
// until the descriptor is ready, then performs exactly one non-blocking
// syscall; a would-block result clears readiness and waits for a fresh edge.
//
// Sockets are safe for concurrent use. One reader and one writer never share
// readiness state. Payloads are opaque bytes: received units include the
// link-layer or IP header, and no parsing is done here.
package transport
