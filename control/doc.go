// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for raw sockets: per-direction transfer counters, a named
// registry used by the CLI to report them, and debug probes for live
// inspection of sockets and the host.
package control
