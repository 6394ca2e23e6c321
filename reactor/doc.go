// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor that raw sockets register with.
// On Linux it is backed by edge-triggered epoll; each registration tracks read
// and write readiness independently and must be re-armed by the caller once a
// reported edge has been drained.
package reactor
