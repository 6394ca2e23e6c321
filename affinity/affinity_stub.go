//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "github.com/momentics/hioload-rawsock/api"

func setAffinityPlatform(int) error { return api.ErrNotSupported }

func allowedPlatform() ([]int, error) { return nil, api.ErrNotSupported }
