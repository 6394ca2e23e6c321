//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation over sched_setaffinity(2) for the calling thread.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-rawsock/api"
	"golang.org/x/sys/unix"
)

func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= 1024 {
		return api.NewError(api.ErrCodeInvalidArgument, fmt.Sprintf("cpu %d out of range", cpuID))
	}
	var set unix.CPUSet
	set.Set(cpuID)
	// pid 0 addresses the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.OSError("sched_setaffinity", err).WithContext("cpu", cpuID)
	}
	return nil
}

func allowedPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, api.OSError("sched_getaffinity", err)
	}
	var cpus []int
	for i := 0; i < 1024 && len(cpus) < set.Count(); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
