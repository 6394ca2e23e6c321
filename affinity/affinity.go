// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

// SetAffinity pins the calling OS thread to a logical CPU. Callers must hold
// the thread with runtime.LockOSThread for the pin to stay with the goroutine.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Allowed returns the CPUs the calling thread may currently run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
