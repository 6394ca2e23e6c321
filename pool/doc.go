// Package pool provides reusable receive buffers for capture loops.
// Author: momentics <momentics@gmail.com>
package pool
