//go:build !linux

package main

import (
	"fmt"
	"os"
	"runtime"
)

func main() {
	fmt.Fprintf(os.Stderr, "rawsockctl: raw sockets are not supported on %s\n", runtime.GOOS)
	os.Exit(1)
}
