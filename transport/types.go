// File: transport/types.go
// Author: momentics <momentics@gmail.com>

package transport

import "fmt"

// EtherType selects which link-layer frames a LinkSocket captures.
type EtherType uint16

const (
	EtherTypeAll  EtherType = 0x0003 // ETH_P_ALL
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeIPv6 EtherType = 0x86DD
)

func (e EtherType) String() string {
	switch e {
	case EtherTypeAll:
		return "all"
	case EtherTypeIPv4:
		return "ipv4"
	case EtherTypeIPv6:
		return "ipv6"
	}
	return fmt.Sprintf("0x%04x", uint16(e))
}

// Family selects the IP version of a NetworkSocket.
type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// InterfaceBinding is the interface a socket is bound to. Index is zero for
// network sockets, which bind by name only.
type InterfaceBinding struct {
	Name  string
	Index int
}

func (b InterfaceBinding) String() string {
	if b.Index == 0 {
		return b.Name
	}
	return fmt.Sprintf("%s#%d", b.Name, b.Index)
}
