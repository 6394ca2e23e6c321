//go:build linux

// File: internal/netif/netif_linux.go
// Author: momentics <momentics@gmail.com>
//
// Interface name resolution over rtnetlink.

package netif

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/vishvananda/netlink"
)

// maxNameLen is IFNAMSIZ minus the terminating NUL.
const maxNameLen = 15

// Interface is a resolved network interface.
type Interface struct {
	Name  string
	Index int
	MTU   int
	Up    bool
}

// NotFound builds the error returned for unresolvable names.
func NotFound(name string) error {
	return &api.Error{
		Code:    api.ErrCodeNotFound,
		Op:      "resolve interface",
		Message: fmt.Sprintf("interface '%s' not found", name),
		Context: map[string]any{"interface": name},
	}
}

func validName(name string) bool {
	return name != "" && len(name) <= maxNameLen && !strings.ContainsAny(name, "/\x00 ")
}

// Resolve maps an interface name to its index. Names that do not exist
// yield an api.ErrNotFound error; index 0 is never returned on success.
func Resolve(name string) (Interface, error) {
	if !validName(name) {
		return Interface{}, NotFound(name)
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		var nf netlink.LinkNotFoundError
		if errors.As(err, &nf) {
			return Interface{}, NotFound(name)
		}
		return Interface{}, api.OSError("netlink link lookup", err).WithContext("interface", name)
	}
	iface := fromLink(link)
	if iface.Index == 0 {
		return Interface{}, NotFound(name)
	}
	return iface, nil
}

// List returns all links known to the kernel.
func List() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, api.OSError("netlink link list", err)
	}
	out := make([]Interface, 0, len(links))
	for _, l := range links {
		out = append(out, fromLink(l))
	}
	return out, nil
}

func fromLink(l netlink.Link) Interface {
	attrs := l.Attrs()
	return Interface{
		Name:  attrs.Name,
		Index: attrs.Index,
		MTU:   attrs.MTU,
		Up:    attrs.Flags&net.FlagUp != 0,
	}
}
