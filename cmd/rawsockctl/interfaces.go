//go:build linux

// File: cmd/rawsockctl/interfaces.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/momentics/hioload-rawsock/internal/netif"
	"github.com/spf13/cobra"
)

func newInterfacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "interfaces",
		Aliases: []string{"iface"},
		Short:   "List interfaces raw sockets can bind to",
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ifaces, err := netif.List()
			if err != nil {
				return err
			}
			return printInterfaces(a, ifaces)
		},
	}
}

func printInterfaces(a *app, ifaces []netif.Interface) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINDEX\tMTU\tSTATE")
	for _, i := range ifaces {
		state := "down"
		if i.Up {
			state = "up"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", i.Name, i.Index, i.MTU, state)
	}
	return w.Flush()
}
