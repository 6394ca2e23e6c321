// File: cmd/rawsockctl/summary.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// summarize renders one line per decoded layer of data, starting at first.
func summarize(data []byte, first gopacket.LayerType) string {
	pkt := gopacket.NewPacket(data, first, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	var parts []string
	for _, l := range pkt.Layers() {
		switch v := l.(type) {
		case *layers.Ethernet:
			parts = append(parts, fmt.Sprintf("%s > %s %s", v.SrcMAC, v.DstMAC, v.EthernetType))
		case *layers.ARP:
			parts = append(parts, fmt.Sprintf("arp op=%d", v.Operation))
		case *layers.IPv4:
			parts = append(parts, fmt.Sprintf("%s > %s %s ttl=%d", v.SrcIP, v.DstIP, v.Protocol, v.TTL))
		case *layers.IPv6:
			parts = append(parts, fmt.Sprintf("%s > %s %s hop=%d", v.SrcIP, v.DstIP, v.NextHeader, v.HopLimit))
		case *layers.TCP:
			parts = append(parts, fmt.Sprintf("tcp %d > %d", uint16(v.SrcPort), uint16(v.DstPort)))
		case *layers.UDP:
			parts = append(parts, fmt.Sprintf("udp %d > %d", uint16(v.SrcPort), uint16(v.DstPort)))
		case *layers.ICMPv4:
			parts = append(parts, "icmp "+v.TypeCode.String())
		case *layers.ICMPv6:
			parts = append(parts, "icmp6 "+v.TypeCode.String())
		}
	}
	if el := pkt.ErrorLayer(); el != nil {
		parts = append(parts, "decode error: "+el.Error().Error())
	}
	if len(parts) == 0 {
		parts = append(parts, "undecoded")
	}
	return fmt.Sprintf("%s (%d bytes)", strings.Join(parts, " | "), len(data))
}
