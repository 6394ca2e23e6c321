package main

import (
	"net"
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func udpFrame(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 53}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload("summary")); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSummarize_EthernetIPv4UDP(t *testing.T) {
	frame := udpFrame(t)
	got := summarize(frame, layers.LayerTypeEthernet)
	for _, want := range []string{"02:00:00:00:00:01 > 02:00:00:00:00:02", "10.0.0.1 > 10.0.0.2 UDP ttl=64", "udp 1234 > 53"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}

func TestSummarize_StartsAtNetworkLayer(t *testing.T) {
	frame := udpFrame(t)
	got := summarize(frame[14:], layers.LayerTypeIPv4)
	if strings.Contains(got, "02:00:00") || !strings.Contains(got, "udp 1234 > 53") {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarize_Truncated(t *testing.T) {
	got := summarize([]byte{0x45, 0x00}, layers.LayerTypeIPv4)
	if !strings.Contains(got, "decode error") || !strings.HasSuffix(got, "(2 bytes)") {
		t.Errorf("unexpected summary %q", got)
	}
}
