//go:build linux

// File: cmd/rawsockctl/inject.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/momentics/hioload-rawsock/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInjectCmd(a *app) *cobra.Command {
	var frameHex string
	c := &cobra.Command{
		Use:   "inject",
		Short: "Send one link-layer frame given as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frame, err := parseHexFrame(frameHex)
			if err != nil {
				return err
			}
			return a.runInject(cmd, frame)
		},
	}
	c.Flags().StringP("iface", "i", "", "interface to send on")
	c.Flags().StringVarP(&frameHex, "hex", "x", "", "frame bytes including the link-layer header")
	c.Flags().BoolP("decode", "d", false, "print a summary of the frame before sending")
	return c
}

// parseHexFrame accepts plain hex or hex separated by spaces or colons.
func parseHexFrame(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	if clean == "" {
		return nil, errors.New("--hex is required")
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode --hex: %w", err)
	}
	if len(b) < 14 {
		return nil, fmt.Errorf("frame of %d bytes is shorter than an Ethernet header", len(b))
	}
	return b, nil
}

func (a *app) runInject(cmd *cobra.Command, frame []byte) error {
	ctx, cancel, r, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()
	defer r.Close()

	key := "link/" + a.cfg.Interface
	s, err := transport.NewLinkSocketAll(r, a.cfg.Interface, a.socketOptions(key)...)
	if err != nil {
		return err
	}
	defer s.Close()

	if a.cfg.Capture.Decode {
		fmt.Fprintln(a.out, summarize(frame, layers.LayerTypeEthernet))
	}
	n, err := s.SendFrame(ctx, frame)
	if err != nil {
		return err
	}
	a.log.Info("frame sent", zap.Stringer("interface", s.Binding()), zap.Int("bytes", n))
	fmt.Fprintf(a.out, "sent %d bytes on %s\n", n, s.Binding())
	return nil
}
