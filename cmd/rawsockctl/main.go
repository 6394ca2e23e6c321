//go:build linux

// File: cmd/rawsockctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// rawsockctl captures and injects traffic through raw link-layer and
// network-layer sockets bound to one interface.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/momentics/hioload-rawsock/control"
	"github.com/momentics/hioload-rawsock/internal/config"
	"github.com/momentics/hioload-rawsock/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
	out     io.Writer
	errOut  io.Writer
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"iface":       "interface",
	"ethertype":   "capture.ethertype",
	"count":       "capture.count",
	"buffer-size": "capture.buffer_size",
	"decode":      "capture.decode",
	"duration":    "capture.duration",
	"family":      "network.family",
	"protocol":    "network.protocol",
	"poller-cpu":  "reactor.poller_cpu",
	"log-level":   "logging.level",
	"log-file":    "logging.file",
}

func (a *app) bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && err == nil {
			err = a.v.BindPFlag(key, f)
		}
	})
	return err
}

// setup loads configuration and builds the logger for the running command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.bindFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) teardown(*cobra.Command, []string) {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rawsockctl",
		Short: "Capture and inject traffic on raw sockets bound to one interface.",
		Long: `rawsockctl opens link-layer (AF_PACKET) or network-layer (raw IP) sockets
bound to a named interface and drives them through an edge-triggered epoll
reactor. Raw sockets need root or CAP_NET_RAW.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "configuration file (yaml, toml or json)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-file", "", "rotated JSON log file")
	pf.Int("poller-cpu", -1, "pin the reactor poller thread to this CPU (-1 = unpinned)")

	root.AddCommand(newCaptureCmd(a), newInjectCmd(a), newInterfacesCmd(a))
	return root
}

func newApp() *app {
	a := &app{
		v:       viper.New(),
		metrics: control.NewMetricsRegistry(),
		probes:  control.NewDebugProbes(),
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	a.probes.RegisterMetrics(a.metrics)
	control.RegisterPlatformProbes(a.probes)
	return a
}

func main() {
	a := newApp()
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rawsockctl:", err)
		os.Exit(1)
	}
}
