package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/ghjm/tuntap/internal/version"
	"github.com/ghjm/tuntap/pkg/config"
	"github.com/ghjm/tuntap/pkg/tuntap"
	"github.com/ghjm/tuntap/pkg/x/exit_handler"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"io"
	"os"
	"strings"
	"time"
)

func errExit(err error) {
	fmt.Printf("Error: %s\n", err)
	exit_handler.RunExitFuncs()
	os.Exit(1)
}

var configFile string
var profile string
var ifaceName string
var modeStr string
var readSize int
var noStrip bool
var mtu int
var linkUp bool
var logLevel string

var rootCmd = &cobra.Command{
	Use:     "tuntapctl",
	Short:   "Act as the host's peer of a tun/tap interface",
	Version: version.Version(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFormatter(&log.TextFormatter{
			DisableColors: !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
		})
		switch logLevel {
		case "":
		case "error":
			log.SetLevel(log.ErrorLevel)
		case "warning":
			log.SetLevel(log.WarnLevel)
		case "info":
			log.SetLevel(log.InfoLevel)
		case "debug":
			log.SetLevel(log.DebugLevel)
		default:
			return fmt.Errorf("invalid log level")
		}
		return nil
	},
}

// channelParams merges the config file profile, if any, with the command line flags
func channelParams(cmd *cobra.Command) (string, string, []tuntap.Option, error) {
	var name, defaultName string
	var opts []tuntap.Option
	if configFile != "" {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return "", "", nil, err
		}
		if profile == "" {
			return "", "", nil, fmt.Errorf("--profile is required when using --config")
		}
		var iface config.Interface
		iface, err = cfg.Profile(profile)
		if err != nil {
			return "", "", nil, err
		}
		name = iface.Name
		defaultName = cfg.DefaultInterface
		opts, err = iface.Options()
		if err != nil {
			return "", "", nil, err
		}
	}
	if ifaceName != "" {
		name = ifaceName
	}
	if name == "" && defaultName == "" {
		var err error
		defaultName, err = tuntap.DefaultInterfaceName()
		if err != nil {
			log.Debugf("no default interface: %s", err)
		}
	}
	if defaultName != "" {
		opts = append(opts, tuntap.WithDefaultName(defaultName))
	}
	if cmd.Flags().Changed("mode") {
		mode, err := tuntap.ParseMode(modeStr)
		if err != nil {
			return "", "", nil, err
		}
		opts = append(opts, tuntap.WithMode(mode))
	}
	if readSize > 0 {
		opts = append(opts, tuntap.WithReadSize(readSize))
	}
	if noStrip {
		opts = append(opts, tuntap.WithStripPacketInfo(false))
	}
	var linkOpts []func(*tuntap.LinkOptions)
	if mtu > 0 {
		linkOpts = append(linkOpts, tuntap.WithMTU(mtu))
	}
	if linkUp {
		linkOpts = append(linkOpts, tuntap.WithLinkUp())
	}
	if len(linkOpts) > 0 {
		opts = append(opts, tuntap.WithLinkSetup(linkOpts...))
	}
	return name, defaultName, opts, nil
}

func openChannel(cmd *cobra.Command) *tuntap.Channel {
	name, _, opts, err := channelParams(cmd)
	if err != nil {
		errExit(err)
	}
	ch, err := tuntap.Open(name, opts...)
	if err != nil {
		errExit(err)
	}
	exit_handler.AddExitFunc(ch.Name(), ch.Close)
	log.Infof("opened %s (%s, %s)", ch.Name(), ch.Mode(), ch.KernelType())
	return ch
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show how an interface would be opened, without opening it",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		name, defaultName, _, err := channelParams(cmd)
		if err != nil {
			errExit(err)
		}
		mode := tuntap.ModeAuto
		if cmd.Flags().Changed("mode") {
			mode, err = tuntap.ParseMode(modeStr)
			if err != nil {
				errExit(err)
			}
		}
		if mode == tuntap.ModeAuto && configFile != "" {
			var cfg *config.Config
			cfg, err = config.LoadConfig(configFile)
			if err != nil {
				errExit(err)
			}
			mode, _ = tuntap.ParseMode(cfg.Interfaces[profile].Mode)
		}
		platform := tuntap.CurrentPlatform()
		var spec tuntap.InterfaceSpec
		spec, err = tuntap.Resolve(name, defaultName, mode, platform)
		if err != nil {
			errExit(err)
		}
		_, err = tuntap.StrategyFor(platform)
		if err != nil {
			errExit(err)
		}
		fmt.Printf("Interface: %s\nMode:      %s\nPlatform:  %s\n", spec.Name, spec.Mode, spec.Platform)
	},
}

var captureCount int
var captureHex bool
var captureSize int

type receiver interface {
	Recv(size int) (tuntap.PayloadType, []byte, time.Time, error)
}

// perFrameError returns true if a receive error only affects the frame that was just read
func perFrameError(err error) bool {
	return errors.Is(err, tuntap.ErrUnsupportedAddressFamily) || errors.Is(err, tuntap.ErrShortFrame)
}

// capture prints up to count frames, or until the channel is closed if count is not positive
func capture(r receiver, count int, size int, dump bool, out io.Writer) error {
	for i := 0; count <= 0 || i < count; i++ {
		pt, data, ts, err := r.Recv(size)
		if errors.Is(err, tuntap.ErrClosedChannel) {
			return nil
		}
		if perFrameError(err) {
			log.Warnf("skipping frame: %s", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("error receiving: %w", err)
		}
		_, _ = fmt.Fprintf(out, "%s %s %d bytes\n", ts.Format(time.RFC3339Nano), pt, len(data))
		if dump {
			_, _ = fmt.Fprint(out, hex.Dump(data))
		}
	}
	return nil
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Print frames read from an interface",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exit_handler.HandleSignals(false)
		ch := openChannel(cmd)
		err := capture(ch, captureCount, captureSize, captureHex, os.Stdout)
		if err != nil {
			errExit(err)
		}
		exit_handler.RunExitFuncs()
	},
}

var injectType string

var injectCmd = &cobra.Command{
	Use:   "inject HEXFRAME...",
	Short: "Send frames, given as hex strings, to an interface",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pt, err := tuntap.ParsePayloadType(injectType)
		if err != nil {
			errExit(err)
		}
		frames := make([]tuntap.Frame, 0, len(args))
		for _, arg := range args {
			var b []byte
			b, err = hex.DecodeString(strings.ReplaceAll(arg, ":", ""))
			if err != nil {
				errExit(fmt.Errorf("error parsing %q: %w", arg, err))
			}
			var f tuntap.Frame
			f, err = tuntap.ParseFrame(pt, b)
			if err != nil {
				errExit(err)
			}
			frames = append(frames, f)
		}
		ch := openChannel(cmd)
		defer exit_handler.RunExitFuncs()
		for _, f := range frames {
			var n int
			n, err = ch.Send(f)
			if err != nil {
				errExit(err)
			}
			fmt.Printf("sent %d bytes\n", n)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file name")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Interface profile from the config file")
	rootCmd.PersistentFlags().StringVar(&ifaceName, "iface", "", "Interface name, such as tun0, utun3 or tap%d")
	rootCmd.PersistentFlags().StringVar(&modeStr, "mode", "auto", "Interface mode (tun/tap/auto)")
	rootCmd.PersistentFlags().IntVar(&readSize, "read-size", 0, "Default number of bytes to read per frame")
	rootCmd.PersistentFlags().BoolVar(&noStrip, "no-strip", false, "Leave packet info headers on received frames")
	rootCmd.PersistentFlags().IntVar(&mtu, "mtu", 0, "Set the interface MTU after opening (Linux only)")
	rootCmd.PersistentFlags().BoolVar(&linkUp, "up", false, "Set the interface up after opening (Linux only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (error/warning/info/debug)")

	captureCmd.Flags().IntVarP(&captureCount, "count", "c", 0, "Number of frames to capture (0 for unlimited)")
	captureCmd.Flags().BoolVar(&captureHex, "hex", false, "Print a hex dump of each frame")
	captureCmd.Flags().IntVar(&captureSize, "size", 0, "Bytes to read per frame, overriding --read-size")
	injectCmd.Flags().StringVar(&injectType, "type", "raw", "Type of the given frames (raw/ipv4/ipv6/ip/ethernet/tun-info/utun-info)")

	rootCmd.AddCommand(infoCmd, captureCmd, injectCmd)
	err := rootCmd.Execute()
	if err != nil {
		errExit(err)
	}
}
