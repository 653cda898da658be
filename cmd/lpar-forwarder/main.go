// Command lpar-forwarder relays the OS console messages of HMC-managed
// partitions to syslog servers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/hmc"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/logging"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// rootOptions are the flags of the forwarder itself
type rootOptions struct {
	configFile     string
	logDest        string
	logComp        []string
	syslogFacility string
	verbose        int
	helpConfig     bool

	// connect builds the console connector; replaced in tests
	connect func(cfg *config.Config, loggers *logging.Loggers) (console.Connector, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{connect: connectHMC}

	rootCmd := &cobra.Command{
		Use:   "lpar-forwarder",
		Short: "Forward OS console messages of LPARs to syslog servers",
		Long: `lpar-forwarder logs on to an HMC, opens the OS message channel of every
partition selected by the forwarding section of its config file, and relays
each OS console message to the syslog servers configured for the partition.

It runs until interrupted with Ctrl-C or SIGTERM.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.helpConfig {
				_, err := io.WriteString(cmd.OutOrStdout(), config.Example)
				return err
			}
			return runForwarder(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	rootCmd.SetVersionTemplate("lpar-forwarder version: {{.Version}}\n")

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configFile, "config-file", "c", config.DefaultPath, "File path of the config file")
	flags.StringVar(&opts.logDest, "log", "", "Enable logging to DEST: stderr, syslog, or a file path (default: no logging)")
	flags.StringArrayVar(&opts.logComp, "log-comp", nil, "Set the level of log component COMP[=LEVEL]; COMP: forwarder, hmc, jms, all; LEVEL: error, warning, info, debug, off (default: all=warning)")
	flags.StringVar(&opts.syslogFacility, "syslog-facility", "user", "Syslog facility when logging to the system log")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Increase verbosity of forwarder messages (-v: info, -vv: debug)")
	flags.BoolVar(&opts.helpConfig, "help-config", false, "Show an example config file and exit")

	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newStatusCommand())

	return rootCmd
}

func connectHMC(cfg *config.Config, loggers *logging.Loggers) (console.Connector, error) {
	verify := cfg.HMC.VerifyCert
	return hmc.NewConnector(hmc.Config{
		Host:         cfg.HMC.Host,
		Port:         cfg.HMC.Port,
		StompPort:    cfg.HMC.StompPort,
		UserID:       cfg.HMC.UserID,
		Password:     cfg.HMC.Password,
		VerifyCert:   verify == nil || verify.Enabled,
		CAFile:       cfg.CAFile(),
		Logger:       loggers.HMC,
		NotifyLogger: loggers.JMS,
	})
}
