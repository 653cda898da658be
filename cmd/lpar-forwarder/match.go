package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/routingtable"
)

func newMatchCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "match CPC PARTITION",
		Short: "Show where the messages of a partition would be forwarded",
		Long: `Compile the forwarding section of the config file and print the syslog
servers that the OS messages of partition PARTITION on CPC would be sent to.
The first entry whose CPC pattern matches decides; later entries are not
consulted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			table, err := routingtable.Compile(cfg.Forwarding)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			targets, ok := table.Match(args[0], args[1])
			if !ok {
				fmt.Fprintf(out, "Partition %s on CPC %s is not forwarded\n", args[1], args[0])
				return nil
			}
			fmt.Fprintf(out, "Partition %s on CPC %s is forwarded to:\n", args[1], args[0])
			for _, target := range targets {
				fmt.Fprintf(out, "  %s (facility %s, format %s)\n", target, target.Facility, target.Format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config-file", "c", config.DefaultPath, "File path of the config file")
	return cmd
}
