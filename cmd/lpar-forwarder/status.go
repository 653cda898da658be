package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/httpclient"
)

func newStatusCommand() *cobra.Command {
	var (
		serverURL string
		token     string
		timeout   time.Duration
		lpars     bool
		stats     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running forwarder",
		Long: `Query the status API of a running forwarder. Health needs no token;
--lpars needs a token and --stats an admin token (see "lpar-forwarder token").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := httpclient.NewClient(httpclient.Config{
				ServerURL: serverURL,
				Token:     token,
				Timeout:   timeout,
			})
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			if err := printHealth(ctx, out, client); err != nil {
				return err
			}
			if lpars {
				if err := printLpars(ctx, out, client); err != nil {
					return err
				}
			}
			if stats {
				if err := printStats(ctx, out, client); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverURL, "server", "http://localhost:8081", "Status API URL")
	flags.StringVar(&token, "token", "", "Bearer token")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	flags.BoolVar(&lpars, "lpars", false, "List the forwarded partitions")
	flags.BoolVar(&stats, "stats", false, "Show forwarding statistics")
	return cmd
}

func printHealth(ctx context.Context, out io.Writer, client *httpclient.Client) error {
	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Healthy {
		fmt.Fprintln(out, "Forwarder is healthy")
	} else {
		fmt.Fprintln(out, "Forwarder is not healthy")
	}
	fmt.Fprintf(out, "State: %s\n", health.State)
	fmt.Fprintf(out, "Forwarded partitions: %d (%d subscribed)\n", health.ForwardedPartitions, health.SubscribedPartitions)
	fmt.Fprintf(out, "Syslog servers: %d (%d skipped)\n", health.Syslogs, health.DisabledSyslogs)
	if health.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", health.Message)
	}
	return nil
}

func printLpars(ctx context.Context, out io.Writer, client *httpclient.Client) error {
	resp, err := client.ListLpars(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	if len(resp.Lpars) == 0 {
		fmt.Fprintln(out, "\nNo partitions are forwarded")
		return nil
	}
	fmt.Fprintf(out, "\nForwarded partitions:\n")
	for _, lpar := range resp.Lpars {
		topic := lpar.Topic
		if topic == "" {
			topic = "-"
		}
		fmt.Fprintf(out, "  %s/%s topic=%s syslogs=%v\n", lpar.CPC, lpar.Name, topic, lpar.Syslogs)
	}
	return nil
}

func printStats(ctx context.Context, out io.Writer, client *httpclient.Client) error {
	stats, err := client.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Fprintf(out, "\nStatistics:\n")
	fmt.Fprintf(out, "  Uptime: %s\n", time.Duration(stats.UptimeSeconds)*time.Second)
	fmt.Fprintf(out, "  Notifications: %d (%d ignored)\n", stats.Notifications, stats.IgnoredNotifications)
	fmt.Fprintf(out, "  Receive errors: %d\n", stats.ReceiveErrors)
	fmt.Fprintf(out, "  OS messages: %d\n", stats.Messages)
	fmt.Fprintf(out, "  Deliveries: %d (%d failed)\n", stats.Deliveries, stats.DeliveryFailures)
	return nil
}
