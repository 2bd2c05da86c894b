package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/phonemap/internal/adapters/nats"
	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/pkg/config"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
)

func citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List locations that resolve to a known city",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range geospatial.KnownCities() {
				p, _ := geospatial.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %9.4f %9.4f\n", name, p.Lat, p.Lng)
			}
		},
	}
}

func watchCmd(load func() (*config.Config, error)) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print record events published to NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Events.NATS.URL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := natsadapter.NewSubscriber(url)
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			err = sub.SubscribeRecordEvents(ctx, func(ctx context.Context, ev *domain.RecordEvent) error {
				fmt.Fprintln(out, formatEvent(ev))
				return nil
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}

			fmt.Fprintf(out, "watching %s%s on %s\n", natsadapter.SubjectPrefix, ">", url)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", "", "NATS server URL (defaults to events.nats.url)")
	return cmd
}

func formatEvent(ev *domain.RecordEvent) string {
	return fmt.Sprintf("%s %-7s %s %s (%s) count=%d",
		ev.Time.Local().Format("15:04:05"), ev.Type, ev.Record.ID, ev.Record.PhoneNumber, ev.Record.Location, ev.Count)
}
