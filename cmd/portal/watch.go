package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-portal/internal/event"
	redisBroker "github.com/jwalitptl/patient-portal/pkg/messaging/redis"
)

// watchEventsCmd tails the appointment events mirrored to Redis by running
// portal instances.
func watchEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-events",
		Short: "Log appointment events published by portal instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, _ := cmd.Flags().GetStringSlice("config-path")
			cfg, err := loadConfig(paths)
			if err != nil {
				return err
			}
			if cfg.Session.RedisURL == "" {
				return fmt.Errorf("session.redis_url is required to watch events")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			broker, err := redisBroker.NewRedisBroker(ctx, redisBroker.Config{URL: cfg.Session.RedisURL}, log.Logger)
			if err != nil {
				return err
			}
			defer broker.Close()

			messages, err := broker.Subscribe(ctx, cfg.Events.RedisChannel)
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", cfg.Events.RedisChannel, err)
			}
			log.Info().Str("channel", cfg.Events.RedisChannel).Msg("Watching appointment events")

			for payload := range messages {
				var evt event.Event
				if err := json.Unmarshal(payload, &evt); err != nil {
					log.Warn().Err(err).Msg("Skipping malformed event")
					continue
				}
				log.Info().Str("type", evt.Type).Interface("data", evt.Data).Msg("Appointment event")
			}
			return nil
		},
	}
}
