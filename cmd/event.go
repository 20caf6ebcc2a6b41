package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/permit-management/internal/core/events"
	"github.com/frahmantamala/permit-management/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Inspect the in-process event bus: publish test events through the audit handler.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event and let the audit handler log it. permit.requested and permit.decided carry the payload the server emits.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventData     string
	eventPermitID int64
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	events.SubscribeAudit(bus, lg)

	var event events.Event
	switch eventType {
	case events.EventTypePermitRequested:
		event = events.NewPermitRequestedEvent(eventPermitID, 1, 1, "temporary")
	case events.EventTypePermitDecided:
		reason := eventData
		event = events.NewPermitDecidedEvent(eventPermitID, false, &reason, 1)
	default:
		bus.Subscribe(eventType, events.AuditLogHandler(lg))
		event = events.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message": eventData,
				"source":  "cli-command",
			},
		}
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	lg.Info("test event published")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "message, or rejection reason for permit.decided")
	publishEventCmd.Flags().Int64Var(&eventPermitID, "permit-id", 1, "permit id carried by permit events")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
