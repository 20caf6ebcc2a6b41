package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePermitRequested = "permit.requested"
	EventTypePermitDecided   = "permit.decided"
)

type PermitRequestedEvent struct {
	BaseEvent
	PermitID     int64  `json:"permit_id"`
	DepartmentID int64  `json:"department_id"`
	RequestedBy  int64  `json:"requested_by"`
	PermitType   string `json:"permit_type"`
}

func NewPermitRequestedEvent(permitID, departmentID, requestedBy int64, permitType string) *PermitRequestedEvent {
	return &PermitRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermitRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permit_id":     permitID,
				"department_id": departmentID,
				"requested_by":  requestedBy,
				"permit_type":   permitType,
			},
		},
		PermitID:     permitID,
		DepartmentID: departmentID,
		RequestedBy:  requestedBy,
		PermitType:   permitType,
	}
}

type PermitDecidedEvent struct {
	BaseEvent
	PermitID  int64   `json:"permit_id"`
	Approved  bool    `json:"approved"`
	Reason    *string `json:"reason,omitempty"`
	DecidedBy int64   `json:"decided_by"`
}

func NewPermitDecidedEvent(permitID int64, approved bool, reason *string, decidedBy int64) *PermitDecidedEvent {
	data := map[string]interface{}{
		"permit_id":  permitID,
		"approved":   approved,
		"decided_by": decidedBy,
	}
	if reason != nil {
		data["reason"] = *reason
	}
	return &PermitDecidedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermitDecided,
			Timestamp: time.Now(),
			Data:      data,
		},
		PermitID:  permitID,
		Approved:  approved,
		Reason:    reason,
		DecidedBy: decidedBy,
	}
}

// AuditLogHandler writes every permit lifecycle event to the audit log.
func AuditLogHandler(logger *slog.Logger) Handler {
	audit := logger.With("component", "audit")
	return func(ctx context.Context, event Event) error {
		audit.InfoContext(ctx, "permit event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}
}

// SubscribeAudit registers the audit log handler for every permit event.
func SubscribeAudit(bus *EventBus, logger *slog.Logger) {
	for _, eventType := range []string{EventTypePermitRequested, EventTypePermitDecided} {
		bus.Subscribe(eventType, AuditLogHandler(logger))
	}
}
