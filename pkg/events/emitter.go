// Package events handles event emission for property lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventPropertyCreated  = "property.created"
	EventPropertyUpdated  = "property.updated"
	EventPropertyArchived = "property.archived"
	EventPropertyRestored = "property.restored"
	EventPropertyDeleted  = "property.deleted"
)

// Emitter publishes property lifecycle events. Emission is best-effort: a
// broker failure is logged and counted, never surfaced to the write path.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitPropertyCreated emits a property.created event with the full listing.
func (e *Emitter) EmitPropertyCreated(ctx context.Context, p *models.Property) {
	e.emitWithBody(ctx, EventPropertyCreated, p)
}

// EmitPropertyUpdated emits a property.updated event with the full listing.
func (e *Emitter) EmitPropertyUpdated(ctx context.Context, p *models.Property) {
	e.emitWithBody(ctx, EventPropertyUpdated, p)
}

// EmitPropertyArchived emits a property.archived event.
func (e *Emitter) EmitPropertyArchived(ctx context.Context, tenantID, propertyID string) {
	e.emit(ctx, &kafka.PropertyEvent{
		EventType:  EventPropertyArchived,
		TenantID:   tenantID,
		PropertyID: propertyID,
	})
}

// EmitPropertyRestored emits a property.restored event.
func (e *Emitter) EmitPropertyRestored(ctx context.Context, tenantID, propertyID string) {
	e.emit(ctx, &kafka.PropertyEvent{
		EventType:  EventPropertyRestored,
		TenantID:   tenantID,
		PropertyID: propertyID,
	})
}

// EmitPropertyDeleted emits a property.deleted event.
func (e *Emitter) EmitPropertyDeleted(ctx context.Context, tenantID, propertyID string) {
	e.emit(ctx, &kafka.PropertyEvent{
		EventType:  EventPropertyDeleted,
		TenantID:   tenantID,
		PropertyID: propertyID,
	})
}

func (e *Emitter) emitWithBody(ctx context.Context, eventType string, p *models.Property) {
	data, err := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"property":       p,
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to encode property event body")
		metrics.EventsEmittedTotal.WithLabelValues(eventType, "error").Inc()
		return
	}

	e.emit(ctx, &kafka.PropertyEvent{
		EventType:  eventType,
		TenantID:   p.TenantID,
		PropertyID: p.ID,
		OwnerID:    p.OwnerID,
		Data:       data,
	})
}

func (e *Emitter) emit(ctx context.Context, event *kafka.PropertyEvent) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	if err := e.producer.PublishPropertyEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
		}).Error("Failed to emit property event")
		metrics.EventsEmittedTotal.WithLabelValues(event.EventType, "error").Inc()
		return
	}

	metrics.EventsEmittedTotal.WithLabelValues(event.EventType, "ok").Inc()
}
