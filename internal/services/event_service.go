package services

import (
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"ledgercore/internal/logger"
	"ledgercore/internal/models"
)

// Domain event names emitted by the engine.
const (
	EventEntryPosted             = "entry.posted"
	EventBalanceChanged          = "account.balance_changed"
	EventReconciliationMatched   = "reconciliation.matched"
	EventReconciliationSuggested = "reconciliation.suggested"
	EventTemplateDue             = "template.due"
)

// Event is a domain event emitted by the engine.
type Event struct {
	Name       string         `json:"name"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// EventHandler receives published events. Handlers run synchronously on
// the publishing goroutine and must not block.
type EventHandler func(Event)

// eventService records and dispatches domain events.
type eventService struct {
	db *gorm.DB

	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewEventService creates a new EventServicer backed by the given database.
func NewEventService(db *gorm.DB) EventServicer {
	return &eventService{
		db:       db,
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for the given event name.
func (s *eventService) Subscribe(name string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = append(s.handlers[name], handler)
}

// Publish records an event and dispatches it to subscribers. Persistence
// errors are logged but never propagate, so an event-log failure cannot
// disrupt the operation that emitted the event.
func (s *eventService) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	var payloadJSON string
	if evt.Payload != nil {
		data, err := json.Marshal(evt.Payload)
		if err != nil {
			logger.Get().Errorw("failed to marshal event payload", "error", err, "event", evt.Name)
			payloadJSON = "{}"
		} else {
			payloadJSON = string(data)
		}
	}

	record := &models.EventLog{
		Name:       evt.Name,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Payload:    payloadJSON,
	}
	if err := s.db.Create(record).Error; err != nil {
		logger.Get().Errorw("failed to persist event",
			"error", err,
			"event", evt.Name,
			"entity_type", evt.EntityType,
			"entity_id", evt.EntityID,
		)
	}

	s.mu.RLock()
	subscribers := append([]EventHandler(nil), s.handlers[evt.Name]...)
	s.mu.RUnlock()

	for _, handler := range subscribers {
		handler(evt)
	}
}
