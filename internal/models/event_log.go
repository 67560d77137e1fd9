package models

// EventLog persists a domain event emitted by the engine. Delivery to the
// outside world (email, push, UI) is out of scope; subscribers read these
// rows or attach in-process handlers.
type EventLog struct {
	Base
	Name       string `gorm:"not null;index" json:"name"`
	EntityType string `gorm:"not null" json:"entity_type"`
	EntityID   string `gorm:"not null" json:"entity_id"`
	Payload    string `gorm:"type:text" json:"payload"`
}
