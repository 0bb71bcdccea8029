package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// RecordEventTypeENUMType record event type ENUM value type
type RecordEventTypeENUMType string

const (
	// RecordEventTypeCreated record was persisted for the first time
	RecordEventTypeCreated RecordEventTypeENUMType = "RECORD_CREATED"

	// RecordEventTypeUpdated record was updated
	RecordEventTypeUpdated RecordEventTypeENUMType = "RECORD_UPDATED"

	// RecordEventTypeDeleted record was deleted
	RecordEventTypeDeleted RecordEventTypeENUMType = "RECORD_DELETED"
)

// RecordEventAudit journal entry of a change to a record
type RecordEventAudit struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,ulid"`
	// EventType record event type
	EventType RecordEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,record_event_type"`
	// RecordID the record the event relates to
	RecordID string `json:"record_id" gorm:"column:record_id;not null;index" validate:"required,ulid"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a RecordEventAudit) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	case RecordEventTypeCreated:
		fallthrough
	case RecordEventTypeUpdated:
		fallthrough
	case RecordEventTypeDeleted:
		var parsed RecordEventMetadata
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("record event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// RecordEventMetadata record event metadata
type RecordEventMetadata struct {
	// RecordID the data record ID
	RecordID string `json:"record_id" validate:"required,ulid"`
	// Kind the data record entity kind
	Kind string `json:"kind" validate:"required,entity_kind"`
	// Version the record version after the event
	Version int64 `json:"version" validate:"gte=1"`
}
