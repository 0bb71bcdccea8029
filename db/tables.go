package db

import (
	"context"
	"time"

	"github.com/alwitt/catalog/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefineTables create or migrate the catalog tables
func DefineTables(_ context.Context, db *gorm.DB) error {
	return db.AutoMigrate(
		RecordEventAuditDBEntry{},
		RecordDBEntry{},
	)
}

// --------------------------------------------------------------------------------------
// Record audit events

// RecordEventAuditDBEntry record audit event DB entry
type RecordEventAuditDBEntry struct {
	models.RecordEventAudit
}

// TableName hard code table name
func (RecordEventAuditDBEntry) TableName() string {
	return "record_audit_events"
}

// --------------------------------------------------------------------------------------
// Records

// RecordDBEntry catalog record DB entry
//
// Scalar fields are stored as one JSON object so every entity kind shares the table.
type RecordDBEntry struct {
	// ID record ID
	ID string `gorm:"column:id;primaryKey;unique" validate:"required,ulid"`
	// Kind entity kind
	Kind string `gorm:"column:kind;not null;index" validate:"required,entity_kind"`
	// Version optimistic locking version
	Version int64 `gorm:"column:version;not null" validate:"gte=1"`
	// Fields JSON object of scalar field values
	Fields datatypes.JSON `gorm:"column:fields;not null" validate:"required"`
	// Attachment binary attachment payload
	Attachment []byte `gorm:"column:attachment;default:null" validate:"max=1000000"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time
}

// TableName hard code table name
func (RecordDBEntry) TableName() string {
	return "records"
}
