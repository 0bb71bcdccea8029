package db

import (
	"context"
	"fmt"

	"github.com/alwitt/catalog/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// RecordEventQueryFilter record audit event query filter conditions
type RecordEventQueryFilter struct {
	CommonListEntryQueryFilter
	// EventTypes the specific event types to query for
	EventTypes []models.RecordEventTypeENUMType
	// TargetRecordID fetch only events related to this record
	TargetRecordID *string
	// TargetKind fetch only events of records of this entity kind
	TargetKind *string
}

// RecordSortKey one record list ordering key
type RecordSortKey struct {
	// Field the record field to sort by
	Field string
	// Numeric sort the field values as numbers instead of text
	Numeric bool
	// Descending sort in descending order
	Descending bool
}

// RecordFieldMatch record list predicate: field value contains the text, case-insensitive
type RecordFieldMatch struct {
	// Field the record field to match against
	Field string
	// Contains the text to look for
	Contains string
}

// RecordQueryFilter data record query filter conditions
type RecordQueryFilter struct {
	CommonListEntryQueryFilter
	// Sort ordering keys, applied before the natural order
	Sort []RecordSortKey
	// Match optional field predicate
	Match *RecordFieldMatch
}

// Database the database handle to interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// Record audit events

	/*
		ListRecordEvents list captured record events

			@param ctx context.Context - execution context
			@param filters RecordEventQueryFilter - entry listing filter
			@return list of record events
	*/
	ListRecordEvents(
		ctx context.Context, filters RecordEventQueryFilter,
	) ([]models.RecordEventAudit, error)

	// ------------------------------------------------------------------------------------
	// Data records

	/*
		DefineNewRecord define new data record at version 1

			@param ctx context.Context - execution context
			@param kind string - entity kind
			@param fields map[string]string - record field values
			@param attachment []byte - record attachment payload
			@returns record entry
	*/
	DefineNewRecord(
		ctx context.Context, kind string, fields map[string]string, attachment []byte,
	) (models.Record, error)

	/*
		GetRecord fetch a data record by ID

			@param ctx context.Context - execution context
			@param kind string - entity kind
			@param recordID string - data record ID
			@returns record entry
	*/
	GetRecord(ctx context.Context, kind string, recordID string) (models.Record, error)

	/*
		ListRecords list data records

			@param ctx context.Context - execution context
			@param kind string - entity kind
			@param filters RecordQueryFilter - entry listing filter
			@return list of records
	*/
	ListRecords(
		ctx context.Context, kind string, filters RecordQueryFilter,
	) ([]models.Record, error)

	/*
		CountRecords count data records

			@param ctx context.Context - execution context
			@param kind string - entity kind
			@param match *RecordFieldMatch - optional field predicate
			@return number of records
	*/
	CountRecords(ctx context.Context, kind string, match *RecordFieldMatch) (int64, error)

	/*
		UpdateRecord update a data record if its stored version still matches

		Fails with models.ErrOptimisticLockConflict when the stored version differs, or the
		record no longer exists.

			@param ctx context.Context - execution context
			@param record models.Record - the record with its last read version
			@returns the updated record entry
	*/
	UpdateRecord(ctx context.Context, record models.Record) (models.Record, error)

	/*
		DeleteRecord delete a data record if its stored version still matches

		Deleting a record which does not exist is a no-op.

			@param ctx context.Context - execution context
			@param kind string - entity kind
			@param recordID string - data record ID
			@param version int64 - the last read version
	*/
	DeleteRecord(ctx context.Context, kind string, recordID string, version int64) error
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "catalog", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
