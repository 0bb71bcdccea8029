// Package db - persistence layer
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alwitt/catalog/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

// defineNewRecordEvent record a new record event
func (d *databaseImpl) defineNewRecordEvent(
	eventType models.RecordEventTypeENUMType, record RecordDBEntry,
) (models.RecordEventAudit, error) {
	metadata := models.RecordEventMetadata{
		RecordID: record.ID, Kind: record.Kind, Version: record.Version,
	}
	if err := d.validator.Struct(&metadata); err != nil {
		return models.RecordEventAudit{}, fmt.Errorf(
			"new record event '%s' metadata entry is not valid [%w]", eventType, err,
		)
	}
	metadataStr, _ := json.Marshal(&metadata)

	newEntry := RecordEventAuditDBEntry{
		RecordEventAudit: models.RecordEventAudit{
			ID:        ulid.Make().String(),
			EventType: eventType,
			RecordID:  record.ID,
			Metadata:  datatypes.JSON(metadataStr),
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.RecordEventAudit{}, fmt.Errorf(
			"new record event '%s' entry is not valid [%w]", eventType, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.RecordEventAudit{}, fmt.Errorf(
			"new record event '%s' insert failed [%w]", eventType, tmp.Error,
		)
	}

	return newEntry.RecordEventAudit, nil
}

/*
ListRecordEvents list captured record events

	@param ctx context.Context - execution context
	@param filters RecordEventQueryFilter - entry listing filter
	@return list of record events
*/
func (d *databaseImpl) ListRecordEvents(
	_ context.Context, filters RecordEventQueryFilter,
) ([]models.RecordEventAudit, error) {
	query := d.db.Model(&RecordEventAuditDBEntry{})

	if len(filters.EventTypes) > 0 {
		query = query.Where("type in ?", filters.EventTypes)
	}

	if filters.TargetRecordID != nil {
		query = query.Where("record_id = ?", *filters.TargetRecordID)
	}

	if filters.TargetKind != nil {
		query = query.Where(datatypes.JSONQuery("metadata").Equals(*filters.TargetKind, "kind"))
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	// ULIDs sort by creation time
	query = query.Order("id")

	var entries []RecordEventAuditDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list captured record events [%w]", tmp.Error)
	}

	result := []models.RecordEventAudit{}
	for _, entry := range entries {
		result = append(result, entry.RecordEventAudit)
	}

	return result, nil
}
