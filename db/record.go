package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alwitt/catalog/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// toModel convert the DB entry into a data record
func (e RecordDBEntry) toModel() (models.Record, error) {
	fields := map[string]string{}
	if len(e.Fields) > 0 {
		if err := json.Unmarshal(e.Fields, &fields); err != nil {
			return models.Record{}, fmt.Errorf("record %s fields are not parsable [%w]", e.ID, err)
		}
	}
	return models.Record{
		ID:         e.ID,
		Kind:       e.Kind,
		Version:    e.Version,
		Fields:     fields,
		Attachment: e.Attachment,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}, nil
}

// encodeFields serialize record fields for storage
func encodeFields(fields map[string]string) datatypes.JSON {
	if fields == nil {
		fields = map[string]string{}
	}
	encoded, _ := json.Marshal(fields)
	return datatypes.JSON(encoded)
}

// fieldExpression SQL expression reading one field out of the JSON fields column
func (d *databaseImpl) fieldExpression(field string, numeric bool) (string, error) {
	// Field names are interpolated into SQL, so they must pass the strict name check
	if !models.ValidFieldName(field) {
		return "", fmt.Errorf("'%s' is not a valid record field name", field)
	}
	switch d.db.Dialector.Name() {
	case "postgres":
		expr := fmt.Sprintf("(fields->>'%s')", field)
		if numeric {
			return fmt.Sprintf("CAST(NULLIF(%s, '') AS NUMERIC)", expr), nil
		}
		return expr, nil
	default:
		expr := fmt.Sprintf("json_extract(fields, '$.%s')", field)
		if numeric {
			return fmt.Sprintf("CAST(NULLIF(%s, '') AS REAL)", expr), nil
		}
		return expr, nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyFieldMatch add the field predicate to a query
func (d *databaseImpl) applyFieldMatch(query *gorm.DB, match *RecordFieldMatch) (*gorm.DB, error) {
	if match == nil {
		return query, nil
	}
	expr, err := d.fieldExpression(match.Field, false)
	if err != nil {
		return nil, err
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(match.Contains)) + "%"
	return query.Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, expr), pattern), nil
}

// ======================================================================================
// Data records

/*
DefineNewRecord define new data record at version 1

	@param ctx context.Context - execution context
	@param kind string - entity kind
	@param fields map[string]string - record field values
	@param attachment []byte - record attachment payload
	@returns record entry
*/
func (d *databaseImpl) DefineNewRecord(
	_ context.Context, kind string, fields map[string]string, attachment []byte,
) (models.Record, error) {
	newEntry := RecordDBEntry{
		ID:         ulid.Make().String(),
		Kind:       kind,
		Version:    1,
		Fields:     encodeFields(fields),
		Attachment: attachment,
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.Record{}, fmt.Errorf("new %s record is not valid [%w]", kind, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.Record{}, fmt.Errorf("new %s record failed insert [%w]", kind, tmp.Error)
	}

	// Record this event
	if _, err := d.defineNewRecordEvent(models.RecordEventTypeCreated, newEntry); err != nil {
		return models.Record{}, fmt.Errorf(
			"failed to log add new record %s audit event [%w]", newEntry.ID, err,
		)
	}

	return newEntry.toModel()
}

// getRecordEntry find a data record by ID
func (d *databaseImpl) getRecordEntry(kind string, recordID string) (RecordDBEntry, error) {
	var entry RecordDBEntry
	err := d.db.Where("id = ? AND kind = ?", recordID, kind).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, models.ErrRecordNotFound
	}
	return entry, err
}

/*
GetRecord fetch a data record by ID

	@param ctx context.Context - execution context
	@param kind string - entity kind
	@param recordID string - data record ID
	@returns record entry
*/
func (d *databaseImpl) GetRecord(
	_ context.Context, kind string, recordID string,
) (models.Record, error) {
	entry, err := d.getRecordEntry(kind, recordID)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to fetch %s record %s [%w]", kind, recordID, err)
	}

	return entry.toModel()
}

/*
ListRecords list data records

	@param ctx context.Context - execution context
	@param kind string - entity kind
	@param filters RecordQueryFilter - entry listing filter
	@return list of records
*/
func (d *databaseImpl) ListRecords(
	_ context.Context, kind string, filters RecordQueryFilter,
) ([]models.Record, error) {
	query := d.db.Model(&RecordDBEntry{}).Where("kind = ?", kind)

	query, err := d.applyFieldMatch(query, filters.Match)
	if err != nil {
		return nil, fmt.Errorf("invalid %s record filter [%w]", kind, err)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	for _, key := range filters.Sort {
		expr, err := d.fieldExpression(key.Field, key.Numeric)
		if err != nil {
			return nil, fmt.Errorf("invalid %s record sort key [%w]", kind, err)
		}
		direction := "ASC"
		if key.Descending {
			direction = "DESC"
		}
		query = query.Order(fmt.Sprintf("%s %s", expr, direction))
	}

	// Ties are broken by the natural order. ULIDs sort by creation time.
	query = query.Order("id")

	var entries []RecordDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list %s records [%w]", kind, tmp.Error)
	}

	result := []models.Record{}
	for _, entry := range entries {
		record, err := entry.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	return result, nil
}

/*
CountRecords count data records

	@param ctx context.Context - execution context
	@param kind string - entity kind
	@param match *RecordFieldMatch - optional field predicate
	@return number of records
*/
func (d *databaseImpl) CountRecords(
	_ context.Context, kind string, match *RecordFieldMatch,
) (int64, error) {
	query := d.db.Model(&RecordDBEntry{}).Where("kind = ?", kind)

	query, err := d.applyFieldMatch(query, match)
	if err != nil {
		return 0, fmt.Errorf("invalid %s record filter [%w]", kind, err)
	}

	var count int64
	if tmp := query.Count(&count); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count %s records [%w]", kind, tmp.Error)
	}

	return count, nil
}

/*
UpdateRecord update a data record if its stored version still matches

	@param ctx context.Context - execution context
	@param record models.Record - the record with its last read version
	@returns the updated record entry
*/
func (d *databaseImpl) UpdateRecord(
	_ context.Context, record models.Record,
) (models.Record, error) {
	if err := d.validator.Struct(&record); err != nil {
		return models.Record{}, fmt.Errorf("%s record %s is not valid [%w]", record.Kind, record.ID, err)
	}

	tmp := d.db.Model(&RecordDBEntry{}).
		Where("id = ? AND kind = ? AND version = ?", record.ID, record.Kind, record.Version).
		Updates(map[string]interface{}{
			"fields":     encodeFields(record.Fields),
			"attachment": record.Attachment,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if tmp.Error != nil {
		return models.Record{}, fmt.Errorf(
			"failed to update %s record %s [%w]", record.Kind, record.ID, tmp.Error,
		)
	}

	if tmp.RowsAffected == 0 {
		// Either the version moved on, or the record is gone
		if _, err := d.getRecordEntry(record.Kind, record.ID); err != nil {
			if errors.Is(err, models.ErrRecordNotFound) {
				return models.Record{}, fmt.Errorf(
					"%s record %s no longer exists [%w]",
					record.Kind, record.ID, models.ErrOptimisticLockConflict,
				)
			}
			return models.Record{}, fmt.Errorf(
				"failed to fetch %s record %s [%w]", record.Kind, record.ID, err,
			)
		}
		return models.Record{}, fmt.Errorf(
			"%s record %s is no longer at version %d [%w]",
			record.Kind, record.ID, record.Version, models.ErrOptimisticLockConflict,
		)
	}

	entry, err := d.getRecordEntry(record.Kind, record.ID)
	if err != nil {
		return models.Record{}, fmt.Errorf(
			"failed to fetch updated %s record %s [%w]", record.Kind, record.ID, err,
		)
	}

	// Record this event
	if _, err := d.defineNewRecordEvent(models.RecordEventTypeUpdated, entry); err != nil {
		return models.Record{}, fmt.Errorf(
			"failed to log update record %s audit event [%w]", entry.ID, err,
		)
	}

	return entry.toModel()
}

/*
DeleteRecord delete a data record if its stored version still matches

	@param ctx context.Context - execution context
	@param kind string - entity kind
	@param recordID string - data record ID
	@param version int64 - the last read version
*/
func (d *databaseImpl) DeleteRecord(
	_ context.Context, kind string, recordID string, version int64,
) error {
	entry, err := d.getRecordEntry(kind, recordID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			// NOOP
			return nil
		}
		return fmt.Errorf("failed to fetch %s record %s [%w]", kind, recordID, err)
	}

	tmp := d.db.
		Where("id = ? AND kind = ? AND version = ?", recordID, kind, version).
		Delete(&RecordDBEntry{})
	if tmp.Error != nil {
		return fmt.Errorf("failed to delete %s record %s [%w]", kind, recordID, tmp.Error)
	}
	if tmp.RowsAffected == 0 {
		return fmt.Errorf(
			"%s record %s is no longer at version %d [%w]",
			kind, recordID, version, models.ErrOptimisticLockConflict,
		)
	}

	// Record this event
	if _, err := d.defineNewRecordEvent(models.RecordEventTypeDeleted, entry); err != nil {
		return fmt.Errorf("failed to log delete record %s audit event [%w]", recordID, err)
	}

	return nil
}
