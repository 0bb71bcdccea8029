// Package store - record repositories over the persistence layer
package store

import (
	"context"
	"fmt"

	"github.com/alwitt/catalog/db"
	"github.com/alwitt/catalog/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// Repository record repository of one entity kind
type Repository interface {
	/*
		Schema the entity schema served by this repository

			@returns the schema
	*/
	Schema() models.EntitySchema

	/*
		Get fetch one record

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@returns the record, or an error wrapping models.ErrRecordNotFound
	*/
	Get(ctx context.Context, recordID string) (models.Record, error)

	/*
		List fetch one window of records

			@param ctx context.Context - execution context
			@param request models.PageRequest - the window to fetch
			@returns the records in the window
	*/
	List(ctx context.Context, request models.PageRequest) ([]models.Record, error)

	/*
		Count count all records

			@param ctx context.Context - execution context
			@returns the number of records
	*/
	Count(ctx context.Context) (int64, error)

	/*
		CountMatching count records matching a filter

			@param ctx context.Context - execution context
			@param filter *models.RecordFilter - optional filter
			@returns the number of matching records
	*/
	CountMatching(ctx context.Context, filter *models.RecordFilter) (int64, error)

	/*
		Save persist a record

		A new record is inserted at version 1. An existing record is updated only if its
		version still matches the stored version, and the version is incremented.

			@param ctx context.Context - execution context
			@param record models.Record - the record to persist
			@returns the persisted record, or an error wrapping models.ErrOptimisticLockConflict
	*/
	Save(ctx context.Context, record models.Record) (models.Record, error)

	/*
		Delete delete a record

		Deleting a record which does not exist is a no-op.

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@param version int64 - the last read record version
	*/
	Delete(ctx context.Context, recordID string, version int64) error

	/*
		History list the audit events of one record

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@returns the events, oldest first
	*/
	History(ctx context.Context, recordID string) ([]models.RecordEventAudit, error)
}

// repositoryImpl implements Repository
type repositoryImpl struct {
	goutils.Component

	persistence db.Client
	schema      models.EntitySchema
	validator   *validator.Validate
}

/*
NewRepository define new record repository

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence layer client
	@param schema models.EntitySchema - the entity schema
	@returns repository instance
*/
func NewRepository(
	_ context.Context, persistence db.Client, schema models.EntitySchema,
) (Repository, error) {
	logTags := log.Fields{"module": "store", "component": "repository", "kind": schema.Kind}

	instance := &repositoryImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: persistence,
		schema:      schema,
		validator:   validator.New(),
	}
	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	if err := instance.validator.Struct(&schema); err != nil {
		return nil, fmt.Errorf("invalid '%s' entity schema [%w]", schema.Kind, err)
	}

	return instance, nil
}

// Schema the entity schema served by this repository
func (r *repositoryImpl) Schema() models.EntitySchema {
	return r.schema
}

/*
Get fetch one record

	@param ctx context.Context - execution context
	@param recordID string - record ID
	@returns the record, or an error wrapping models.ErrRecordNotFound
*/
func (r *repositoryImpl) Get(ctx context.Context, recordID string) (models.Record, error) {
	var record models.Record
	if dbErr := r.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			record, err = dbClient.GetRecord(dbCtx, r.schema.Kind, recordID)
			return err
		},
	); dbErr != nil {
		return models.Record{}, fmt.Errorf("failed to get %s %s [%w]", r.schema.Kind, recordID, dbErr)
	}
	return record, nil
}

// toFieldMatch translate a list filter into a persistence layer predicate
func (r *repositoryImpl) toFieldMatch(filter *models.RecordFilter) (*db.RecordFieldMatch, error) {
	if filter == nil {
		return nil, nil
	}
	if _, ok := r.schema.Field(filter.Field); !ok {
		return nil, fmt.Errorf("%s has no field '%s' to filter on", r.schema.Kind, filter.Field)
	}
	return &db.RecordFieldMatch{Field: filter.Field, Contains: filter.Contains}, nil
}

/*
List fetch one window of records

	@param ctx context.Context - execution context
	@param request models.PageRequest - the window to fetch
	@returns the records in the window
*/
func (r *repositoryImpl) List(
	ctx context.Context, request models.PageRequest,
) ([]models.Record, error) {
	if err := r.validator.Struct(&request); err != nil {
		return nil, fmt.Errorf("invalid %s page request [%w]", r.schema.Kind, err)
	}

	filters := db.RecordQueryFilter{}
	limit := request.PageSize
	offset := request.Offset()
	filters.Limit = &limit
	filters.Offset = &offset

	for _, order := range request.Sort {
		field, ok := r.schema.Field(order.Field)
		if !ok || !field.Sortable {
			return nil, fmt.Errorf("%s can not be sorted by '%s'", r.schema.Kind, order.Field)
		}
		filters.Sort = append(filters.Sort, db.RecordSortKey{
			Field:      field.Name,
			Numeric:    field.Type.Numeric(),
			Descending: order.Direction == models.SortDescending,
		})
	}

	match, err := r.toFieldMatch(request.Filter)
	if err != nil {
		return nil, err
	}
	filters.Match = match

	var records []models.Record
	if dbErr := r.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			records, err = dbClient.ListRecords(dbCtx, r.schema.Kind, filters)
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to list %s page %d [%w]", r.schema.Kind, request.PageIndex, dbErr)
	}

	return records, nil
}

/*
Count count all records

	@param ctx context.Context - execution context
	@returns the number of records
*/
func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	return r.CountMatching(ctx, nil)
}

/*
CountMatching count records matching a filter

	@param ctx context.Context - execution context
	@param filter *models.RecordFilter - optional filter
	@returns the number of matching records
*/
func (r *repositoryImpl) CountMatching(
	ctx context.Context, filter *models.RecordFilter,
) (int64, error) {
	match, err := r.toFieldMatch(filter)
	if err != nil {
		return 0, err
	}

	var count int64
	if dbErr := r.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			count, err = dbClient.CountRecords(dbCtx, r.schema.Kind, match)
			return err
		},
	); dbErr != nil {
		return 0, fmt.Errorf("failed to count %s records [%w]", r.schema.Kind, dbErr)
	}
	return count, nil
}

// checkRecord verify a record conforms to the schema before writing it
func (r *repositoryImpl) checkRecord(record models.Record) error {
	if record.Kind != r.schema.Kind {
		return fmt.Errorf("record of kind '%s' given to %s repository", record.Kind, r.schema.Kind)
	}
	for name := range record.Fields {
		if _, ok := r.schema.Field(name); !ok {
			return fmt.Errorf("%s has no field '%s'", r.schema.Kind, name)
		}
	}
	if len(record.Attachment) > r.schema.AttachmentLimit() {
		return fmt.Errorf(
			"%s attachment of %d bytes exceeds limit of %d",
			r.schema.Kind, len(record.Attachment), r.schema.AttachmentLimit(),
		)
	}
	return r.validator.Struct(&record)
}

/*
Save persist a record

	@param ctx context.Context - execution context
	@param record models.Record - the record to persist
	@returns the persisted record, or an error wrapping models.ErrOptimisticLockConflict
*/
func (r *repositoryImpl) Save(ctx context.Context, record models.Record) (models.Record, error) {
	logTags := r.GetLogTagsForContext(ctx)

	if err := r.checkRecord(record); err != nil {
		return models.Record{}, fmt.Errorf("invalid %s record [%w]", r.schema.Kind, err)
	}

	var saved models.Record
	if dbErr := r.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			if record.IsNew() {
				saved, err = dbClient.DefineNewRecord(
					dbCtx, r.schema.Kind, record.Fields, record.Attachment,
				)
			} else {
				saved, err = dbClient.UpdateRecord(dbCtx, record)
			}
			return err
		},
	); dbErr != nil {
		return models.Record{}, fmt.Errorf("failed to save %s record [%w]", r.schema.Kind, dbErr)
	}

	log.WithFields(logTags).
		WithField("record", saved.ID).
		WithField("version", saved.Version).
		Debug("Saved record")

	return saved, nil
}

/*
Delete delete a record

	@param ctx context.Context - execution context
	@param recordID string - record ID
	@param version int64 - the last read record version
*/
func (r *repositoryImpl) Delete(ctx context.Context, recordID string, version int64) error {
	logTags := r.GetLogTagsForContext(ctx)

	if dbErr := r.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			return dbClient.DeleteRecord(dbCtx, r.schema.Kind, recordID, version)
		},
	); dbErr != nil {
		return fmt.Errorf("failed to delete %s %s [%w]", r.schema.Kind, recordID, dbErr)
	}

	log.WithFields(logTags).WithField("record", recordID).Debug("Deleted record")

	return nil
}

/*
History list the audit events of one record of the repository entity kind

	@param ctx context.Context - execution context
	@param recordID string - record ID
	@returns the events, oldest first
*/
func (r *repositoryImpl) History(
	ctx context.Context, recordID string,
) ([]models.RecordEventAudit, error) {
	var events []models.RecordEventAudit
	if dbErr := r.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			events, err = dbClient.ListRecordEvents(
				dbCtx, db.RecordEventQueryFilter{
					TargetRecordID: &recordID, TargetKind: &r.schema.Kind,
				},
			)
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to list %s %s history [%w]", r.schema.Kind, recordID, dbErr)
	}
	return events, nil
}
