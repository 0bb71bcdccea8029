package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/catalog/db"
	"github.com/alwitt/catalog/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// newTestConnection create a unique temporary DB for one test with tables defined
func newTestConnection(t *testing.T) db.Client {
	testDB := fmt.Sprintf("/tmp/catalog_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(t, err)

	assert.Nil(t, uut.RunSQLInTransaction(context.Background(), db.DefineTables))
	return uut
}

// TestDBCreateDataRecord verifies the behavior of `Database.DefineNewRecord`,
// `Database.GetRecord`, and `Database.DeleteRecord`.
func TestDBCreateDataRecord(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestConnection(t)

	// -------------------------------------------------------------------------
	// 1 – Define a new category record
	var rec1 models.Record
	err := uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		rec1, err = dbClient.DefineNewRecord(
			ctx, "category", map[string]string{"name": "Widgets", "slug": "widgets"}, []byte{1, 2, 3},
		)
		return err
	})
	assert.Nil(err)
	assert.NotEmpty(rec1.ID)
	assert.Equal(int64(1), rec1.Version)

	// 2 – Get back the record and verify its content
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		r, err := dbClient.GetRecord(ctx, "category", rec1.ID)
		if err != nil {
			return err
		}
		assert.Equal("Widgets", r.Fields["name"])
		assert.Equal("widgets", r.Fields["slug"])
		assert.Equal([]byte{1, 2, 3}, r.Attachment)
		assert.Equal(int64(1), r.Version)
		return nil
	})
	assert.Nil(err)

	// 3 – The record is not visible under another kind
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetRecord(ctx, "product", rec1.ID)
		return err
	})
	assert.ErrorIs(err, models.ErrRecordNotFound)

	// -------------------------------------------------------------------------
	// 4 – Delete with a stale version (should fail)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.DeleteRecord(ctx, "category", rec1.ID, 7)
	})
	assert.ErrorIs(err, models.ErrOptimisticLockConflict)

	// 5 – Delete with the current version
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.DeleteRecord(ctx, "category", rec1.ID, rec1.Version)
	})
	assert.Nil(err)

	// 6 – Get back the record (should fail)
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetRecord(ctx, "category", rec1.ID)
		return err
	})
	assert.ErrorIs(err, models.ErrRecordNotFound)

	// 7 – Deleting again is a no-op
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.DeleteRecord(ctx, "category", rec1.ID, rec1.Version)
	})
	assert.Nil(err)

	// -------------------------------------------------------------------------
	// 8 – List record audit events
	var events []models.RecordEventAudit
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err = dbClient.ListRecordEvents(ctx, db.RecordEventQueryFilter{TargetRecordID: &rec1.ID})
		return err
	})
	assert.Nil(err)
	assert.Len(events, 2)

	// Same record, other entity kind
	for kind, expected := range map[string]int{"category": 2, "product": 0} {
		err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
			byKind, err := dbClient.ListRecordEvents(ctx, db.RecordEventQueryFilter{
				TargetRecordID: &rec1.ID, TargetKind: &kind,
			})
			assert.Len(byKind, expected)
			return err
		})
		assert.Nil(err)
	}

	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))

	assert.Equal(models.RecordEventTypeCreated, events[0].EventType)
	assert.Equal(models.RecordEventTypeDeleted, events[1].EventType)
	for _, e := range events {
		meta, err := e.ParseMetadata(validate)
		assert.Nil(err)
		parsed, ok := meta.(models.RecordEventMetadata)
		assert.True(ok)
		assert.Equal(rec1.ID, parsed.RecordID)
		assert.Equal("category", parsed.Kind)
		assert.Equal(int64(1), parsed.Version)
	}
}

// TestDBUpdateDataRecord verifies the optimistic version check of `Database.UpdateRecord`.
func TestDBUpdateDataRecord(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestConnection(t)

	var original models.Record
	err := uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		original, err = dbClient.DefineNewRecord(ctx, "product", map[string]string{"name": "Bolt"}, nil)
		return err
	})
	assert.Nil(err)

	// Case 0: update at the current version
	var updated models.Record
	{
		edit := original.Clone()
		edit.Fields["name"] = "Hex Bolt"
		edit.Attachment = []byte("png")
		err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
			var err error
			updated, err = dbClient.UpdateRecord(ctx, edit)
			return err
		})
		assert.Nil(err)
		assert.Equal(int64(2), updated.Version)
		assert.Equal("Hex Bolt", updated.Fields["name"])
		assert.Equal([]byte("png"), updated.Attachment)
		assert.Equal(original.ID, updated.ID)
	}

	// Case 1: update with the stale version
	{
		stale := original.Clone()
		stale.Fields["name"] = "Carriage Bolt"
		err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.UpdateRecord(ctx, stale)
			return err
		})
		assert.ErrorIs(err, models.ErrOptimisticLockConflict)

		// Stored record is unchanged
		err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
			r, err := dbClient.GetRecord(ctx, "product", original.ID)
			if err != nil {
				return err
			}
			assert.Equal("Hex Bolt", r.Fields["name"])
			assert.Equal(int64(2), r.Version)
			return nil
		})
		assert.Nil(err)
	}

	// Case 2: update a record deleted by someone else
	{
		err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
			return dbClient.DeleteRecord(ctx, "product", updated.ID, updated.Version)
		})
		assert.Nil(err)

		err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.UpdateRecord(ctx, updated)
			return err
		})
		assert.ErrorIs(err, models.ErrOptimisticLockConflict)
	}

	// Audit trail: created, updated, deleted
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err := dbClient.ListRecordEvents(ctx, db.RecordEventQueryFilter{
			TargetRecordID: &original.ID,
			EventTypes:     []models.RecordEventTypeENUMType{models.RecordEventTypeUpdated},
		})
		if err != nil {
			return err
		}
		assert.Len(events, 1)
		return nil
	})
	assert.Nil(err)
}

// TestDBListDataRecords verifies paging, sorting and filtering of `Database.ListRecords`.
func TestDBListDataRecords(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestConnection(t)

	inputs := []map[string]string{
		{"name": "Gamma", "total": "9"},
		{"name": "alpha", "total": "10"},
		{"name": "Beta", "total": "100"},
		{"name": "Alphabet", "total": ""},
	}
	ids := []string{}
	err := uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		for _, fields := range inputs {
			r, err := dbClient.DefineNewRecord(ctx, "category", fields, nil)
			if err != nil {
				return err
			}
			ids = append(ids, r.ID)
		}
		// Record of a different kind
		_, err := dbClient.DefineNewRecord(ctx, "product", map[string]string{"name": "alpha"}, nil)
		return err
	})
	assert.Nil(err)

	names := func(records []models.Record) []string {
		result := []string{}
		for _, r := range records {
			result = append(result, r.Fields["name"])
		}
		return result
	}

	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// Case 0: natural order
		records, err := dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{})
		assert.Nil(err)
		assert.Equal([]string{"Gamma", "alpha", "Beta", "Alphabet"}, names(records))
		assert.Equal(ids[0], records[0].ID)

		// Case 1: paging
		limit := 2
		offset := 2
		records, err = dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{
			CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit, Offset: &offset},
		})
		assert.Nil(err)
		assert.Equal([]string{"Beta", "Alphabet"}, names(records))

		// Case 2: numeric sort descending
		records, err = dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{
			Sort: []db.RecordSortKey{{Field: "total", Numeric: true, Descending: true}},
		})
		assert.Nil(err)
		assert.Equal([]string{"Beta", "alpha", "Gamma", "Alphabet"}, names(records))

		// Case 3: case-insensitive contains filter
		records, err = dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{
			Match: &db.RecordFieldMatch{Field: "name", Contains: "ALPHA"},
		})
		assert.Nil(err)
		assert.Equal([]string{"alpha", "Alphabet"}, names(records))

		count, err := dbClient.CountRecords(ctx, "category", &db.RecordFieldMatch{Field: "name", Contains: "alpha"})
		assert.Nil(err)
		assert.Equal(int64(2), count)

		count, err = dbClient.CountRecords(ctx, "category", nil)
		assert.Nil(err)
		assert.Equal(int64(4), count)

		// Case 4: LIKE wildcards are matched literally
		records, err = dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{
			Match: &db.RecordFieldMatch{Field: "name", Contains: "%"},
		})
		assert.Nil(err)
		assert.Empty(records)

		// Case 5: invalid field names are rejected
		_, err = dbClient.ListRecords(ctx, "category", db.RecordQueryFilter{
			Sort: []db.RecordSortKey{{Field: "name'); DROP TABLE records; --"}},
		})
		assert.Error(err)

		return nil
	})
	assert.Nil(err)
}
