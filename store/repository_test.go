package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/catalog/db"
	mockdb "github.com/alwitt/catalog/mocks/db"
	"github.com/alwitt/catalog/models"
	"github.com/alwitt/catalog/store"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm/logger"
)

// installMockDatabase route both DB client entry points to the mock database
func installMockDatabase(mockDBClient *mockdb.Client, mockDatabase *mockdb.Database) {
	for _, method := range []string{"UseDatabase", "UseDatabaseInTransaction"} {
		mockDBClient.On(
			method,
			mock.AnythingOfType("context.backgroundCtx"),
			mock.Anything,
		).Return(func(ctx context.Context, coreLogic func(context.Context, db.Database) error) error {
			return coreLogic(ctx, mockDatabase)
		}).Maybe()
	}
}

func TestRepositoryInit(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	mockDBClient := mockdb.NewClient(t)

	for _, schema := range models.CatalogSchemas() {
		uut, err := store.NewRepository(utCtx, mockDBClient, schema)
		assert.Nil(err)
		assert.Equal(schema.Kind, uut.Schema().Kind)
	}

	// Case 0: schema without fields
	_, err := store.NewRepository(utCtx, mockDBClient, models.EntitySchema{
		Kind: "empty", Title: "Empty",
	})
	assert.NotNil(err)

	// Case 1: duplicate field names
	_, err = store.NewRepository(utCtx, mockDBClient, models.EntitySchema{
		Kind:  "dup",
		Title: "Dup",
		Fields: []models.FieldSchema{
			{Name: "name", Label: "Name", Type: models.FieldTypeText},
			{Name: "name", Label: "Name Again", Type: models.FieldTypeText},
		},
	})
	assert.NotNil(err)

	// Case 2: unknown field type
	_, err = store.NewRepository(utCtx, mockDBClient, models.EntitySchema{
		Kind:   "odd",
		Title:  "Odd",
		Fields: []models.FieldSchema{{Name: "name", Label: "Name", Type: "BLOB"}},
	})
	assert.NotNil(err)
}

func TestRepositorySave(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	mockDBClient := mockdb.NewClient(t)
	mockDatabase := mockdb.NewDatabase(t)
	installMockDatabase(mockDBClient, mockDatabase)

	uut, err := store.NewRepository(utCtx, mockDBClient, models.CategorySchema)
	assert.Nil(err)

	// Case 0: new record is inserted
	newRecord := models.NewRecord("category")
	newRecord.Fields["name"] = "Widgets"
	newRecord.Attachment = []byte("png")
	persisted := newRecord.Clone()
	persisted.ID = ulid.Make().String()
	persisted.Version = 1
	mockDatabase.On(
		"DefineNewRecord",
		mock.AnythingOfType("context.backgroundCtx"),
		"category",
		newRecord.Fields,
		newRecord.Attachment,
	).Return(persisted, nil).Once()
	saved, err := uut.Save(utCtx, newRecord)
	assert.Nil(err)
	assert.Equal(persisted, saved)

	// Case 1: existing record is updated
	edited := persisted.Clone()
	edited.Fields["name"] = "Gadgets"
	afterUpdate := edited.Clone()
	afterUpdate.Version = 2
	mockDatabase.On(
		"UpdateRecord",
		mock.AnythingOfType("context.backgroundCtx"),
		edited,
	).Return(afterUpdate, nil).Once()
	saved, err = uut.Save(utCtx, edited)
	assert.Nil(err)
	assert.Equal(int64(2), saved.Version)

	// Case 2: version conflict is reported as such
	mockDatabase.On(
		"UpdateRecord",
		mock.AnythingOfType("context.backgroundCtx"),
		edited,
	).Return(models.Record{}, fmt.Errorf("stale [%w]", models.ErrOptimisticLockConflict)).Once()
	_, err = uut.Save(utCtx, edited)
	assert.ErrorIs(err, models.ErrOptimisticLockConflict)

	// Case 3: field outside the schema is rejected before reaching the DB
	{
		bad := models.NewRecord("category")
		bad.Fields["color"] = "red"
		_, err = uut.Save(utCtx, bad)
		assert.NotNil(err)
	}

	// Case 4: record of another kind is rejected
	{
		bad := models.NewRecord("product")
		bad.Fields["name"] = "Bolt"
		_, err = uut.Save(utCtx, bad)
		assert.NotNil(err)
	}

	// Case 5: oversized attachment is rejected
	{
		bad := models.NewRecord("category")
		bad.Attachment = make([]byte, models.MaxAttachmentBytes+1)
		_, err = uut.Save(utCtx, bad)
		assert.NotNil(err)
	}
}

func TestRepositoryList(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	mockDBClient := mockdb.NewClient(t)
	mockDatabase := mockdb.NewDatabase(t)
	installMockDatabase(mockDBClient, mockDatabase)

	schema := models.EntitySchema{
		Kind:  "gizmo",
		Title: "Gizmo",
		Fields: []models.FieldSchema{
			{Name: "name", Label: "Name", Type: models.FieldTypeText, Sortable: true},
			{Name: "weight", Label: "Weight", Type: models.FieldTypeDecimal, Sortable: true},
			{Name: "notes", Label: "Notes", Type: models.FieldTypeText},
		},
	}
	uut, err := store.NewRepository(utCtx, mockDBClient, schema)
	assert.Nil(err)

	// Case 0: page translation
	{
		limit := 10
		offset := 20
		expected := db.RecordQueryFilter{
			CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit, Offset: &offset},
			Sort: []db.RecordSortKey{
				{Field: "weight", Numeric: true, Descending: true},
				{Field: "name"},
			},
			Match: &db.RecordFieldMatch{Field: "notes", Contains: "blue"},
		}
		result := []models.Record{{ID: ulid.Make().String(), Kind: "gizmo"}}
		mockDatabase.On(
			"ListRecords",
			mock.AnythingOfType("context.backgroundCtx"),
			"gizmo",
			expected,
		).Return(result, nil).Once()
		records, err := uut.List(utCtx, models.PageRequest{
			PageIndex: 2,
			PageSize:  10,
			Sort: []models.SortOrder{
				{Field: "weight", Direction: models.SortDescending},
				{Field: "name", Direction: models.SortAscending},
			},
			Filter: &models.RecordFilter{Field: "notes", Contains: "blue"},
		})
		assert.Nil(err)
		assert.Equal(result, records)
	}

	// Case 1: sorting by a non-sortable field
	{
		_, err := uut.List(utCtx, models.PageRequest{
			PageSize: 10,
			Sort:     []models.SortOrder{{Field: "notes", Direction: models.SortAscending}},
		})
		assert.NotNil(err)
	}

	// Case 2: filtering by an unknown field
	{
		_, err := uut.List(utCtx, models.PageRequest{
			PageSize: 10,
			Filter:   &models.RecordFilter{Field: "color", Contains: "red"},
		})
		assert.NotNil(err)
	}

	// Case 3: invalid page size
	{
		_, err := uut.List(utCtx, models.PageRequest{PageSize: 0})
		assert.NotNil(err)
	}

	// Case 4: count
	{
		mockDatabase.On(
			"CountRecords",
			mock.AnythingOfType("context.backgroundCtx"),
			"gizmo",
			(*db.RecordFieldMatch)(nil),
		).Return(int64(42), nil).Once()
		count, err := uut.Count(utCtx)
		assert.Nil(err)
		assert.Equal(int64(42), count)
	}
}

func TestRepositoryDelete(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	mockDBClient := mockdb.NewClient(t)
	mockDatabase := mockdb.NewDatabase(t)
	installMockDatabase(mockDBClient, mockDatabase)

	uut, err := store.NewRepository(utCtx, mockDBClient, models.ProductSchema)
	assert.Nil(err)

	testID := ulid.Make().String()

	mockDatabase.On(
		"DeleteRecord",
		mock.AnythingOfType("context.backgroundCtx"),
		"product",
		testID,
		int64(3),
	).Return(nil).Once()
	assert.Nil(uut.Delete(utCtx, testID, 3))

	mockDatabase.On(
		"DeleteRecord",
		mock.AnythingOfType("context.backgroundCtx"),
		"product",
		testID,
		int64(2),
	).Return(fmt.Errorf("stale [%w]", models.ErrOptimisticLockConflict)).Once()
	assert.ErrorIs(uut.Delete(utCtx, testID, 2), models.ErrOptimisticLockConflict)
}

// TestRepositoryWithSqlite exercises the repository against a real sqlite database
func TestRepositoryWithSqlite(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/catalog_store_ut_%s.db", ulid.Make().String())
	dbClient, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(dbClient.RunSQLInTransaction(utCtx, db.DefineTables))

	uut, err := store.NewRepository(utCtx, dbClient, models.ProductSchema)
	assert.Nil(err)

	// Create
	bolt := models.NewRecord("product")
	bolt.Fields["name"] = "Bolt"
	bolt.Fields["price"] = "0.25"
	bolt, err = uut.Save(utCtx, bolt)
	assert.Nil(err)
	assert.Equal(int64(1), bolt.Version)

	nut := models.NewRecord("product")
	nut.Fields["name"] = "Nut"
	nut.Fields["price"] = "0.1"
	nut, err = uut.Save(utCtx, nut)
	assert.Nil(err)

	// Two concurrent edits of the same record: the second one loses
	first := bolt.Clone()
	first.Fields["price"] = "0.30"
	second := bolt.Clone()
	second.Fields["price"] = "0.35"
	first, err = uut.Save(utCtx, first)
	assert.Nil(err)
	assert.Equal(int64(2), first.Version)
	_, err = uut.Save(utCtx, second)
	assert.ErrorIs(err, models.ErrOptimisticLockConflict)

	fetched, err := uut.Get(utCtx, bolt.ID)
	assert.Nil(err)
	assert.Equal("0.30", fetched.Fields["price"])

	// Sorted by price
	records, err := uut.List(utCtx, models.PageRequest{
		PageSize: 10,
		Sort:     []models.SortOrder{{Field: "price", Direction: models.SortAscending}},
	})
	assert.Nil(err)
	assert.Len(records, 2)
	assert.Equal(nut.ID, records[0].ID)
	assert.Equal(bolt.ID, records[1].ID)

	count, err := uut.CountMatching(utCtx, &models.RecordFilter{Field: "name", Contains: "BO"})
	assert.Nil(err)
	assert.Equal(int64(1), count)

	// Delete
	assert.Nil(uut.Delete(utCtx, bolt.ID, first.Version))
	_, err = uut.Get(utCtx, bolt.ID)
	assert.ErrorIs(err, models.ErrRecordNotFound)

	history, err := uut.History(utCtx, bolt.ID)
	assert.Nil(err)
	assert.Len(history, 3)
	assert.Equal(models.RecordEventTypeCreated, history[0].EventType)
	assert.Equal(models.RecordEventTypeUpdated, history[1].EventType)
	assert.Equal(models.RecordEventTypeDeleted, history[2].EventType)

	// Another entity kind does not see the product journal
	categories, err := store.NewRepository(utCtx, dbClient, models.CategorySchema)
	assert.Nil(err)
	history, err = categories.History(utCtx, bolt.ID)
	assert.Nil(err)
	assert.Empty(history)
}
