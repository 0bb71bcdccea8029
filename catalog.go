// Package catalog - master-detail record editor for the catalog entities
package catalog

import (
	"context"
	"fmt"

	"github.com/alwitt/catalog/db"
	"github.com/alwitt/catalog/models"
	"github.com/alwitt/catalog/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
NewCatalogRepositories initialize one record repository per catalog entity kind.

All repositories share one SQL database; two processes using the same database see the
same records.

	@param ctx context.Context - execution context
	@param dbDialector gorm.Dialector - GORM dialector
	@param dbLogLevel logger.LogLevel - SQL log level
	@param defineTables bool - whether to create or migrate the tables first
	@returns the repositories keyed by entity kind
*/
func NewCatalogRepositories(
	ctx context.Context,
	dbDialector gorm.Dialector,
	dbLogLevel logger.LogLevel,
	defineTables bool,
) (map[string]store.Repository, error) {
	// Prepare persistence
	persistence, err := db.NewConnection(dbDialector, dbLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}

	if defineTables {
		if err := persistence.RunSQLInTransaction(ctx, db.DefineTables); err != nil {
			return nil, fmt.Errorf("failed to define tables [%w]", err)
		}
	}

	repositories := map[string]store.Repository{}
	for _, schema := range models.CatalogSchemas() {
		repo, err := store.NewRepository(ctx, persistence, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to initialized %s repository [%w]", schema.Kind, err)
		}
		repositories[schema.Kind] = repo
	}

	return repositories, nil
}
