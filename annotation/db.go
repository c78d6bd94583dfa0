package annotation

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/lewtec/apontador/internal/domain"
	"github.com/lewtec/apontador/internal/repository"
)

// Storage is the opened annotation medium
type Storage struct {
	Repository domain.AnnotationRepository
	// DB is nil for the csv driver
	DB *sql.DB
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// PrepareStorage opens the medium configured in storage.driver, creating what is missing
func PrepareStorage(ctx context.Context, config *Config) (*Storage, error) {
	switch config.Storage.Driver {
	case StorageCSV:
		dir := config.Resolve(config.Storage.Path)
		log.Printf("PrepareStorage: csv files in %s", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("while creating clicks folder '%s': %w", dir, err)
		}
		return &Storage{Repository: repository.NewCSVRepository(osfs.New(dir))}, nil
	case StorageSQLite:
		return openSQL(ctx, repository.DialectSQLite, config.Resolve(config.Storage.Path))
	case StoragePostgres:
		return openSQL(ctx, repository.DialectPostgres, config.Storage.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", config.Storage.Driver)
	}
}

func openSQL(ctx context.Context, dialect repository.Dialect, dsn string) (*Storage, error) {
	log.Printf("PrepareStorage: opening %s database", dialect)
	db, err := repository.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("while opening %s database: %w", dialect, err)
	}
	log.Printf("PrepareStorage: %s database ready", dialect)
	return &Storage{Repository: repository.NewSQLRepository(db, dialect), DB: db}, nil
}
