package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// DriverSQLite selects the embedded SQLite file store
	DriverSQLite = "sqlite"
	// DriverPostgres selects a PostgreSQL server
	DriverPostgres = "postgres"
)

// Open connects to the database with the given driver and DSN.
// Error translation is enabled so constraint violations surface as gorm.ErrDuplicatedKey.
// A SQLite handle is limited to one connection: the datastore has a single writer
// and the pool serializes event and checkpoint transactions.
func Open(driver, dsn string, log gormlogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	if log == nil {
		log = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite || driver == "" {
		if err := ConfigureConnectionPool(db, 1, 1, 0, 0); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// ConnectOptions describes how to reach and size the datastore connection
type ConnectOptions struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Logger          gormlogger.Interface
}

// Connect opens the database, sizes the PostgreSQL pool and initializes the schema.
// A schema failure closes the connection and is returned as domain.ErrSchema.
func Connect(ctx context.Context, opts ConnectOptions) (*gorm.DB, error) {
	db, err := Open(opts.Driver, opts.DSN, opts.Logger)
	if err != nil {
		return nil, err
	}

	if opts.Driver == DriverPostgres {
		if err := ConfigureConnectionPool(db, opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime, opts.ConnMaxIdleTime); err != nil {
			closeDB(db)
			return nil, err
		}
	}

	if err := Initialize(ctx, db); err != nil {
		closeDB(db)
		return nil, err
	}

	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	_ = Close(db)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0, defaults are used (see NormalizeConnectionPoolSettings).
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 1 hour
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 10
	}
	if maxIdleConns == 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = time.Hour
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the batch size for bulk inserts that stays under
// the bound-parameter limit of every supported driver.
//
// SQLite (3.32+) allows 32766 host parameters per statement; PostgreSQL allows 65535.
// The smaller limit is used so the same batches work on both.
//
// Example with headroom of 1000:
//   - NFTEvent rows: 9 fields → (32,766 - 1,000) / 9 = 3,529 records/batch
//   - NFT rows: 3 fields → (32,766 - 1,000) / 3 = 10,588 records/batch
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 32766
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return max(totalRecords, 1)
	}

	return safeBatchSize
}
