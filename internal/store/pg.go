package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/logger"
	"github.com/feral-file/ff-history/internal/uow"
)

type gormStore struct {
	db       *gorm.DB
	registry *history.Registry
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewStore creates a store over db. Versioned models are looked up in registry.
func NewStore(db *gorm.DB, registry *history.Registry) Store {
	return &gormStore{db: db, registry: registry}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero settings fall back to the defaults of NormalizeConnectionPoolSettings.
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
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// Migrate auto-migrates the live models and creates every registered history table
func (s *gormStore) Migrate(ctx context.Context, models ...any) error {
	if len(models) > 0 {
		if err := s.db.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("failed to migrate models: %w", err)
		}
	}

	for _, ht := range s.registry.Types() {
		if err := history.CreateTable(ctx, s.db.Clauses(dbresolver.Write), ht.Table); err != nil {
			return err
		}
		logger.InfoCtx(ctx, "History table ready",
			zap.String("table", ht.Name()),
			zap.String("source", ht.Source.Table))
	}
	return nil
}

// NewSession opens a unit of work that records history
func (s *gormStore) NewSession(opts ...uow.Option) *uow.Session {
	sess := uow.New(s.db, opts...)
	s.registry.VersionSession(sess)
	return sess
}

// Ping checks the database connection
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// keyCondition maps the history key columns to the given key values
func (s *gormStore) keyCondition(model any, key []any) (*history.HistoryType, map[string]any, error) {
	ht, ok := s.registry.GetHistoryType(model)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", reflect.TypeOf(model), domain.ErrNotVersioned)
	}
	cols := ht.KeyColumns()
	if len(key) != len(cols) {
		return nil, nil, fmt.Errorf("%s is keyed by %v, got %d values", ht.Name(), cols, len(key))
	}
	cond := make(map[string]any, len(cols))
	for i, col := range cols {
		cond[col] = key[i]
	}
	return ht, cond, nil
}

// ListHistory returns the history of the row with the given key, oldest first
func (s *gormStore) ListHistory(ctx context.Context, model any, key ...any) ([]history.Record, error) {
	ht, cond, err := s.keyCondition(model, key)
	if err != nil {
		return nil, err
	}

	query := func(db *gorm.DB) ([]map[string]any, error) {
		var rows []map[string]any
		err := db.WithContext(ctx).
			Table(ht.Name()).
			Where(cond).
			Order(history.ColumnVersion).
			Find(&rows).Error
		return rows, err
	}

	rows, err := query(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ht.Name(), err)
	}
	if len(rows) == 0 && hasDBResolver(s.db) {
		// Replica can lag behind primary; retry on primary before returning an empty history.
		rows, err = query(s.db.Clauses(dbresolver.Write))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", ht.Name(), err)
		}
	}

	records := make([]history.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := ht.RecordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ht.Name(), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetHistoryVersion returns one recorded version of the row with the given key
func (s *gormStore) GetHistoryVersion(ctx context.Context, model any, version int64, key ...any) (*history.Record, error) {
	ht, cond, err := s.keyCondition(model, key)
	if err != nil {
		return nil, err
	}
	cond[history.ColumnVersion] = version

	query := func(db *gorm.DB) (map[string]any, error) {
		row := map[string]any{}
		err := db.WithContext(ctx).Table(ht.Name()).Where(cond).Take(&row).Error
		return row, err
	}

	row, err := query(s.db)
	if errors.Is(err, gorm.ErrRecordNotFound) && hasDBResolver(s.db) {
		// Replica can lag behind primary; retry on primary before returning not found.
		row, err = query(s.db.Clauses(dbresolver.Write))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s version %d: %w", ht.Name(), version, domain.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s version %d: %w", ht.Name(), version, err)
	}

	rec, err := ht.RecordFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ht.Name(), err)
	}
	return &rec, nil
}
