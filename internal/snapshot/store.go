// Package snapshot persists stage-boundary tables under fixed logical names in
// SQLite or MySQL and writes the run manifest.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// MemoryPath opens a process-local SQLite database.
const MemoryPath = ":memory:"

const insertBatchSize = 500

// Store reads and writes snapshots.
type Store struct {
	db     *gorm.DB
	driver string
	cache  *cache.Cache
	log    logger.Logger
}

type cached struct {
	table *table.Table
	info  Info
}

// Open connects to the configured database and migrates the snapshot tables.
func Open(ctx context.Context, cfg conf.StoreSettings, log logger.Logger) (*Store, error) {
	var (
		dialector gorm.Dialector
		target    string
	)
	switch cfg.Driver {
	case conf.DriverSQLite, "":
		path := cfg.SQLite.Path
		if path != MemoryPath {
			path = conf.ExpandPath(path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.New(err).
					Component("snapshot").
					Category(errors.CategoryFileIO).
					FileContext(path).
					Build()
			}
		}
		dialector = sqlite.Open(path)
		target = path
	case conf.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.MySQL.Username, cfg.MySQL.Password,
			cfg.MySQL.Host, cfg.MySQL.Port,
			cfg.MySQL.Database)
		dialector = mysql.Open(dsn)
		target = fmt.Sprintf("%s:%d/%s", cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Database)
	default:
		return nil, errors.Newf("unsupported store driver %q", cfg.Driver).
			Component("snapshot").
			Category(errors.CategoryConfiguration).
			Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, cfg.SlowQuery),
	})
	if err != nil {
		log.Error("failed to open snapshot database",
			logger.String("driver", cfg.Driver),
			logger.String("target", target),
			logger.Error(err))
		return nil, dbError(err, "open").Context("driver", cfg.Driver).Build()
	}

	if cfg.Driver != conf.DriverMySQL && cfg.SQLite.Path == MemoryPath {
		// every new connection would see an empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, dbError(err, "open").Build()
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: cfg.Driver, log: log}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}

	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	log.Debug("snapshot store ready",
		logger.String("driver", cfg.Driver),
		logger.String("target", target))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	start := time.Now()
	if err := s.db.WithContext(ctx).AutoMigrate(&Snapshot{}, &SnapshotRow{}); err != nil {
		return dbError(err, "migrate").Build()
	}
	s.log.Debug("snapshot schema migrated", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Save replaces the snapshot called name with t inside one transaction.
func (s *Store) Save(ctx context.Context, name, runID string, t *table.Table) (Info, error) {
	start := time.Now()

	checksum, err := t.Fingerprint()
	if err != nil {
		return Info{}, errors.New(err).
			Component("snapshot").
			Category(errors.CategoryIntegrityViolation).
			SnapshotContext(name, t.Len()).
			Build()
	}
	cols, err := json.Marshal(t.Columns())
	if err != nil {
		return Info{}, errors.New(err).
			Component("snapshot").
			Category(errors.CategoryIntegrityViolation).
			SnapshotContext(name, t.Len()).
			Build()
	}

	rows := make([]SnapshotRow, t.Len())
	keyed := t.HasColumn(schema.ColCustomerID)
	for i := range rows {
		payload, err := table.EncodeRow(t.Row(i))
		if err != nil {
			return Info{}, errors.New(err).
				Component("snapshot").
				Category(errors.CategoryIntegrityViolation).
				SnapshotContext(name, t.Len()).
				Context("position", i).
				Build()
		}
		rows[i] = SnapshotRow{Position: i, Payload: string(payload)}
		if keyed {
			if key := t.Get(i, schema.ColCustomerID); !key.IsNull() {
				rows[i].EntityID = key.Str()
			}
		}
	}

	header := Snapshot{
		Name:     name,
		RunID:    runID,
		Columns:  string(cols),
		RowCount: t.Len(),
		Checksum: checksum,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteByName(tx, name); err != nil {
			return err
		}
		if err := tx.Create(&header).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].SnapshotID = header.ID
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return Info{}, dbError(err, "save").SnapshotContext(name, t.Len()).Build()
	}

	if s.cache != nil {
		s.cache.Delete(name)
	}

	info := header.info(len(t.Columns()))
	s.log.Info("snapshot saved",
		logger.String("snapshot", name),
		logger.Int("rows", info.Rows),
		logger.String("checksum", info.Checksum),
		logger.Duration("elapsed", time.Since(start)))
	return info, nil
}

// Load reads the snapshot called name. The checksum is verified on every
// database read; cached tables are returned as copies.
func (s *Store) Load(ctx context.Context, name string) (*table.Table, Info, error) {
	if s.cache != nil {
		if hit, ok := s.cache.Get(name); ok {
			c := hit.(cached)
			s.log.Trace("snapshot cache hit", logger.String("snapshot", name))
			return c.table.Clone(), c.info, nil
		}
	}

	db := s.db.WithContext(ctx)

	var header Snapshot
	if err := db.Where("name = ?", name).First(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Info{}, errors.Newf("snapshot %q not found; run the stage that produces it first", name).
				Component("snapshot").
				Category(errors.CategoryNotFound).
				Context("snapshot", name).
				Build()
		}
		return nil, Info{}, dbError(err, "load").Context("snapshot", name).Build()
	}

	var cols []table.Column
	if err := json.Unmarshal([]byte(header.Columns), &cols); err != nil {
		return nil, Info{}, corrupt(name, err)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, Info{}, corrupt(name, err)
	}

	var rows []SnapshotRow
	if err := db.Where("snapshot_id = ?", header.ID).Order("position").Find(&rows).Error; err != nil {
		return nil, Info{}, dbError(err, "load").Context("snapshot", name).Build()
	}
	for _, r := range rows {
		values, err := table.DecodeRow(cols, []byte(r.Payload))
		if err != nil {
			return nil, Info{}, corrupt(name, fmt.Errorf("row %d: %w", r.Position, err))
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, Info{}, corrupt(name, fmt.Errorf("row %d: %w", r.Position, err))
		}
	}

	if t.Len() != header.RowCount {
		return nil, Info{}, corrupt(name, fmt.Errorf("read %d rows, header records %d", t.Len(), header.RowCount))
	}
	checksum, err := t.Fingerprint()
	if err != nil {
		return nil, Info{}, corrupt(name, err)
	}
	if checksum != header.Checksum {
		return nil, Info{}, corrupt(name, fmt.Errorf("checksum %s does not match stored %s", checksum, header.Checksum))
	}

	info := header.info(len(cols))
	if s.cache != nil {
		s.cache.SetDefault(name, cached{table: t.Clone(), info: info})
	}
	s.log.Debug("snapshot loaded",
		logger.String("snapshot", name),
		logger.Int("rows", info.Rows))
	return t, info, nil
}

// List returns every stored snapshot ordered by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	var headers []Snapshot
	if err := s.db.WithContext(ctx).Order("name").Find(&headers).Error; err != nil {
		return nil, dbError(err, "list").Build()
	}
	out := make([]Info, 0, len(headers))
	for _, h := range headers {
		var cols []table.Column
		if err := json.Unmarshal([]byte(h.Columns), &cols); err != nil {
			return nil, corrupt(h.Name, err)
		}
		out = append(out, h.info(len(cols)))
	}
	return out, nil
}

// Delete removes the snapshot called name. Deleting a missing snapshot is a no-op.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteByName(tx, name)
	})
	if err != nil {
		return dbError(err, "delete").Context("snapshot", name).Build()
	}
	if s.cache != nil {
		s.cache.Delete(name)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close").Build()
	}
	return nil
}

func deleteByName(tx *gorm.DB, name string) error {
	var existing Snapshot
	err := tx.Where("name = ?", name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	}
	if err := tx.Where("snapshot_id = ?", existing.ID).Delete(&SnapshotRow{}).Error; err != nil {
		return err
	}
	return tx.Delete(&existing).Error
}

func (h Snapshot) info(columns int) Info {
	return Info{
		Name:      h.Name,
		RunID:     h.RunID,
		Rows:      h.RowCount,
		Columns:   columns,
		Checksum:  h.Checksum,
		CreatedAt: h.CreatedAt,
	}
}

func dbError(err error, op string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("snapshot").
		Category(errors.CategoryDatabase).
		Context("operation", op)
}

func corrupt(name string, err error) error {
	return errors.New(err).
		Component("snapshot").
		Category(errors.CategoryIntegrityViolation).
		Context("snapshot", name).
		Context("reason", "corrupt snapshot").
		Build()
}
