// Package demstore serves terrain elevations from a gridded DEM kept in SQLite.
package demstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/terrasketch/drawtool/pkg/core"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	// DefaultResolution is the grid cell size in degrees (about 90 m at the equator).
	DefaultResolution = 0.0008333

	// cell pairs per lookup query, kept well below the SQLite variable limit
	lookupBatchSize = 500
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrInvalidResolution is returned for a non-positive grid resolution.
	ErrInvalidResolution = errors.New("grid resolution must be positive")
	// ErrUnknownDriver is returned for a driver name other than sqlite or postgres.
	ErrUnknownDriver = errors.New("unknown DEM database driver")
)

// Cell is one elevation post of the grid.
type Cell struct {
	LonIdx int     `gorm:"primaryKey;autoIncrement:false"`
	LatIdx int     `gorm:"primaryKey;autoIncrement:false"`
	Height float64 `gorm:"not null"`
}

// TableName sets the table name for Cell.
func (Cell) TableName() string {
	return "elevation_cells"
}

// Store looks up elevations by snapping points to the nearest grid cell.
type Store struct {
	DB         *gorm.DB
	SqlDB      *sql.DB
	Resolution float64
	Logger     zerolog.Logger
}

// Dialector returns the GORM dialector for driver. For sqlite the dsn is a file
// path, empty meaning a private in-memory database; for postgres it is a
// libpq connection string.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Open opens or creates the SQLite DEM database at path and migrates its schema.
// An empty path opens a private in-memory database.
func Open(path string, resolution float64, log zerolog.Logger) (*Store, error) {
	return OpenDriver(DriverSQLite, path, resolution, log)
}

// OpenDriver opens the DEM database through the named driver and migrates its schema.
func OpenDriver(driver, dsn string, resolution float64, log zerolog.Logger) (*Store, error) {
	if resolution <= 0 || math.IsNaN(resolution) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResolution, resolution)
	}

	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	isSQLite := dialector.Name() == "sqlite"

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:            isSQLite,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening DEM database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}

	switch {
	case !isSQLite:
		log.Info().Str("driver", dialector.Name()).Msg("Using DEM database server")
	case dsn == "":
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
		log.Info().Msg("Using in-memory DEM database")
	default:
		log.Info().Str("path", dsn).Msg("Using DEM database")
	}

	if err := prepare(db, isSQLite); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{DB: db, SqlDB: sqlDB, Resolution: resolution, Logger: log}, nil
}

func prepare(db *gorm.DB, isSQLite bool) error {
	if isSQLite {
		pragmas := []string{
			"PRAGMA journal_mode = MEMORY;",
			"PRAGMA synchronous = OFF;",
			"PRAGMA cache_size = -32000;",
			"PRAGMA temp_store = MEMORY;",
		}
		for _, pragma := range pragmas {
			if err := db.Exec(pragma).Error; err != nil {
				return fmt.Errorf("error setting PRAGMA: %w", err)
			}
		}
	}

	if err := db.AutoMigrate(&Cell{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.SqlDB.Close()
}

// Index returns the grid cell containing the coordinate.
func (s *Store) Index(lon, lat float64) (lonIdx, latIdx int) {
	return int(math.Round(lon / s.Resolution)), int(math.Round(lat / s.Resolution))
}

// Put inserts or replaces the elevation of the cell containing each point.
func (s *Store) Put(ctx context.Context, points []core.GeoPoint) (int, error) {
	cells := make([]Cell, 0, len(points))
	for _, p := range points {
		lonIdx, latIdx := s.Index(p.Longitude, p.Latitude)
		cells = append(cells, Cell{LonIdx: lonIdx, LatIdx: latIdx, Height: p.Height})
	}
	return s.PutCells(ctx, cells)
}

// PutCells inserts or replaces cells in batches.
func (s *Store) PutCells(ctx context.Context, cells []Cell) (int, error) {
	if len(cells) == 0 {
		return 0, nil
	}

	cells = dedupe(cells)
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lon_idx"}, {Name: "lat_idx"}},
			DoUpdates: clause.AssignmentColumns([]string{"height"}),
		}).
		CreateInBatches(cells, 2000)
	if res.Error != nil {
		return 0, fmt.Errorf("writing elevation cells: %w", res.Error)
	}

	s.Logger.Debug().Int("cells", len(cells)).Msg("Wrote elevation cells")
	return len(cells), nil
}

// Count returns the number of stored cells.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Cell{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// SampleElevations implements the terrain service. Points without a stored cell
// are returned with Valid=false. The grid has a single resolution, so the level
// of detail is ignored.
func (s *Store) SampleElevations(ctx context.Context, points []core.GeoPoint, _ int) ([]core.TerrainSample, error) {
	type key struct{ lon, lat int }

	keys := make([]key, len(points))
	unique := make(map[key]struct{}, len(points))
	for i, p := range points {
		lonIdx, latIdx := s.Index(p.Longitude, p.Latitude)
		keys[i] = key{lonIdx, latIdx}
		unique[keys[i]] = struct{}{}
	}

	pairs := make([][]any, 0, len(unique))
	for k := range unique {
		pairs = append(pairs, []any{k.lon, k.lat})
	}

	heights := make(map[key]float64, len(unique))
	for start := 0; start < len(pairs); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(pairs))

		var cells []Cell
		err := s.DB.WithContext(ctx).
			Where("(lon_idx, lat_idx) IN ?", pairs[start:end]).
			Find(&cells).Error
		if err != nil {
			return nil, fmt.Errorf("looking up elevation cells: %w", err)
		}
		for _, c := range cells {
			heights[key{c.LonIdx, c.LatIdx}] = c.Height
		}
	}

	out := make([]core.TerrainSample, len(points))
	hits := 0
	for i, p := range points {
		h, ok := heights[keys[i]]
		if ok {
			hits++
		}
		out[i] = core.TerrainSample{Position: p.WithHeight(h), Valid: ok}
	}

	s.Logger.Debug().
		Int("points", len(points)).
		Int("hits", hits).
		Msg("Sampled DEM elevations")
	return out, nil
}

// dedupe keeps the last cell for each grid index; a single upsert statement may
// not touch the same row twice.
func dedupe(cells []Cell) []Cell {
	type key struct{ lon, lat int }
	pos := make(map[key]int, len(cells))
	out := make([]Cell, 0, len(cells))
	for _, c := range cells {
		k := key{c.LonIdx, c.LatIdx}
		if i, ok := pos[k]; ok {
			out[i] = c
			continue
		}
		pos[k] = len(out)
		out = append(out, c)
	}
	return out
}
