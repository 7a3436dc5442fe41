// Command surveyimport loads catalog locations from a survey CSV into the
// configured store. Re-runs are idempotent: rows whose name already exists
// are skipped.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/config"
	dbRedis "github.com/casainvest/renoplan/internal/db/redis"
	"github.com/casainvest/renoplan/internal/domain"
	"github.com/casainvest/renoplan/internal/domain/geo"
	"github.com/casainvest/renoplan/internal/domain/location"
	logpkg "github.com/casainvest/renoplan/internal/logger"
	locationrepo "github.com/casainvest/renoplan/internal/repository/location"
	"github.com/casainvest/renoplan/internal/repository/locationpg"
)

// catalogWriter is the slice of the repository contract the importer needs.
type catalogWriter interface {
	Create(ctx context.Context, loc location.Location) error
}

func main() {
	filePath := flag.String("file", "", "path to catalog CSV (name,lat,lon,active,payload)")
	driver := flag.String("driver", "", "storage driver override (redis|postgres)")
	dryRun := flag.Bool("dry-run", false, "validate rows without writing to the store")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "surveyimport: -file is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting catalog import",
		zap.String("file", *filePath),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("dry_run", *dryRun),
	)

	ctx := context.Background()

	var (
		writer     catalogWriter
		closeStore func()
	)
	if *dryRun {
		logger.Info("Dry run: rows are validated only, store is untouched")
	} else {
		switch cfg.Storage.Driver {
		case "redis":
			store, err := dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Storage.Addrs,
				Username: cfg.Storage.Username,
				Password: cfg.Storage.Password,
				DB:       cfg.Storage.DB,
			})
			if err != nil {
				logger.Fatal("Failed to create redis store", zap.Error(err))
			}
			if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
				logger.Fatal("Storage not ready", zap.Error(err))
			}
			writer = locationrepo.New(store, cfg.Storage.KeyPrefix)
			closeStore = store.Close
		case "postgres":
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				logger.Fatal("Failed to create postgres pool", zap.Error(err))
			}
			repo := locationpg.New(pool)
			if err := repo.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
				logger.Fatal("Storage not ready", zap.Error(err))
			}
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Fatal("Failed to ensure schema", zap.Error(err))
			}
			writer = repo
			closeStore = repo.Close
		default:
			logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
		}
	}

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("Failed to open CSV file", zap.Error(err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5

	var imported, skipped, failed, row int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			logger.Warn("Skipping malformed row", zap.Int("row", row), zap.Error(err))
			failed++
			continue
		}
		// Optional header line
		if row == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}

		loc, err := parseRow(rec)
		if err != nil {
			logger.Warn("Skipping invalid row", zap.Int("row", row), zap.Error(err))
			failed++
			continue
		}

		if *dryRun {
			imported++
			continue
		}

		switch err := writer.Create(ctx, loc); {
		case err == nil:
			imported++
		case errors.Is(err, domain.ErrLocationExists):
			logger.Info("Location already in catalog, skipping",
				zap.Int("row", row), zap.String("name", loc.Name()))
			skipped++
		default:
			logger.Warn("Failed to store location",
				zap.Int("row", row), zap.String("name", loc.Name()), zap.Error(err))
			failed++
		}
	}

	if closeStore != nil {
		closeStore()
	}

	logger.Info("Import complete",
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Bool("dry_run", *dryRun),
	)

	if failed > 0 {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// parseRow converts one CSV record (name,lat,lon,active,payload) into a
// validated Location. Empty lat and lon mean the entry has no geographic
// anchor; only one of the two present is an error.
func parseRow(rec []string) (location.Location, error) {
	name := strings.TrimSpace(rec[0])
	latStr := strings.TrimSpace(rec[1])
	lonStr := strings.TrimSpace(rec[2])
	activeStr := strings.TrimSpace(rec[3])
	payload := strings.TrimSpace(rec[4])

	var coord *geo.Coordinate
	switch {
	case latStr == "" && lonStr == "":
		// no anchor
	case latStr == "" || lonStr == "":
		return location.Location{}, fmt.Errorf("incomplete coordinate: lat=%q lon=%q", latStr, lonStr)
	default:
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return location.Location{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return location.Location{}, fmt.Errorf("invalid longitude %q: %w", lonStr, err)
		}
		coord = &geo.Coordinate{Lat: lat, Lon: lon}
	}

	active, err := strconv.ParseBool(activeStr)
	if err != nil {
		return location.Location{}, fmt.Errorf("invalid active flag %q: %w", activeStr, err)
	}

	return location.New(name, []byte(payload), active, coord)
}
