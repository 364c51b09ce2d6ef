package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/tigerroll/helios/internal/assembler"
	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/crop"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/internal/imagery"
	"github.com/tigerroll/helios/internal/label"
	"github.com/tigerroll/helios/internal/manifest"
	"github.com/tigerroll/helios/internal/runconfig"
	gormadapter "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/helios/pkg/batch/adapter/storage"
	"github.com/tigerroll/helios/pkg/batch/adapter/storage/provider"
	config "github.com/tigerroll/helios/pkg/batch/core/config"
	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	inframetrics "github.com/tigerroll/helios/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/listener/export"
	"github.com/tigerroll/helios/pkg/batch/listener/logging"
	metricslistener "github.com/tigerroll/helios/pkg/batch/listener/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener/tracing"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

const moduleName = "app"

// NewRunID returns a fresh run identifier.
func NewRunID() RunID { return RunID(uuid.NewString()) }

// RunConfigs holds the two JSON documents of a run.
type RunConfigs struct {
	fx.Out
	User  runconfig.UserConfig
	Train runconfig.TrainConfig
}

// NewRunConfigs loads the user and training configs named in cfg.
func NewRunConfigs(cfg *config.Config) (RunConfigs, error) {
	user, err := runconfig.LoadUserConfig(cfg.Helios.Run.UserConfig)
	if err != nil {
		return RunConfigs{}, err
	}
	train, err := runconfig.LoadTrainConfig(cfg.Helios.Run.TrainConfig)
	if err != nil {
		return RunConfigs{}, err
	}
	return RunConfigs{User: user, Train: train}, nil
}

// NewStations returns the stations of the training config. Every station
// must fit in one batch file.
func NewStations(user runconfig.UserConfig, train runconfig.TrainConfig) (map[string]model.Station, error) {
	stations, err := train.StationMap()
	if err != nil {
		return nil, exception.NewConfigurationError(moduleName, "invalid stations", err)
	}
	if user.BatchSizeForSingleFile < len(stations) {
		return nil, exception.NewConfigurationError(moduleName,
			fmt.Sprintf("batch_size_for_single_file (%d) must be at least the number of stations (%d)",
				user.BatchSizeForSingleFile, len(stations)), nil)
	}
	return stations, nil
}

// NewCatalog loads the full catalog from cfg.Helios.Catalog.Path.
func NewCatalog(cfg *config.Config, stations map[string]model.Station) (*catalog.Catalog, error) {
	f, err := os.Open(cfg.Helios.Catalog.Path)
	if err != nil {
		return nil, exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to open catalog '%s'", cfg.Helios.Catalog.Path), err)
	}
	defer f.Close()
	c, err := catalog.LoadCSV(f, model.StationIDs(stations))
	if err != nil {
		return nil, err
	}
	logger.Infof("Catalog '%s' loaded with %d rows.", cfg.Helios.Catalog.Path, c.Len())
	return c, nil
}

// NewOpener returns the archive opener used for every imagery read.
func NewOpener() imagery.Opener { return imagery.NetCDFOpener{} }

// NewStationCoords locates the stations on the grid of the reference archive.
func NewStationCoords(cfg *config.Config, opener imagery.Opener, stations map[string]model.Station) (model.StationCoords, error) {
	return imagery.NewGeolocator(opener, cfg.Helios.Imagery.ReferenceArchive, stations).Coordinates()
}

// NewChannelReader creates the cached channel reader.
func NewChannelReader(cfg *config.Config, opener imagery.Opener) (*imagery.ChannelReader, error) {
	return imagery.NewChannelReader(opener, cfg.Helios.Imagery.CacheSize)
}

// NewLabelResolver resolves labels against the full catalog.
func NewLabelResolver(full *catalog.Catalog, train runconfig.TrainConfig) *label.Resolver {
	return label.NewResolver(full, train.TargetTimeOffsets)
}

// NewCropEngine creates the sample source of the assembler.
func NewCropEngine(reader *imagery.ChannelReader, resolver *label.Resolver, coords model.StationCoords, user runconfig.UserConfig) (*crop.Engine, error) {
	return crop.NewEngine(reader, resolver, coords, crop.Options{
		HalfWindow:      user.HalfWindow(),
		LookbackOffsets: user.InputTimeOffsets,
		SeqLength:       user.InputSeqLength,
	})
}

// NewMetricsConfig extracts the telemetry settings for inframetrics.Module.
func NewMetricsConfig(cfg *config.Config) inframetrics.Config {
	return cfg.Helios.Metrics
}

// NewStorageConnection opens the export target. It returns nil when export is disabled.
func NewStorageConnection(lc fx.Lifecycle, cfg *config.Config) (storageAdapter.StorageConnection, error) {
	conn, err := provider.Open(context.Background(), cfg.Helios.Output.Storage, "export")
	if err != nil {
		return nil, exception.NewStorageError(moduleName, "failed to open export storage", err)
	}
	if conn != nil {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return conn.Close() }})
	}
	return conn, nil
}

// NewManifestRepository migrates and opens the manifest database. Without a
// configured database type the manifest is kept in memory for the run.
func NewManifestRepository(lc fx.Lifecycle, cfg *config.Config) (manifest.Repository, error) {
	dbCfg := cfg.Helios.Manifest
	if dbCfg.Type == "" {
		logger.Infof("No manifest database configured; the manifest is kept in memory.")
		return manifest.NewMemoryRepository(), nil
	}
	if err := manifest.Migrate(dbCfg); err != nil {
		return nil, err
	}
	db, err := gormadapter.Open(dbCfg)
	if err != nil {
		return nil, exception.NewStorageError(moduleName, "failed to open manifest database", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, exception.NewStorageError(moduleName, "failed to access manifest connection pool", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return sqlDB.Close() }})
	return manifest.NewGormRepository(db), nil
}

// NewExportListener uploads batch files when a storage connection exists.
func NewExportListener(conn storageAdapter.StorageConnection, cfg *config.Config) listener.BatchListener {
	if conn == nil {
		return listener.NopListener{}
	}
	storage := cfg.Helios.Output.Storage
	return export.NewStorageExportListener(conn, storage.BucketName, storage.Prefix)
}

// NewManifestListener records every batch file under the run id.
func NewManifestListener(repo manifest.Repository, runID RunID) listener.BatchListener {
	return manifest.NewListener(repo, string(runID))
}

// ListenerParams collects the batch listener group.
type ListenerParams struct {
	fx.In
	Listeners []listener.BatchListener `group:"batchListeners"`
}

// NewCompositeListener fans a batch event out to every registered listener.
func NewCompositeListener(p ListenerParams) listener.BatchListener {
	return listener.Composite(p.Listeners)
}

// BuilderParams defines the dependencies of NewBuilderProvider.
type BuilderParams struct {
	fx.In
	Config   *config.Config
	RunID    RunID
	User     runconfig.UserConfig
	Stations map[string]model.Station
	Catalog  *catalog.Catalog
	Engine   *crop.Engine
	Listener listener.BatchListener `name:"composite"`
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
	Horizons *label.Resolver
}

// NewBuilderProvider assembles a Builder from the configuration.
func NewBuilderProvider(p BuilderParams) (*Builder, error) {
	h := p.Config.Helios
	return NewBuilder(p.RunID, p.Catalog, p.Engine, p.Listener, p.Recorder, p.Tracer, BuilderOptions{
		Splits:     h.Run.Splits,
		Windows:    p.Config.Window,
		StationIDs: model.StationIDs(p.Stations),
		Seed:       h.Run.Seed,
		PoolSize:   h.Run.PoolSize,
		RangeSize:  h.Partition.RangeSize,
		Assembler: assembler.Options{
			BatchSize: p.User.BatchSizeForSingleFile,
			Horizons:  p.Horizons.Horizons(),
			Remainder: assembler.RemainderPolicy(h.Assembler.RemainderPolicy),
			Unlabeled: assembler.UnlabeledPolicy(h.Assembler.UnlabeledPolicy),
		},
		WriteIndex: h.Assembler.WriteIndex,
	})
}

// Module provides the batch builder and everything it is built from. It
// expects *config.Config, metrics.MetricRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(
		NewRunID,
		NewRunConfigs,
		NewStations,
		NewCatalog,
		NewOpener,
		NewStationCoords,
		NewChannelReader,
		NewLabelResolver,
		NewCropEngine,
		NewMetricsConfig,
		NewStorageConnection,
		NewManifestRepository,
		fx.Annotate(NewCompositeListener, fx.ResultTags(`name:"composite"`)),
		NewBuilderProvider,
	),
	listener.AsBatchListener(logging.NewLoggingBatchListener),
	listener.AsBatchListener(metricslistener.NewMetricsBatchListener),
	listener.AsBatchListener(tracing.NewTracingBatchListener),
	listener.AsBatchListener(NewExportListener),
	listener.AsBatchListener(NewManifestListener),
)
