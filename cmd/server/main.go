package main

import (
	"context"
	"log"

	analysisadapter "datalens/adapters/analysis"
	"datalens/adapters/blobstore"
	"datalens/adapters/postgres"
	"datalens/internal/api"
	"datalens/internal/config"
	datasetsvc "datalens/internal/dataset"
	"datalens/internal/errors"
	"datalens/internal/migration"
	"datalens/internal/preprocess"
	"datalens/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	datasetRepo := postgres.NewDatasetRepository(db)
	versionRepo := postgres.NewVersionRepository(db)
	storage := blobstore.NewLocalStorage(appConfig.Storage.BasePath)

	pool := profile.NewPool(appConfig.Profile.PoolWorkers)
	defer pool.Close()

	profileCfg := profile.Config{
		RowSampleCap:         appConfig.Profile.RowSampleCap,
		DuplicateSampleCap:   appConfig.Profile.DuplicateSampleCap,
		CorrelationColumnCap: appConfig.Profile.CorrelationColumnCap,
		CorrelationRowCap:    appConfig.Profile.CorrelationRowCap,
		BatchSize:            appConfig.Profile.BatchSize,
		PoolCellLimit:        appConfig.Profile.PoolCellLimit,
		Timeout:              appConfig.Profile.Timeout,
		Granularity:          profile.GranularityCoarse,
	}

	hub := api.NewSSEHub()

	processor := datasetsvc.NewProcessor(
		datasetRepo, versionRepo, storage, pool, profileCfg,
		appConfig.Storage.MaxFileSize, hub,
	)
	preprocessSvc := preprocess.NewService(datasetRepo, versionRepo, storage, pool, profileCfg)
	analysisClient := analysisadapter.NewHTTPClient(appConfig.Analysis, versionRepo)

	if appConfig.Ops.Enabled {
		go api.ServeOps(db, appConfig.Ops.Port)
	}

	gin.SetMode(appConfig.Server.GinMode)
	router := gin.Default()
	router.MaxMultipartMemory = appConfig.Storage.MaxFileSize

	handler := api.NewHandler(processor, preprocessSvc, analysisClient, versionRepo, hub)
	handler.Register(router)

	log.Printf("[Server] Listening on :%s", appConfig.Server.Port)
	if err := router.Run(":" + appConfig.Server.Port); err != nil {
		log.Fatal("Server failed:", err)
	}
}
