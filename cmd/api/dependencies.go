package api

import (
	"fmt"
	"log/slog"
	"time"

	deposithandler "github.com/mastanley13/commissable-crm/internal/domain/deposit/handler"
	depositrepo "github.com/mastanley13/commissable-crm/internal/domain/deposit/repository"
	depositservice "github.com/mastanley13/commissable-crm/internal/domain/deposit/service"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/telarus"

	"github.com/mastanley13/commissable-crm/pkg/config"
	"github.com/mastanley13/commissable-crm/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	DepositRepo depositrepo.DepositRepository

	// Reference data
	Matcher *telarus.Matcher

	// Services
	DepositService *depositservice.DepositService

	// Handlers
	DepositHandler *deposithandler.DepositHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initReferenceData(); err != nil {
		return nil, fmt.Errorf("failed to init reference data: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initReferenceData loads the master reference table once for the process.
// A missing master file disables reference matching but is not fatal.
func (d *Dependencies) initReferenceData() error {
	path := d.Config.Reference.MasterFilePath
	if path == "" {
		d.Logger.Warn("no reference master file configured; template matching disabled")
		return nil
	}

	matcher, err := telarus.Shared(path)
	if err != nil {
		d.Logger.Warn("failed to load reference master file; template matching disabled",
			"path", path, "error", err)
		return nil
	}

	d.Matcher = matcher
	d.Logger.Info("reference master file loaded", "path", path)
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.DepositRepo = depositrepo.NewPostgresDepositRepository(d.DB.Pool)
	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.DepositService = depositservice.NewDepositService(d.DepositRepo, d.Matcher, d.Logger)
	d.Logger.Info("services initialized")
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.DepositHandler = deposithandler.NewDepositHandler(d.DepositService, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
