package commands

import (
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/fieldsales/core/internal/adapters/repository/memory"
	pgstore "github.com/fieldsales/core/internal/adapters/repository/postgres"
	sqlitestore "github.com/fieldsales/core/internal/adapters/repository/sqlite"
	"github.com/fieldsales/core/internal/infrastructure/config"
	"github.com/fieldsales/core/internal/infrastructure/database"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FieldSales API server",
		Long:  "Start the FieldSales API server with the configured storage driver, routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage postgres migrations (up, down, version); the sqlite and memory drivers create their own schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up", 0)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down", 0)
		},
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	}
	migrateCmd.AddCommand(versionCmd)

	return migrateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print FieldSales version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("FieldSales Core v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	stores, cleanup, err := buildStores(cfg, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer cleanup()

	srv, err := server.New(cfg, stores, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting FieldSales API server",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		appLogger.Fatalw("Server failed to start", "error", err)
	}
}

// buildStores opens the persistence variant named by storage.driver and
// returns its repositories plus a cleanup function for whatever it opened.
func buildStores(cfg *config.Config, appLogger *logger.Logger) (server.Stores, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.New()
		return server.Stores{
			Shops:       store.Shops(),
			Tasks:       store.Tasks(),
			Preferences: store.Preferences(),
		}, func() {}, nil

	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return server.Stores{}, nil, err
		}
		store, err := sqlitestore.NewStore(db)
		if err != nil {
			db.Close()
			return server.Stores{}, nil, err
		}
		return server.Stores{
			Shops:       store.Shops(),
			Tasks:       store.Tasks(),
			Preferences: store.Preferences(),
			Ping:        db.Ping,
		}, func() { db.Close() }, nil

	case config.DriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return server.Stores{}, nil, err
		}
		store, err := pgstore.NewStore(db, cfg.Database.GetDSN(), appLogger)
		if err != nil {
			db.Close()
			return server.Stores{}, nil, err
		}
		return server.Stores{
			Shops:       store.Shops(),
			Tasks:       store.Tasks(),
			Preferences: store.Preferences(),
			Ping:        db.Ping,
		}, func() { store.Close(); db.Close() }, nil

	default:
		return server.Stores{}, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func runMigration(direction string, steps int) {
	m, db := newMigrator()
	defer db.Close()

	var err error
	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	m, db := newMigrator()
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

// newMigrator connects to postgres and builds a file-source migrator. The
// migrations only apply to the postgres driver.
func newMigrator() (*migrate.Migrate, *database.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatalf("Migrations require the postgres storage driver, got %q", cfg.Storage.Driver)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	return m, db
}
