package main

import (
	"flag"
	"log"

	"omnihook/internal/platform/config"
	"omnihook/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dbPath := flag.String("db", "", "Sqlite database path (overrides config)")
	flag.Parse()

	storageCfg := config.StorageConfig{Driver: "sqlite", Path: *dbPath}
	if *dbPath == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Storage.Driver != "sqlite" {
			log.Fatalf("Storage driver is %q, nothing to migrate", cfg.Storage.Driver)
		}
		storageCfg = cfg.Storage
	}

	db, err := database.Open(storageCfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migrated %s", storageCfg.Path)
}
