package main

import (
	"xraybot/internal/config"
	"xraybot/internal/db"
	"xraybot/internal/directory"
	"xraybot/internal/logger"
	"xraybot/internal/servers"
	"xraybot/internal/xray"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func mustLoadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// mustLoadServers reads the Xray config and merges the endpoint overrides
// over its transport settings.
func mustLoadServers(cfg *config.Config) (*xray.Config, *servers.Registry) {
	xc, err := xray.LoadConfig(cfg.Xray.ConfigPath, cfg.Xray.Protocol)
	if err != nil {
		logger.Log.Fatalf("Error reading Xray config: %v", err)
	}

	doc, err := cfg.ServersDocument()
	if err != nil {
		logger.Log.Fatalf("Error loading servers: %v", err)
	}
	registry, err := servers.Build(doc, xc.Transport)
	if err != nil {
		logger.Log.Fatalf("Error loading servers: %v", err)
	}
	return xc, registry
}

func mustOpenDirectory(cfg *config.Config) (*gorm.DB, *directory.Directory) {
	database, err := db.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Log.Fatalf("Error connecting to DB: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logger.Log.Fatalf("Error migrating DB: %v", err)
	}
	return database, directory.New(database)
}

// warnNonUUIDs flags credential ids that Xray would not accept as UUIDs.
func warnNonUUIDs(creds []xray.Credential) {
	for _, c := range creds {
		if _, err := uuid.Parse(c.ID); err != nil {
			logger.Log.Warnf("Client id %q is not a UUID", c.ID)
		}
	}
}
