package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"xraybot/internal/bot"
	"xraybot/internal/db"
	"xraybot/internal/flow"
	"xraybot/internal/geoip"
	"xraybot/internal/logger"
	"xraybot/internal/metrics"
	"xraybot/internal/servers"
	"xraybot/internal/token"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var flagNoSync bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long:  `Loads the Xray config and servers, syncs clients into the database and answers /start and /mykeys until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		xc, registry := mustLoadServers(cfg)
		logger.Log.Infof("📄 Loaded %d clients and %d servers (%v)", len(xc.Credentials), registry.Len(), registry.Names())
		warnLongNames(registry)

		database, dir := mustOpenDirectory(cfg)
		defer db.Close(database)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !flagNoSync {
			warnNonUUIDs(xc.Credentials)
			n, err := dir.SyncCredentials(ctx, xc.Credentials, nil)
			if err != nil {
				logger.Log.Fatalf("Sync failed: %v", err)
			}
			logger.Log.Infof("Synced %d clients", n)
		}

		render := bot.Renderer{Flags: countryFlags(cfg.GeoIP.CountryPath, registry)}
		collector := metrics.New()
		b := bot.New(cfg.Telegram, flow.New(dir, registry), render, collector)

		err := b.Run(ctx)
		collector.PrintReport(os.Stdout)
		if !bot.IsShutdown(err) {
			logger.Log.Fatalf("Bot stopped: %v", err)
		}
		logger.Log.Info("👋 Bye")
	},
}

// countryFlags resolves a flag per server for the button labels. Servers that
// cannot be located keep the default icon.
func countryFlags(countryPath string, registry *servers.Registry) map[string]string {
	if countryPath == "" {
		return nil
	}
	if err := geoip.Init(countryPath); err != nil {
		logger.Log.Warnf("%v. Server buttons will not show flags.", err)
		return nil
	}
	defer geoip.Close()

	flags := make(map[string]string, registry.Len())
	for _, ep := range registry.Endpoints() {
		if code := geoip.Country(ep.Address); code != "" {
			flags[ep.Name] = geoip.FlagEmoji(code)
		}
	}
	return flags
}

// warnLongNames reports servers whose button data would exceed Telegram's
// callback data limit.
func warnLongNames(registry *servers.Registry) {
	sample := uuid.NewString()
	for _, name := range registry.Names() {
		data := token.Endpoint{Name: name, CredentialID: sample}.Encode()
		if len(data) > token.MaxLen {
			logger.Log.Warnf("Server name %q is too long for button data (%d > %d bytes); Telegram will reject its button", name, len(data), token.MaxLen)
		}
	}
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoSync, "no-sync", false, "Skip importing clients from the Xray config on startup")
	rootCmd.AddCommand(serveCmd)
}
