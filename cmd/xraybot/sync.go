package main

import (
	"context"
	"os"

	"xraybot/internal/db"
	"xraybot/internal/logger"
	"xraybot/internal/xray"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import the clients of the Xray config into the database",
	Long:  `Inserts new clients and refreshes the email of known ones. Clients that disappeared from the Xray config are kept, since they may still be bound to a user.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		xc, err := xray.LoadConfig(cfg.Xray.ConfigPath, cfg.Xray.Protocol)
		if err != nil {
			logger.Log.Fatalf("Error reading Xray config: %v", err)
		}
		warnNonUUIDs(xc.Credentials)

		database, dir := mustOpenDirectory(cfg)
		defer db.Close(database)

		bar := progressbar.NewOptions(len(xc.Credentials),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan]Syncing clients...[reset]"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)

		n, err := dir.SyncCredentials(context.Background(), xc.Credentials, func(batch int) {
			_ = bar.Add(batch)
		})
		_ = bar.Finish()
		if err != nil {
			logger.Log.Fatalf("Sync failed: %v", err)
		}
		logger.Log.Infof("✅ Synced %d clients from %s", n, cfg.Xray.ConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
