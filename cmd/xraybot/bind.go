package main

import (
	"context"
	"errors"
	"strconv"

	"xraybot/internal/db"
	"xraybot/internal/directory"
	"xraybot/internal/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var bindCmd = &cobra.Command{
	Use:   "bind <telegram-id> <client-uuid>",
	Short: "Assign a client of the Xray config to a Telegram user",
	Long:  `The client must have been synced first. A client belongs to at most one user; unbind it before giving it to someone else.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		telegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			logger.Log.Fatalf("Invalid telegram id %q: %v", args[0], err)
		}
		clientID := args[1]
		if _, err := uuid.Parse(clientID); err != nil {
			logger.Log.Warnf("%q is not a UUID, binding anyway", clientID)
		}

		cfg := mustLoadConfig()
		database, dir := mustOpenDirectory(cfg)
		defer db.Close(database)

		err = dir.Bind(context.Background(), telegramID, clientID)
		switch {
		case errors.Is(err, directory.ErrUnknownCredential):
			logger.Log.Fatalf("Unknown client %s (run `xraybot sync` first?)", clientID)
		case err != nil:
			logger.Log.Fatalf("Bind failed: %v", err)
		}
		logger.Log.Infof("🔑 Bound %s to user %d", clientID, telegramID)
	},
}

var unbindCmd = &cobra.Command{
	Use:   "unbind <client-uuid>",
	Short: "Take a client away from its user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		database, dir := mustOpenDirectory(cfg)
		defer db.Close(database)

		if err := dir.Unbind(context.Background(), args[0]); err != nil {
			logger.Log.Fatalf("Unbind failed: %v", err)
		}
		logger.Log.Infof("Unbound %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(unbindCmd)
}
