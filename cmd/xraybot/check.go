package main

import (
	"os"

	"xraybot/internal/logger"
	"xraybot/internal/servers"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the Xray config and every server through xray-core",
	Long:  `Loads both documents the way serve does, then builds the client outbound of every server with xray-core, which catches malformed public keys, short ids and transports before users get broken links.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		xc, registry := mustLoadServers(cfg)
		warnNonUUIDs(xc.Credentials)

		logger.Log.Infof("Xray config: %d clients, security=%s network=%s port=%d",
			len(xc.Credentials), xc.Transport.Security, xc.Transport.Network, xc.Transport.Port)

		// Any valid client id will do; the check is about the server side.
		probe := uuid.NewString()
		if len(xc.Credentials) > 0 {
			probe = xc.Credentials[0].ID
		}

		failed := 0
		for _, ep := range registry.Endpoints() {
			if err := servers.Check(probe, ep); err != nil {
				failed++
				logger.Log.Errorf("❌ %v", err)
				continue
			}
			logger.Log.Infof("✅ %s (%s:%d, %s)", ep.Name, ep.Address, ep.Port, ep.Security)
		}
		if failed > 0 {
			logger.Log.Errorf("%d of %d servers failed", failed, registry.Len())
			logger.Sync()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
