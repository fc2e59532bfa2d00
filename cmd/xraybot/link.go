package main

import (
	"fmt"

	"xraybot/internal/flow"
	"xraybot/internal/logger"
	"xraybot/internal/vless"

	"github.com/spf13/cobra"
)

var linkEmail string

var linkCmd = &cobra.Command{
	Use:   "link <client-uuid> [server]",
	Short: "Print share links for a client without going through Telegram",
	Long:  `Prints the link for one server, or for every configured server when none is given. The remark is "<server>-<label>" as in the bot.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		xc, registry := mustLoadServers(cfg)

		clientID := args[0]
		email := linkEmail
		if email == "" {
			for _, c := range xc.Credentials {
				if c.ID == clientID {
					email = c.Email
					break
				}
			}
		}
		label := flow.Label(email, clientID)

		endpoints := registry.Endpoints()
		if len(args) == 2 {
			ep, ok := registry.Lookup(args[1])
			if !ok {
				logger.Log.Fatalf("Unknown server %q (have %v)", args[1], registry.Names())
			}
			endpoints = endpoints[:0]
			endpoints = append(endpoints, ep)
		}

		for _, ep := range endpoints {
			fmt.Println(vless.Build(clientID, ep, ep.Name+"-"+label))
		}
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkEmail, "email", "", "label to use instead of the client's email")
	rootCmd.AddCommand(linkCmd)
}
