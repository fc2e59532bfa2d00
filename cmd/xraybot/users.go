package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"xraybot/internal/db"
	"xraybot/internal/flow"
	"xraybot/internal/logger"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List known clients and who they are bound to",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		database, dir := mustOpenDirectory(cfg)
		defer db.Close(database)

		rows, err := dir.Clients(context.Background())
		if err != nil {
			logger.Log.Fatalf("Error listing clients: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT\tLABEL\tTELEGRAM ID\tUSER")
		bound := 0
		for _, r := range rows {
			owner, user := "-", ""
			if r.TelegramID != nil {
				bound++
				owner = fmt.Sprint(*r.TelegramID)
				switch {
				case r.Username != nil && *r.Username != "":
					user = "@" + *r.Username
				case r.FirstName != nil:
					user = *r.FirstName
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.UUID, flow.Label(r.Email, r.UUID), owner, user)
		}
		w.Flush()
		fmt.Printf("\n%d clients, %d bound\n", len(rows), bound)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
}
