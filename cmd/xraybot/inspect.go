package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"xraybot/internal/logger"
	"xraybot/internal/vless"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <vless-link>",
	Short: "Decode a vless:// share link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		l, err := vless.Parse(args[0])
		if err != nil {
			logger.Log.Fatalf("Invalid link: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Client:\t%s\n", l.CredentialID)
		fmt.Fprintf(w, "Address:\t%s\n", l.Address)
		fmt.Fprintf(w, "Port:\t%d\n", l.Port)
		fmt.Fprintf(w, "Network:\t%s\n", l.Network)
		fmt.Fprintf(w, "Security:\t%s\n", l.Security)
		for _, kv := range [][2]string{
			{"SNI", l.SNI},
			{"Public Key", l.PublicKey},
			{"Short ID", l.ShortID},
			{"Fingerprint", l.Fingerprint},
			{"Flow", l.Flow},
			{"Remark", l.Remark},
		} {
			if strings.TrimSpace(kv[1]) != "" {
				fmt.Fprintf(w, "%s:\t%s\n", kv[0], kv[1])
			}
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
