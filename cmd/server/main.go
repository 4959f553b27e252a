// Command server runs the pollchat long-poll chat server.
//
// Usage:
//
//	server serve                      # start with ./config.yaml (written on first run)
//	server serve -c /etc/pollchat.yaml
//	server version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Long-poll chat server",
	Long: `pollchat is a small chat server. Clients post messages and commands,
and receive everyone's messages by long-polling or over a WebSocket stream.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pollchat %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
