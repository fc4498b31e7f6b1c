// agentctl is the terminal client for the calldesk presence API: agents
// toggle Working/Break with it, admins watch the live status board.
package main

import (
	"fmt"
	"os"

	"calldesk/internal/logger"

	"github.com/spf13/cobra"
)

var (
	apiURL      string
	sessionPath string
)

func main() {
	logger.Init(os.Getenv("APP_ENV"))

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Call-center agent presence client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultAPI := os.Getenv("CALLDESK_API")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8090"
	}
	root.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "base URL of the calldesk server")
	root.PersistentFlags().StringVar(&sessionPath, "session", "", "path to the session database (default: user config dir)")

	root.AddCommand(loginCmd(), logoutCmd(), statusCmd(), breakCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
