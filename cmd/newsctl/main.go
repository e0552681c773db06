package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsroom/internal/client"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsctl",
		Short: "Command-line client for the newsroom API",
		Long: `newsctl browses, searches, and manages news articles.

Reading and searching work without an account. Creating, editing, and
deleting articles require logging in first; the session token is kept in
your user config directory and verified against the server on every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "newsroom server base URL")

	rootCmd.AddCommand(
		registerCmd(),
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		listCmd(),
		getCmd(),
		createCmd(),
		updateCmd(),
		deleteCmd(),
		uploadCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, client.ErrLoginRequired) {
			fmt.Fprintln(os.Stderr, "You are not logged in. Run `newsctl login` first.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var serverURL string

func defaultServerURL() string {
	if url := os.Getenv("NEWSROOM_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
