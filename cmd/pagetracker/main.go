// Command pagetracker pages through a remote JSON list the way a scrolling
// list view would, and prints the items it loads as NDJSON.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/pagetracker/internal/config"
	"github.com/Sternrassler/pagetracker/pkg/httpfetch"
)

var version = "dev"

func main() {
	rootCmd := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagetracker",
		Short: "Scroll through a paginated JSON API",
		Long: `pagetracker loads a paginated JSON list on demand. It simulates a list
view scrolling towards the end of the loaded items and fetches the next page
when the visible row comes within page-size items of the end.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newScrollCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagetracker %s\n", version)
		},
	}
}

// mapErrorToExitCode maps errors to process exit codes:
// 2 for configuration errors, 3 for failed page requests, 1 otherwise.
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, config.ErrInvalidConfig) {
		return 2
	}

	var httpErr *httpfetch.HTTPError
	if errors.Is(err, httpfetch.ErrRetryExhausted) || errors.As(err, &httpErr) {
		return 3
	}

	return 1
}
