// Command vtree inspects selectors, renders tree documents and serves them
// to remote replicas over a websocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "Virtual tree reconciliation toolkit",
		Long: `vtree keeps a virtual element tree synchronized with a host tree.

Commands:
  • parse   show how a selector is understood
  • render  render a tree document to HTML
  • serve   stream a tree document to websocket replicas`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory holding vtree.json")

	rootCmd.AddCommand(
		parseCmd(),
		renderCmd(&configDir),
		serveCmd(&configDir),
		versionCmd(),
	)
	return rootCmd
}

// info prints an indented line to the command's error stream.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", fmt.Sprintf(format, args...))
}
