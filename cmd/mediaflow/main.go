// Command mediaflow runs the media sentiment-analysis orchestrator.
//
// Usage:
//
//	mediaflow serve [--config=<file>]
//	mediaflow graph validate <file>
//	mediaflow graph show [--file=<file>] [--yaml]
//	mediaflow version
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "mediaflow",
		Short:         "Media sentiment-analysis workflow orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yml)")
	root.AddCommand(
		newServeCommand(&configPath),
		newGraphCommand(),
		newVersionCommand(),
	)
	return root
}
