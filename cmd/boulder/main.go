// Command boulder drives recipe builds: materializing a sandbox,
// fetching declared upstream sources, and running a recipe's step
// pipeline inside it (spec.md §1, "boulder").
package main

import (
	"os"

	"github.com/spf13/cobra"

	"boulder/internal/pkg/buildlog"
)

var rootCmd = &cobra.Command{
	Use:   "boulder",
	Short: "Build recipes inside a sandboxed, content-addressed build engine",
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(chrootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		buildlog.Errorf("%v", err)
		os.Exit(1)
	}
}
