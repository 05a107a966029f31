package cli

import (
	"fmt"

	"github.com/cperrin88/gostitch/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for gostitch",
		Run:   runVersion,
	}

	return cmd
}

func runVersion(*cobra.Command, []string) {
	fmt.Printf("gostitch version %s\n", version.Number)
	fmt.Printf("Build date: %s\n", version.BuildDate)
	fmt.Printf("Git commit: %s\n", version.GitCommit)
}
