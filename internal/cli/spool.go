package cli

import (
	"fmt"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/spool"
	"github.com/spf13/cobra"
)

// NewSpoolCmd creates the spool command with subcommands.
func NewSpoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spool",
		Short: "Manage the spool staging directory",
		Long: `Inspect and clean the local staging directory. Batch objects only
linger there when an upload to the spool failed.`,
	}

	cmd.AddCommand(
		newSpoolInfoCmd(),
		newSpoolCleanCmd(),
		newSpoolDirCmd(),
	)

	return cmd
}

func newSpoolInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show staging directory information",
		Long:  "Display size and file counts for the staging directory",
		RunE:  runSpoolInfo,
	}

	return cmd
}

func newSpoolCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staged batch objects",
		Long:  "Remove all staged batch objects to free up disk space",
		RunE:  runSpoolClean,
	}

	return cmd
}

func newSpoolDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show staging directory path",
		Long:  "Display the path to the staging directory",
		RunE:  runSpoolDir,
	}

	return cmd
}

func newStagingManager() (*spool.StagingManager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return spool.NewStagingManager(cfg.Spool.StagingDir)
}

func runSpoolInfo(*cobra.Command, []string) error {
	sm, err := newStagingManager()
	if err != nil {
		return err
	}

	info, err := sm.GetInfo()
	if err != nil {
		return err
	}

	fmt.Printf("Staging Directory: %s\n", info.Directory)
	fmt.Printf("Total Size: %s\n", spool.FormatBytes(info.TotalSize))
	fmt.Printf("Staged Objects: %d\n", info.Files)
	if info.Files > 0 {
		fmt.Printf("Oldest Object: %s\n", info.Oldest.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runSpoolClean(*cobra.Command, []string) error {
	sm, err := newStagingManager()
	if err != nil {
		return err
	}

	freed, err := sm.Clean()
	if err != nil {
		return err
	}

	if freed > 0 {
		logger.Success("Staging directory cleaned", logger.Fields{"freed": spool.FormatBytes(freed)})
	} else {
		logger.Info("No staged objects to remove")
	}
	return nil
}

func runSpoolDir(*cobra.Command, []string) error {
	sm, err := newStagingManager()
	if err != nil {
		return err
	}

	fmt.Println(sm.GetDirectory())
	return nil
}
