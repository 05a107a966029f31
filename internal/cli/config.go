package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and create gostitch configuration files",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration settings",
		RunE:  runConfigShow,
	}

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a configuration file with default settings",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")
	_, _ = fmt.Fprintf(tabWriter, "client_id\t%d\n", cfg.ClientID)
	_, _ = fmt.Fprintf(tabWriter, "token\t%s\n", maskToken(cfg.Token))
	_, _ = fmt.Fprintf(tabWriter, "namespace\t%s\n", cfg.Namespace)
	_, _ = fmt.Fprintf(tabWriter, "gate_url\t%s\n", cfg.GateURL)
	_, _ = fmt.Fprintf(tabWriter, "spool_url\t%s\n", cfg.SpoolNotifyURL())
	_, _ = fmt.Fprintf(tabWriter, "max_batch_bytes\t%d\n", cfg.MaxBatchBytes)
	_, _ = fmt.Fprintf(tabWriter, "max_batch_records\t%d\n", cfg.MaxBatchRecords)
	_, _ = fmt.Fprintf(tabWriter, "flush_interval\t%s\n", cfg.FlushInterval)
	_, _ = fmt.Fprintf(tabWriter, "http_timeout\t%s\n", cfg.HTTPTimeout)
	_, _ = fmt.Fprintf(tabWriter, "ssl_verify\t%t\n", cfg.VerifySSL())
	_, _ = fmt.Fprintf(tabWriter, "log_level\t%s\n", cfg.LogLevel)
	_, _ = fmt.Fprintf(tabWriter, "spool.enabled\t%t\n", cfg.Spool.Enabled)
	if cfg.Spool.Enabled {
		_, _ = fmt.Fprintf(tabWriter, "spool.s3_endpoint\t%s\n", cfg.Spool.S3Endpoint)
		_, _ = fmt.Fprintf(tabWriter, "spool.s3_bucket\t%s\n", cfg.Spool.S3Bucket)
		_, _ = fmt.Fprintf(tabWriter, "spool.threshold_bytes\t%d\n", cfg.Spool.ThresholdBytes)
		_, _ = fmt.Fprintf(tabWriter, "spool.staging_dir\t%s\n", cfg.Spool.StagingDir)
	}
	if cfg.Hooks.PreRecord != "" {
		_, _ = fmt.Fprintf(tabWriter, "hooks.pre_record\t%s\n", cfg.Hooks.PreRecord)
	}
	if cfg.Hooks.PostBatch != "" {
		_, _ = fmt.Fprintf(tabWriter, "hooks.post_batch\t%s\n", cfg.Hooks.PostBatch)
	}
	_ = tabWriter.Flush()

	return nil
}

func runConfigInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	defaultConfig := config.DefaultConfig()
	if err := defaultConfig.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": configPath})
	logger.Info("Fill in client_id and token before running the target")
	return nil
}

// maskToken hides all but the last characters of a credential.
func maskToken(token string) string {
	const visible = 4
	if len(token) <= visible {
		return "****"
	}
	return "****" + token[len(token)-visible:]
}
