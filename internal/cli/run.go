package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/batch"
	"github.com/cperrin88/gostitch/pkg/config"
	"github.com/cperrin88/gostitch/pkg/gate"
	"github.com/cperrin88/gostitch/pkg/spool"
	"github.com/cperrin88/gostitch/pkg/state"
	"github.com/cperrin88/gostitch/pkg/target"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		dryRun    bool
		inputPath string
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Read Singer messages and send them to Stitch",
		Long: `Read Singer messages from stdin, validate records against their
stream schemas, batch them and persist the batches through the Stitch
import API. State messages are emitted on stdout once everything read
before them has been persisted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, dryRun, inputPath, statePath)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Process input without persisting anything")
	cmd.Flags().StringVar(&inputPath, "input", "", "Read messages from a file instead of stdin")
	cmd.Flags().StringVar(&statePath, "state-out", "", "Write emitted state to a file instead of stdout")

	return cmd
}

func runRun(cmd *cobra.Command, dryRun bool, inputPath, statePath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg)

	in := io.Reader(os.Stdin)
	if inputPath != "" {
		file, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer func() { _ = file.Close() }()
		in = file
	}

	stateOut := io.Writer(os.Stdout)
	if statePath != "" {
		file, err := os.Create(statePath)
		if err != nil {
			return fmt.Errorf("failed to create state file: %w", err)
		}
		defer func() { _ = file.Close() }()
		stateOut = file
	}

	orch, err := buildOrchestrator(cfg, dryRun, stateOut)
	if err != nil {
		return err
	}

	if err := orch.Run(cmd.Context(), in); err != nil {
		return err
	}

	logger.Success("All messages processed")
	return nil
}

func buildOrchestrator(cfg *config.Config, dryRun bool, stateOut io.Writer) (*target.Orchestrator, error) {
	var sender gate.Sender
	if dryRun {
		sender = &gate.DryRunSender{}
	} else {
		sender = gate.NewClient(cfg.GateURL, cfg.Token, cfg.HTTPTimeout, cfg.VerifySSL())
	}

	var spooler target.Persister
	if cfg.Spool.Enabled && !dryRun {
		s, err := buildSpooler(cfg)
		if err != nil {
			return nil, err
		}
		spooler = s
	}

	hooks, err := buildHooks(cfg)
	if err != nil {
		return nil, err
	}

	opts := target.Options{
		MaxBatchBytes:   cfg.MaxBatchBytes,
		MaxBatchRecords: cfg.MaxBatchRecords,
		FlushInterval:   cfg.FlushInterval,
	}
	if spooler != nil {
		opts.SpoolThresholdBytes = cfg.Spool.ThresholdBytes
	}

	return target.NewOrchestrator(opts, sender, spooler, hooks, state.NewEmitter(stateOut)), nil
}

func buildSpooler(cfg *config.Config) (*spool.Spooler, error) {
	uploader, err := spool.NewS3Uploader(cfg.Spool.S3Endpoint, cfg.Spool.AccessKey, cfg.Spool.SecretKey, cfg.Spool.S3Bucket, cfg.VerifySSL())
	if err != nil {
		return nil, err
	}

	notifier := spool.NewHTTPNotifier(cfg.SpoolNotifyURL(), cfg.Token, cfg.HTTPTimeout)
	sequences := batch.NewSequenceGenerator(cfg.MaxBatchRecords)

	return spool.NewSpooler(uploader, notifier, cfg.ClientID, cfg.Namespace, cfg.Spool.S3Bucket, cfg.Spool.StagingDir, sequences), nil
}
