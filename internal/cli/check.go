package cli

import (
	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/gate"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and gate connectivity",
		Long: `Load and validate the configuration, then contact the Stitch
import API to verify the endpoint is reachable.`,
		RunE: runCheck,
	}

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg)

	logger.Info("Configuration is valid", logger.Fields{
		"client_id": cfg.ClientID,
		"gate_url":  cfg.GateURL,
	})

	client := gate.NewClient(cfg.GateURL, cfg.Token, cfg.HTTPTimeout, cfg.VerifySSL())
	if err := client.Check(cmd.Context()); err != nil {
		return err
	}

	logger.Success("Gate is reachable", logger.Fields{"gate_url": cfg.GateURL})
	return nil
}
