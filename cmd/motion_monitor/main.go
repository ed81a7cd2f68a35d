// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// motion_monitor subscribes to a motion node over MQTT and prints its
// records, optionally sending control commands first.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/motion_node/internal/app"
	"github.com/relabs-tech/motion_node/internal/config"
	"github.com/relabs-tech/motion_node/internal/logging"
)

func main() {
	var (
		configPath string
		broker     string
		opts       app.MonitorOptions
	)

	cmd := &cobra.Command{
		Use:   "motion_monitor",
		Short: "Print a motion node's records from MQTT",
		Example: `  motion_monitor --node 1 --send start
  motion_monitor --node 1 --raw --send raw:on --send rate:50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				if err := config.InitGlobal(configPath); err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = config.Get()
			}
			if broker != "" {
				cfg.MQTT.Broker = broker
			}

			logger, err := logging.NewLogger(true, "info")
			if err != nil {
				return err
			}
			defer logger.Sync()

			return app.RunMonitor(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (mqtt section)")
	cmd.Flags().StringVar(&broker, "broker", "", "override mqtt.broker")
	cmd.Flags().StringVar(&opts.NodeID, "node", "", "node id (default node.id from config)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "subscribe to RAW as well")
	cmd.Flags().StringArrayVar(&opts.Send, "send", nil, "CONTROL command to publish, repeatable")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}
