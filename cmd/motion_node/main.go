// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// motion_node samples an IMU, classifies movement over a sliding window
// and serves the results over MQTT and websocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relabs-tech/motion_node/internal/app"
	"github.com/relabs-tech/motion_node/internal/config"
	"github.com/relabs-tech/motion_node/internal/logging"
)

var version = "dev"

func main() {
	var (
		configPath string
		sensor     string
		variant    string
	)

	cmd := &cobra.Command{
		Use:   "motion_node",
		Short: "Wearable motion-sensing node",
		Long: `motion_node reads a 6-axis IMU at 25-200 Hz, reduces a sliding window
to mean and standard deviation of the acceleration magnitude, and emits
either a movement label (wrist) or an intensity score (ankle).

Control it with start, stop, raw:on, raw:off and rate:<hz> over MQTT, the
websocket endpoint or the console.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				if err := config.InitGlobal(configPath); err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = config.Get()
			}
			if sensor != "" {
				cfg.Sensor.Kind = sensor
			}
			if variant != "" {
				cfg.Node.Variant = variant
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&sensor, "sensor", "", "override sensor.kind (mpu9250, gait)")
	cmd.Flags().StringVar(&variant, "variant", "", "override node.variant (wrist, ankle)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting motion node",
		zap.String("version", version),
		zap.String("node_id", cfg.Node.ID),
		zap.String("variant", cfg.Node.Variant),
		zap.String("sensor", cfg.Sensor.Kind))

	return app.RunNode(ctx, cfg, logger)
}
