// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/motion_node/internal/classify"
	"github.com/relabs-tech/motion_node/internal/config"
	"github.com/relabs-tech/motion_node/internal/console"
	"github.com/relabs-tech/motion_node/internal/imu"
	"github.com/relabs-tech/motion_node/internal/link"
	"github.com/relabs-tech/motion_node/internal/node"
	"github.com/relabs-tech/motion_node/internal/sensors"
)

// RunNode wires the sensor, transports and console from cfg and runs the
// node until ctx is cancelled or a component fails.
func RunNode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	source, err := NewSource(cfg.Sensor, logger)
	if err != nil {
		return err
	}

	transport, ws, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	n, err := node.New(NodeOptions(cfg.Node), source, transport, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if ws != nil {
		srv := &http.Server{
			Addr:              cfg.WebSocket.Listen,
			Handler:           ws.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("websocket server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := startConsole(ctx, g, cfg.Console, n, logger); err != nil {
		return err
	}

	g.Go(func() error { return n.Run(ctx) })
	return g.Wait()
}

// NodeOptions maps the node section of the config to node.Options.
func NodeOptions(c config.NodeConfig) node.Options {
	return node.Options{
		NodeID:               c.ID,
		Firmware:             c.Firmware,
		Variant:              node.Variant(c.Variant),
		WindowSize:           c.WindowSize,
		Hop:                  c.Hop,
		RateHz:               c.RateHz,
		Classifier:           classify.Kind(c.Classifier),
		Thresholds:           c.Thresholds,
		AutoStartOnSubscribe: c.AutoStart(),
		RawAutoOff:           c.RawAutoOff,
		IdleBackoff:          time.Duration(c.IdleBackoffMS) * time.Millisecond,
	}
}

// NewSource opens the configured sample source.
func NewSource(c config.SensorConfig, logger *zap.Logger) (imu.Source, error) {
	switch c.Kind {
	case "mpu9250":
		dev, err := sensors.NewMPU9250(sensors.MPU9250Options{
			SPIDevice:  c.SPIDevice,
			CSPin:      c.CSPin,
			AccelRange: c.AccelRange,
			GyroRange:  c.GyroRange,
		}, logger)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case "gait":
		logger.Info("using synthetic gait source", zap.Int("phase_s", c.Gait.PhaseSeconds))
		return sensors.NewGait(sensors.GaitOptions{
			PhaseDuration: time.Duration(c.Gait.PhaseSeconds) * time.Second,
			NotReadyEvery: c.Gait.NotReadyEvery,
			Noise:         c.Gait.Noise,
			Seed:          c.Gait.Seed,
		}), nil
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", c.Kind)
	}
}

// newTransport builds every enabled transport. With none enabled the node
// runs on a loopback and only the console can drive it.
func newTransport(cfg *config.Config, logger *zap.Logger) (link.Transport, *link.WebSocket, error) {
	var (
		members []link.Transport
		ws      *link.WebSocket
	)

	if cfg.MQTT.Enabled {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "motion-node-" + cfg.Node.ID + "-" + uuid.NewString()[:8]
		}
		m := link.NewMQTT(link.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    clientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			NodeID:      cfg.Node.ID,
			QoS:         cfg.MQTT.QoS,
		}, logger)
		if err := m.Connect(); err != nil {
			return nil, nil, err
		}
		members = append(members, m)
	}

	if cfg.WebSocket.Enabled {
		ws = link.NewWebSocket(logger)
		members = append(members, ws)
	}

	switch len(members) {
	case 0:
		logger.Warn("no transport enabled, running on loopback")
		return link.NewLoopback(), nil, nil
	case 1:
		return members[0], ws, nil
	default:
		return link.NewMulti(members...), ws, nil
	}
}

// startConsole attaches the configured console to n. A serial console is
// closed on shutdown to unblock its reader; stdin cannot be, so its reader
// is left outside the group.
func startConsole(ctx context.Context, g *errgroup.Group, c config.ConsoleConfig, n *node.Node, logger *zap.Logger) error {
	switch c.Mode {
	case "serial":
		port, err := console.OpenSerial(c.Port, c.Baud)
		if err != nil {
			return err
		}
		logger.Info("console serial port opened", zap.String("port", c.Port), zap.Uint("baud", c.Baud))
		con := console.New(port, port, logger)
		n.SetConsole(con.Events())
		g.Go(func() error { return con.Run(ctx) })
		g.Go(func() error {
			<-ctx.Done()
			return closeQuietly(port)
		})
	case "stdin":
		con := console.New(os.Stdin, os.Stdout, logger)
		n.SetConsole(con.Events())
		go func() {
			if err := con.Run(ctx); err != nil {
				logger.Warn("console stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

func closeQuietly(c io.Closer) error {
	if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close console: %w", err)
	}
	return nil
}
