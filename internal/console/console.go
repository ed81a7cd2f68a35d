// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package console turns a line-oriented stream (serial port or stdin) into
// CONTROL writes for the node.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/motion_node/internal/link"
)

// Console reads commands one per line and echoes them back.
type Console struct {
	r      io.Reader
	w      io.Writer
	logger *zap.Logger
	events chan link.Event

	mu sync.Mutex // serializes writes to w
}

// New returns a console over r and w. w may be nil to disable echo.
func New(r io.Reader, w io.Writer, logger *zap.Logger) *Console {
	return &Console{
		r:      r,
		w:      w,
		logger: logger.Named("console"),
		events: make(chan link.Event, link.EventQueueLen),
	}
}

// Events delivers one CONTROL write per non-empty line.
func (c *Console) Events() <-chan link.Event { return c.events }

// Run reads lines until EOF, a read error or ctx is done. A blocked read
// only returns once the underlying stream is closed.
func (c *Console) Run(ctx context.Context) error {
	reader := bufio.NewReader(c.r)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			c.Printf("> %s", line)
			select {
			case c.events <- link.Event{Kind: link.EventWrite, Channel: link.Control, Payload: []byte(line), Origin: "console"}:
			case <-ctx.Done():
				return nil
			default:
				c.logger.Warn("event queue full, dropping line", zap.String("line", line))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("console read: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Printf writes one line to the console.
func (c *Console) Printf(format string, args ...any) {
	if c.w == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\r\n", args...)
}

// OpenSerial opens a serial port as 8N1 at baud.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("console serial %s: %w", port, err)
	}
	return p, nil
}
