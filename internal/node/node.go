// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package node runs the motion node: one goroutine that paces sensor
// reads, keeps the statistics window, classifies every hop and emits
// telemetry over a link.Transport.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/motion_node/internal/classify"
	"github.com/relabs-tech/motion_node/internal/clock"
	"github.com/relabs-tech/motion_node/internal/control"
	"github.com/relabs-tech/motion_node/internal/imu"
	"github.com/relabs-tech/motion_node/internal/link"
	"github.com/relabs-tech/motion_node/internal/telemetry"
	"github.com/relabs-tech/motion_node/internal/window"
)

// Variant selects the window and record layout.
type Variant string

const (
	// VariantWrist buffers 3-axis vectors and emits LABEL records.
	VariantWrist Variant = "wrist"
	// VariantAnkle buffers magnitudes and emits SPD records.
	VariantAnkle Variant = "ankle"
)

// DefaultIdleBackoff bounds how long the loop sleeps while not streaming.
const DefaultIdleBackoff = 5 * time.Millisecond

// Options configures a Node.
type Options struct {
	NodeID   string
	Firmware string
	Variant  Variant

	WindowSize int
	Hop        int
	RateHz     int

	// Classifier defaults to threshold for wrist and intensity for ankle.
	Classifier classify.Kind
	Thresholds classify.Thresholds

	AutoStartOnSubscribe bool // start when LABEL gains its first subscriber
	RawAutoOff           bool // raw:off when RAW loses its last subscriber

	IdleBackoff time.Duration
}

func (o *Options) validate() error {
	if o.Variant != VariantWrist && o.Variant != VariantAnkle {
		return fmt.Errorf("node: unknown variant %q", o.Variant)
	}
	if o.WindowSize < 2 {
		return fmt.Errorf("node: window size %d, need at least 2", o.WindowSize)
	}
	if o.Hop < 1 || o.Hop >= o.WindowSize {
		return fmt.Errorf("node: hop %d must be in [1, %d)", o.Hop, o.WindowSize)
	}
	if !control.ValidRate(o.RateHz) {
		return fmt.Errorf("node: rate %d Hz outside [%d, %d]", o.RateHz, control.MinRateHz, control.MaxRateHz)
	}
	if o.IdleBackoff <= 0 {
		o.IdleBackoff = DefaultIdleBackoff
	}
	if o.Classifier == "" {
		o.Classifier = classify.KindThreshold
		if o.Variant == VariantAnkle {
			o.Classifier = classify.KindIntensity
		}
	}
	return nil
}

// Stats counts what the loop has done since New.
type Stats struct {
	Samples         uint64 // reads pushed into the window
	Skipped         uint64 // ticks dropped on not-ready or read error
	Reductions      uint64
	Notifications   uint64
	NotifyErrors    uint64
	Commands        uint64 // parsed CONTROL writes
	IgnoredCommands uint64
}

// Node owns the control state, the window and the clock. Everything it
// holds is touched only from Run.
type Node struct {
	opts   Options
	logger *zap.Logger

	state      *control.State
	interp     *control.Interpreter
	clock      *clock.Clock
	hopper     *window.Hopper
	classifier classify.Classifier

	win  window.Window
	mags *window.MagnitudeWindow // ankle
	axes *window.AxisWindow      // wrist

	source    imu.Source
	transport link.Transport
	console   <-chan link.Event

	labelSubscribed bool
	rawSubscribed   bool
	notifyFailing   map[link.Channel]bool

	now   func() time.Time
	stats Stats
}

// New builds a stopped node.
func New(opts Options, source imu.Source, transport link.Transport, logger *zap.Logger) (*Node, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if source == nil || transport == nil {
		return nil, errors.New("node: source and transport are required")
	}
	c, err := classify.New(opts.Classifier, opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}

	state := control.NewState(opts.RateHz)
	n := &Node{
		opts:       opts,
		logger:     logger.Named("node").With(zap.String("node_id", opts.NodeID)),
		state:      state,
		interp:     control.NewInterpreter(state),
		clock:      clock.New(state.PeriodMicros()),
		hopper:     window.NewHopper(opts.Hop),
		classifier: c,
		source:     source,
		transport:  transport,
		now:        time.Now,

		notifyFailing: make(map[link.Channel]bool),
	}
	switch opts.Variant {
	case VariantAnkle:
		n.mags = window.NewMagnitudeWindow(opts.WindowSize)
		n.win = n.mags
	case VariantWrist:
		n.axes = window.NewAxisWindow(opts.WindowSize)
		n.win = n.axes
	}
	return n, nil
}

// SetConsole adds a second inbound event source. Call before Run.
func (n *Node) SetConsole(events <-chan link.Event) {
	n.console = events
}

// Stats returns the counters. Not safe to call while Run is active.
func (n *Node) Stats() Stats { return n.stats }

// State returns a copy of the control state. Not safe to call while Run
// is active.
func (n *Node) State() control.Snapshot { return n.state.Snapshot() }

// Run drives the node until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	n.publishInfo()
	n.logger.Info("node ready",
		zap.String("variant", string(n.opts.Variant)),
		zap.String("classifier", string(n.opts.Classifier)),
		zap.Int("window", n.opts.WindowSize),
		zap.Int("hop", n.opts.Hop),
		zap.Int("rate_hz", n.state.RateHz()))

	timer := time.NewTimer(n.opts.IdleBackoff)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			n.logStats()
			return nil
		}

		n.drain()
		n.step(n.now())

		wait := n.opts.IdleBackoff
		if n.state.Streaming() {
			wait = min(n.clock.Until(n.now()), wait)
		}
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
		case ev := <-n.transport.Events():
			n.handle(ev)
		case ev := <-n.console:
			n.handle(ev)
		case <-timer.C:
		}
		timer.Stop()
	}
}

// drain handles every queued event without blocking.
func (n *Node) drain() {
	for {
		select {
		case ev := <-n.transport.Events():
			n.handle(ev)
		case ev := <-n.console:
			n.handle(ev)
		default:
			return
		}
	}
}

func (n *Node) handle(ev link.Event) {
	switch ev.Kind {
	case link.EventWrite:
		if ev.Channel != link.Control {
			n.logger.Debug("write to read-only channel", zap.Stringer("channel", ev.Channel))
			return
		}
		n.command(ev.Payload, ev.Origin)
	case link.EventSubscription:
		n.subscriptionChanged(ev.Channel)
	}
}

func (n *Node) command(payload []byte, origin string) {
	before := n.state.Snapshot()
	cmd, changed := n.interp.Handle(payload)
	if cmd.Op == control.OpNone {
		n.stats.IgnoredCommands++
		n.logger.Debug("command ignored", zap.String("origin", origin), zap.Binary("payload", payload))
		return
	}
	n.stats.Commands++
	n.logger.Info("command",
		zap.String("origin", origin),
		zap.Stringer("op", cmd.Op),
		zap.Int("rate_hz", cmd.RateHz),
		zap.Bool("changed", changed))
	if changed {
		n.applied(before)
	}
}

// apply runs a command raised by the node itself.
func (n *Node) apply(cmd control.Command, reason string) {
	before := n.state.Snapshot()
	if n.state.Apply(cmd) {
		n.logger.Info("command", zap.String("origin", reason), zap.Stringer("op", cmd.Op))
		n.applied(before)
	}
}

// applied reconciles the clock and INFO with a state change.
func (n *Node) applied(before control.Snapshot) {
	after := n.state.Snapshot()
	if after.PeriodMicros != before.PeriodMicros {
		n.clock.SetPeriodMicros(after.PeriodMicros)
	}
	switch {
	case after.Streaming && !before.Streaming:
		n.clock.Reset(n.now())
		n.logger.Info("streaming started", zap.Uint32("session", after.SessionID), zap.Int("rate_hz", after.RateHz))
	case !after.Streaming && before.Streaming:
		n.clock.Stop()
		n.logger.Info("streaming stopped", zap.Uint32("session", after.SessionID))
	}
	if after.SessionID != before.SessionID || after.RateHz != before.RateHz {
		n.publishInfo()
	}
}

func (n *Node) subscriptionChanged(ch link.Channel) {
	on := n.transport.IsSubscribed(ch)
	switch ch {
	case link.Label:
		was := n.labelSubscribed
		n.labelSubscribed = on
		if on && !was && n.opts.AutoStartOnSubscribe {
			n.apply(control.Command{Op: control.OpStart}, "auto-start")
		}
	case link.Raw:
		was := n.rawSubscribed
		n.rawSubscribed = on
		if !on && was && n.opts.RawAutoOff {
			n.apply(control.Command{Op: control.OpRawOff}, "raw-auto-off")
		}
	}
	n.logger.Debug("subscription", zap.Stringer("channel", ch), zap.Bool("subscribed", on))
}

// step runs at most one sample cycle.
func (n *Node) step(now time.Time) {
	if !n.state.Streaming() || !n.clock.Due(now) {
		return
	}
	if !n.source.Ready() {
		n.stats.Skipped++
		return
	}
	s, err := n.source.Read()
	if err != nil {
		n.stats.Skipped++
		n.logger.Debug("sensor read failed", zap.Error(err))
		return
	}
	n.stats.Samples++

	if n.axes != nil {
		n.axes.Push(s.Ax, s.Ay, s.Az)
	} else {
		n.mags.Push(s.Magnitude())
	}

	if n.hopper.Accept() && n.transport.IsSubscribed(link.Label) {
		n.emitRecord()
	}
	if n.state.RawEnabled() && n.transport.IsSubscribed(link.Raw) {
		raw := telemetry.Raw(s)
		n.notify(link.Raw, raw[:])
	}
}

func (n *Node) emitRecord() {
	r := n.win.Reduce()
	n.stats.Reductions++
	res := n.classifier.Classify(r)

	var rec []byte
	switch res.Kind {
	case classify.KindIntensity:
		rec = telemetry.Speed(r.Mean, res.Intensity)
	default:
		rec = telemetry.Label(res.Label.String(), r.Mean, r.Std)
	}
	n.notify(link.Label, rec)
}

// notify logs only on transitions between failing and delivering per
// channel; a broker outage at the sample rate would otherwise flood the log.
func (n *Node) notify(ch link.Channel, payload []byte) {
	if err := n.transport.Notify(ch, payload); err != nil {
		n.stats.NotifyErrors++
		if !n.notifyFailing[ch] {
			n.notifyFailing[ch] = true
			n.logger.Warn("notify failed", zap.Stringer("channel", ch), zap.Error(err))
		}
		return
	}
	n.stats.Notifications++
	if n.notifyFailing[ch] {
		n.notifyFailing[ch] = false
		n.logger.Info("notify recovered", zap.Stringer("channel", ch),
			zap.Uint64("notify_errors", n.stats.NotifyErrors))
	}
}

func (n *Node) publishInfo() {
	info := telemetry.Info(n.opts.NodeID, n.state.SessionID(), n.state.RateHz(), n.opts.Firmware)
	if err := n.transport.SetValue(link.Info, info); err != nil {
		n.logger.Warn("info update failed", zap.Error(err))
	}
}

func (n *Node) logStats() {
	s := n.stats
	n.logger.Info("node stopped",
		zap.Uint64("samples", s.Samples),
		zap.Uint64("skipped", s.Skipped),
		zap.Uint64("reductions", s.Reductions),
		zap.Uint64("notifications", s.Notifications),
		zap.Uint64("notify_errors", s.NotifyErrors),
		zap.Uint64("commands", s.Commands),
		zap.Uint64("ignored_commands", s.IgnoredCommands))
}
