// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// MaxCommandLen is the largest CONTROL write the interpreter accepts.
const MaxCommandLen = 32

// Op is a decoded control operation.
type Op int

const (
	OpNone Op = iota
	OpStart
	OpStop
	OpRawOn
	OpRawOff
	OpSetRate
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	case OpRawOn:
		return "raw:on"
	case OpRawOff:
		return "raw:off"
	case OpSetRate:
		return "rate"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Encoding tells which wire form a command arrived in.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingText
	EncodingBinary
)

// Command is one decoded control message.
type Command struct {
	Op       Op
	RateHz   int
	Encoding Encoding
}

// Binary opcodes: {opcode, rate lo, rate hi}.
const (
	opcodeStop    = 0
	opcodeStart   = 1
	opcodeSetRate = 2
)

// Parse decodes a CONTROL payload. It never fails loudly: malformed,
// oversized or unknown input yields ok == false.
//
// A payload with no zero byte anywhere is text; one containing a zero byte
// is binary if it is at least 3 bytes long. Binary commands whose three
// bytes happen to be non-zero therefore take the text path and are dropped.
func Parse(payload []byte) (cmd Command, ok bool) {
	if len(payload) == 0 || len(payload) > MaxCommandLen {
		return Command{}, false
	}
	if bytes.IndexByte(payload, 0) < 0 {
		return parseText(payload)
	}
	if len(payload) >= 3 {
		return parseBinary(payload)
	}
	return Command{}, false
}

func parseText(payload []byte) (Command, bool) {
	buf := make([]byte, len(payload))
	for i, c := range payload {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		buf[i] = c
	}

	cmd := Command{Encoding: EncodingText}
	switch s := string(buf); s {
	case "start":
		cmd.Op = OpStart
	case "stop":
		cmd.Op = OpStop
	case "raw:on":
		cmd.Op = OpRawOn
	case "raw:off":
		cmd.Op = OpRawOff
	default:
		const prefix = "rate:"
		if !strings.HasPrefix(s, prefix) {
			return Command{}, false
		}
		n, ok := parseDecimal(strings.TrimPrefix(s, prefix))
		if !ok || !ValidRate(n) {
			return Command{}, false
		}
		cmd.Op = OpSetRate
		cmd.RateHz = n
	}
	return cmd, true
}

// parseDecimal accepts ASCII digits only; no sign, no spaces. Values past
// MaxRateHz saturate so long inputs cannot overflow.
func parseDecimal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		if n <= MaxRateHz {
			n = n*10 + int(c-'0')
		}
	}
	return n, true
}

func parseBinary(payload []byte) (Command, bool) {
	rate := int(binary.LittleEndian.Uint16(payload[1:3]))
	cmd := Command{Encoding: EncodingBinary}
	switch payload[0] {
	case opcodeStop:
		cmd.Op = OpStop
	case opcodeStart:
		cmd.Op = OpStart
	case opcodeSetRate:
		if !ValidRate(rate) {
			return Command{}, false
		}
		cmd.Op = OpSetRate
		cmd.RateHz = rate
	default:
		return Command{}, false
	}
	return cmd, true
}

// Interpreter applies CONTROL payloads to a State.
type Interpreter struct {
	state *State
}

// NewInterpreter binds an interpreter to state.
func NewInterpreter(state *State) *Interpreter {
	return &Interpreter{state: state}
}

// Handle parses payload and applies it. The returned command has Op ==
// OpNone when the payload was ignored; changed reports a state mutation.
func (i *Interpreter) Handle(payload []byte) (cmd Command, changed bool) {
	cmd, ok := Parse(payload)
	if !ok {
		return Command{}, false
	}
	return cmd, i.state.Apply(cmd)
}
